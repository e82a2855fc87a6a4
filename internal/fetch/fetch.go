// Package fetch resolves remote source roots into local clones under the
// cache root. Local roots pass through untouched.
//
// A remote root is written as one of
//
//	git+https://host/org/repo.git
//	git+ssh://git@host/org/repo.git
//	https://host/org/repo.git
//	git@host:org/repo.git
//
// with an optional "#branch" fragment pinning the branch. Clones are shallow
// and update in place across runs, so a rebuild only transfers new commits.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/metrics"
	"git.home.luguber.info/inful/docweaver/internal/retry"
	"git.home.luguber.info/inful/docweaver/internal/workspace"
)

const defaultDepth = 1

// Resolver fetches remote source roots into the cache layout. Fetching is
// incremental: a root cloned by an earlier run updates in place, so repeated
// runs (and the daemon's rebuild loop) always see the remote's current head.
type Resolver struct {
	layout   *workspace.Layout
	policy   retry.Policy
	recorder metrics.Recorder
	depth    int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy overrides the default retry policy for transient fetch errors.
func WithPolicy(p retry.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithRecorder sets the metrics recorder retries are counted on.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithDepth overrides the shallow clone depth. Zero or negative clones full
// history.
func WithDepth(n int) Option {
	return func(r *Resolver) { r.depth = n }
}

// NewResolver creates a Resolver over the given cache layout.
func NewResolver(layout *workspace.Layout, opts ...Option) *Resolver {
	r := &Resolver{
		layout:   layout,
		policy:   retry.DefaultPolicy(),
		recorder: metrics.NoopRecorder{},
		depth:    defaultDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a local path for the given source root, fetching remote
// roots into the cache first.
func (r *Resolver) Resolve(ctx context.Context, root string) (string, error) {
	rem, ok := ParseRemote(root)
	if !ok {
		return root, nil
	}
	if err := r.layout.Ensure(); err != nil {
		return "", err
	}
	return r.fetch(ctx, rem)
}

// Remote is one parsed remote source root.
type Remote struct {
	// URL is the clone URL with the git+ prefix and branch fragment removed.
	URL string

	// Branch pins the fetched branch; empty follows the remote default.
	Branch string

	// Name is the directory the clone lives in under the cache's sources
	// dir. Derived from the URL, so distinct remotes never collide.
	Name string
}

// ParseRemote reports whether root names a remote git source and parses it.
func ParseRemote(root string) (Remote, bool) {
	url := root
	branch := ""
	if i := strings.LastIndex(url, "#"); i >= 0 {
		url, branch = url[:i], url[i+1:]
	}

	switch {
	case strings.HasPrefix(url, "git+https://"), strings.HasPrefix(url, "git+ssh://"):
		url = strings.TrimPrefix(url, "git+")
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		if !strings.HasSuffix(url, ".git") {
			return Remote{}, false
		}
	case strings.HasPrefix(url, "ssh://"):
	case isSCPLike(url):
	default:
		return Remote{}, false
	}
	return Remote{URL: url, Branch: branch, Name: cloneDirName(url)}, true
}

// isSCPLike matches git@host:org/repo shorthand.
func isSCPLike(url string) bool {
	if !strings.HasPrefix(url, "git@") {
		return false
	}
	colon := strings.Index(url, ":")
	return colon > len("git@") && colon < len(url)-1
}

// cloneDirName derives a stable directory name from the clone URL: the repo
// base name plus a short hash of the full URL, so two forks of "docs.git"
// land in different directories.
func cloneDirName(url string) string {
	base := strings.TrimSuffix(filepath.Base(strings.ReplaceAll(url, ":", "/")), ".git")
	if base == "" || base == "." || base == "/" {
		base = "source"
	}
	return fmt.Sprintf("%s-%s", base, shortHash(url))
}

// fetch clones or updates one remote with the resolver's retry policy.
func (r *Resolver) fetch(ctx context.Context, rem Remote) (string, error) {
	dest := r.layout.SourceDir(rem.Name)
	return r.withRetry(ctx, rem, func() (string, error) {
		return r.fetchOnce(ctx, rem, dest)
	})
}

// withRetry runs fn with backoff between attempts. Transient failures retry
// until the policy is exhausted; permanent ones fail immediately.
func (r *Resolver) withRetry(ctx context.Context, rem Remote, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			r.recorder.IncFetchRetry(rem.Name)
			slog.Warn("Retrying source fetch",
				logfields.URL(rem.URL), slog.Int("attempt", attempt))
			if err := sleepContext(ctx, r.policy.Delay(attempt)); err != nil {
				return "", err
			}
		}
		path, err := fn()
		if err == nil {
			return path, nil
		}
		lastErr = err
		if !errors.IsRetryable(err) {
			return "", err
		}
	}
	return "", errors.Wrap(lastErr, errors.CategoryGit, errors.SeverityFatal,
		"source fetch failed after retries").
		WithContext("url", rem.URL).
		WithContext("retries", r.policy.MaxRetries)
}

func (r *Resolver) fetchOnce(ctx context.Context, rem Remote, dest string) (string, error) {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return r.update(ctx, rem, dest)
	}
	return r.clone(ctx, rem, dest)
}

func (r *Resolver) clone(ctx context.Context, rem Remote, dest string) (string, error) {
	// A dest without .git is a leftover from an aborted clone.
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("failed to clear clone destination: %w", err)
	}

	opts := &git.CloneOptions{
		URL:  rem.URL,
		Tags: git.NoTags,
	}
	if r.depth > 0 {
		opts.Depth = r.depth
	}
	if rem.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(rem.Branch)
		opts.SingleBranch = true
	}
	auth, err := authFor(rem.URL)
	if err != nil {
		return "", err
	}
	opts.Auth = auth

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return "", classifyGitError(rem.URL, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Source cloned",
			logfields.URL(rem.URL), logfields.Path(dest),
			slog.String("commit", shortCommit(ref.Hash())))
	} else {
		slog.Info("Source cloned", logfields.URL(rem.URL), logfields.Path(dest))
	}
	return dest, nil
}

// update brings an existing clone up to the remote. The cache copy is never
// edited locally, so divergence is resolved by resetting to the remote head.
func (r *Resolver) update(ctx context.Context, rem Remote, dest string) (string, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return "", fmt.Errorf("open cached clone: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	auth, err := authFor(rem.URL)
	if err != nil {
		return "", err
	}
	fetchOpts := &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		RefSpecs:   []gitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:       auth,
	}
	if r.depth > 0 {
		fetchOpts.Depth = r.depth
	}
	if err := repo.FetchContext(ctx, fetchOpts); err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", classifyGitError(rem.URL, err)
	}

	branch, err := targetBranch(repo, rem)
	if err != nil {
		return "", err
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return "", classifyGitError(rem.URL, fmt.Errorf("remote branch %q: %w", branch, err))
	}

	localName := plumbing.NewBranchReferenceName(branch)
	localRef, lerr := repo.Reference(localName, true)
	if lerr != nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: localName, Create: true, Force: true}); err != nil {
			return "", fmt.Errorf("checkout new branch: %w", err)
		}
		localRef, _ = repo.Reference(localName, true)
	} else {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: localName, Force: true}); err != nil {
			return "", fmt.Errorf("checkout branch: %w", err)
		}
	}

	if localRef != nil && localRef.Hash() == remoteRef.Hash() {
		slog.Debug("Source already up to date",
			logfields.URL(rem.URL), slog.String("branch", branch))
		return dest, nil
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("reset to remote: %w", err)
	}
	if localRef != nil {
		if ancestor, aerr := isAncestor(repo, localRef.Hash(), remoteRef.Hash()); aerr == nil && !ancestor {
			slog.Warn("Cached clone diverged from remote, reset",
				logfields.URL(rem.URL), slog.String("branch", branch))
			return dest, nil
		}
	}
	slog.Info("Source updated",
		logfields.URL(rem.URL), slog.String("branch", branch),
		slog.String("commit", shortCommit(remoteRef.Hash())))
	return dest, nil
}

// targetBranch picks the branch an update tracks: the pinned branch, the
// current HEAD branch, the remote default, then "main".
func targetBranch(repo *git.Repository, rem Remote) (string, error) {
	if rem.Branch != "" {
		return rem.Branch, nil
	}
	if headRef, err := repo.Head(); err == nil && headRef.Name().IsBranch() {
		return headRef.Name().Short(), nil
	}
	if ref, err := repo.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), false); err == nil && ref.Type() == plumbing.SymbolicReference {
		if name := ref.Target().String(); strings.HasPrefix(name, "refs/remotes/origin/") {
			return strings.TrimPrefix(name, "refs/remotes/origin/"), nil
		}
	}
	return "main", nil
}

// isAncestor walks b's history looking for a. Shallow history cuts the walk
// short; the caller treats an error as unknown.
func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}

// authFor builds the auth method for a clone URL. HTTPS uses a token from the
// environment when present; SSH loads the default key.
func authFor(url string) (transport.AuthMethod, error) {
	switch {
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		if token := gitToken(); token != "" {
			return &githttp.BasicAuth{Username: "token", Password: token}, nil
		}
		return nil, nil
	case strings.HasPrefix(url, "ssh://"), isSCPLike(url):
		keyPath := os.Getenv("DOCWEAVER_SSH_KEY")
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := gitssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryGit, errors.SeverityFatal,
				"failed to load SSH key").
				WithContext("key", keyPath)
		}
		return keys, nil
	default:
		return nil, nil
	}
}

func gitToken() string {
	if t := os.Getenv("DOCWEAVER_GIT_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GIT_TOKEN")
}

// classifyGitError maps go-git failures onto the error taxonomy. Permanent
// failures (auth, missing repos, bad protocols) fail fast; everything else
// is presumed transient and retryable.
func classifyGitError(url string, err error) error {
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") ||
		strings.Contains(l, "permission") || strings.Contains(l, "denied") ||
		strings.Contains(l, "invalid username or password"):
		return errors.Wrap(err, errors.CategoryGit, errors.SeverityFatal,
			"repository authentication failed").
			WithContext("repository", url)
	case strings.Contains(l, "not found") || strings.Contains(l, "does not exist") ||
		strings.Contains(l, "invalid reference") || strings.Contains(l, "couldn't find remote ref"):
		return errors.GitCloneError(url, err)
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		return errors.GitCloneError(url, err)
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		return errors.GitNetworkError(url, err)
	case strings.Contains(l, "timeout") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "remote hung up") || strings.Contains(l, "no route to host"):
		return errors.GitNetworkError(url, err)
	}
	var nerr net.Error
	if stderrors.As(err, &nerr) {
		if nerr.Timeout() {
			return errors.GitNetworkError(url, err)
		}
		return errors.GitCloneError(url, err)
	}
	// Unknown failures retry; a persistent one still fails after the policy
	// is exhausted.
	return errors.WrapRetryable(err, errors.CategoryGit, errors.SeverityWarning,
		"git operation failed").
		WithContext("repository", url)
}

func shortCommit(h plumbing.Hash) string {
	return h.String()[:8]
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
