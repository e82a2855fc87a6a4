// Package linkcheck verifies that external links written in documentation
// still resolve. Links are collected from the documentation markdown of a
// merged model, verified over HTTP with per-URL caching, and every broken
// link surfaces both as a report finding and, when NATS is configured, as
// an event on the configured subject.
//
// Checking is advisory: a broken link never fails the documentation run by
// itself. Callers fold findings into the run's diagnostics and apply their
// own pass/fail policy.
package linkcheck

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/model"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
	userAgent          = "docweaver-linkcheck/1.0"
)

// Checker verifies external documentation links. A Checker is reusable
// across runs; the daemon keeps one alive so its cache spans rebuilds.
type Checker struct {
	cfg         *config.LinkCheckConfig
	cache       ResultCache
	publisher   Publisher
	httpClient  *http.Client
	sem         chan struct{}
	concurrency int

	mu      sync.Mutex
	running bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.httpClient = client }
}

// WithCache replaces the result cache. When set, no NATS connection is
// opened even if one is configured.
func WithCache(cache ResultCache) Option {
	return func(c *Checker) { c.cache = cache }
}

// WithPublisher sets the broken-link event publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Checker) { c.publisher = p }
}

// WithConcurrency bounds parallel link checks.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Checker for the given configuration. With a NATS URL
// configured the result cache and event publisher are backed by JetStream;
// otherwise results cache in memory and events have nowhere to go.
func New(cfg *config.LinkCheckConfig, opts ...Option) (*Checker, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New(errors.CategoryLinkCheck, errors.SeverityError,
			"link checking is disabled")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}

	// The cloned default transport keeps HTTP_PROXY, HTTPS_PROXY and
	// NO_PROXY support.
	transport := http.DefaultTransport.(*http.Transport).Clone()

	c := &Checker{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout, Transport: transport},
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		if cfg.NATS.URL != "" {
			nc, err := NewNATSCache(cfg.NATS)
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryLinkCheck, errors.SeverityError,
					"failed to connect link cache")
			}
			c.cache = nc
			if c.publisher == nil {
				c.publisher = nc
			}
		} else {
			c.cache = NewMemoryCache(0, 0)
		}
	}
	c.sem = make(chan struct{}, c.concurrency)
	return c, nil
}

// Finding is one broken link, attributed to the declaration whose
// documentation carries it.
type Finding struct {
	URL       string
	Status    int // HTTP status, 0 for non-HTTP failures
	Reason    string
	Source    string // identity of the documented declaration
	Platform  string
	Line      int
	FromCache bool
}

// Diagnostic renders the finding as a run diagnostic.
func (f Finding) Diagnostic() diag.Diagnostic {
	msg := fmt.Sprintf("broken link %s in %s", f.URL, f.Source)
	if f.Reason != "" {
		msg += ": " + f.Reason
	}
	return diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Message:  msg,
		Platform: f.Platform,
	}
}

// Report summarizes one link check.
type Report struct {
	Links     int // distinct URLs checked
	Skipped   int // links not eligible for HTTP checking
	FromCache int // URLs answered from the result cache
	Findings  []Finding
}

// Broken returns the number of broken-link findings.
func (r *Report) Broken() int { return len(r.Findings) }

// Diagnostics renders every finding as a run diagnostic.
func (r *Report) Diagnostics() []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.Diagnostic()
	}
	return out
}

// Check collects the external links of the model and verifies each distinct
// URL once, concurrently and bounded. Findings come back ordered by URL and
// source so repeated checks of the same model report identically.
func (c *Checker) Check(ctx context.Context, root *model.Documentable, runID string) (*Report, error) {
	if root == nil {
		return &Report{}, nil
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, stderrors.New("link check already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	all := CollectLinks(root)
	checkable := CheckableLinks(all)

	byURL := make(map[string][]*Link)
	var order []string
	for _, l := range checkable {
		if _, ok := byURL[l.URL]; !ok {
			order = append(order, l.URL)
		}
		byURL[l.URL] = append(byURL[l.URL], l)
	}

	slog.Info("Link check started",
		logfields.Module(root.Name), logfields.Count(len(order)))

	rep := &Report{Links: len(order), Skipped: len(all) - len(checkable)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, rawURL := range order {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case c.sem <- struct{}{}:
		}
		wg.Add(1)
		go func(rawURL string) {
			defer wg.Done()
			defer func() { <-c.sem }()

			entry, fromCache := c.checkURL(ctx, rawURL)
			sources := byURL[rawURL]

			mu.Lock()
			if fromCache {
				rep.FromCache++
			}
			if !entry.Valid {
				for _, src := range sources {
					rep.Findings = append(rep.Findings, Finding{
						URL:       rawURL,
						Status:    entry.Status,
						Reason:    entry.Error,
						Source:    src.Source,
						Platform:  src.Platform,
						Line:      src.Line,
						FromCache: fromCache,
					})
				}
			}
			mu.Unlock()

			if !entry.Valid {
				slog.Warn("Broken link detected",
					logfields.URL(rawURL),
					slog.String("source", sources[0].Source),
					slog.Int("status", entry.Status),
					slog.String("reason", entry.Error))
				c.publishBroken(ctx, root.Name, runID, entry, sources)
			}
		}(rawURL)
	}
	wg.Wait()

	sort.Slice(rep.Findings, func(i, j int) bool {
		if rep.Findings[i].URL != rep.Findings[j].URL {
			return rep.Findings[i].URL < rep.Findings[j].URL
		}
		return rep.Findings[i].Source < rep.Findings[j].Source
	})

	slog.Info("Link check completed",
		logfields.Module(root.Name),
		logfields.Count(rep.Links),
		slog.Int("broken", rep.Broken()),
		slog.Int("cached", rep.FromCache))
	return rep, nil
}

// checkURL answers one URL from the cache when fresh, otherwise verifies it
// and updates the cache with failure tracking carried over from the previous
// entry.
func (c *Checker) checkURL(ctx context.Context, rawURL string) (entry *Entry, fromCache bool) {
	cached, err := c.cache.Get(ctx, rawURL)
	if err != nil && !stderrors.Is(err, ErrCacheMiss) {
		slog.Debug("Link cache lookup failed", logfields.URL(rawURL), logfields.Error(err))
	}
	if cached != nil && c.cache.Fresh(cached) {
		return cached, true
	}

	status, verifyErr := c.verify(ctx, rawURL)
	entry = &Entry{
		URL:         rawURL,
		Status:      status,
		Valid:       verifyErr == nil,
		LastChecked: time.Now(),
	}
	if verifyErr != nil {
		entry.Error = verifyErr.Error()
		trackFailure(entry, cached)
	}
	if err := c.cache.Put(ctx, entry); err != nil {
		slog.Warn("Failed to update link cache", logfields.URL(rawURL), logfields.Error(err))
	}
	return entry, false
}

// trackFailure carries the failure streak over from the previous entry.
// Valid entries store a zero count, so a fresh failure starts at one.
func trackFailure(entry, previous *Entry) {
	if previous != nil {
		entry.FailureCount = previous.FailureCount + 1
		entry.FirstFailedAt = previous.FirstFailedAt
	} else {
		entry.FailureCount = 1
	}
	if entry.FirstFailedAt.IsZero() {
		entry.FirstFailedAt = time.Now()
	}
	entry.ConsecutiveFail = true
}

// verify checks one URL. Plain URLs get an endpoint check; URLs with a
// fragment are fetched and their HTML scanned for a matching anchor.
func (c *Checker) verify(ctx context.Context, rawURL string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Fragment != "" {
		return c.verifyFragment(ctx, u)
	}
	return c.verifyEndpoint(ctx, rawURL)
}

// verifyEndpoint issues a HEAD request and falls back to GET when the HEAD
// status is inconclusive, since many servers mishandle HEAD.
func (c *Checker) verifyEndpoint(ctx context.Context, rawURL string) (int, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	drain(resp)
	if headConclusive(resp.StatusCode) {
		return resp.StatusCode, nil
	}

	resp, err = c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return 0, err
	}
	drain(resp)
	if acceptable(resp.StatusCode) {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
}

// verifyFragment fetches the page and scans it for an anchor matching the
// fragment. Pages behind auth walls and non-HTML responses pass unscanned.
func (c *Checker) verifyFragment(ctx context.Context, u *url.URL) (int, error) {
	fragment := u.Fragment
	base := *u
	base.Fragment = ""

	resp, err := c.do(ctx, http.MethodGet, base.String())
	if err != nil {
		return 0, err
	}
	status := resp.StatusCode
	if !acceptable(status) {
		drain(resp)
		return status, fmt.Errorf("HTTP %d: %s", status, resp.Status)
	}
	if status >= 400 {
		drain(resp)
		return status, nil
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		drain(resp)
		return status, nil
	}

	found, err := hasAnchor(resp.Body, fragment)
	_ = resp.Body.Close()
	if err != nil {
		return status, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if !found {
		return status, fmt.Errorf("anchor %q not found", fragment)
	}
	return status, nil
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// drain discards the body so the connection can be reused, then closes it.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// headConclusive reports whether a HEAD status decides the check without a
// GET. Auth walls and rate limits stay conclusive because GET would hit the
// same wall.
func headConclusive(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return status < 400
}

// acceptable reports whether a final status counts as a working link. Auth
// and rate-limit statuses mean the URL exists but cannot be probed
// anonymously.
func acceptable(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusMethodNotAllowed, http.StatusTooManyRequests:
		return true
	}
	return status < 400
}

// hasAnchor reports whether the HTML contains an element with the given id,
// or an <a name=...> matching it.
func hasAnchor(r io.Reader, fragment string) (bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return false, err
	}
	var found bool
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Val != fragment {
					continue
				}
				if attr.Key == "id" || (attr.Key == "name" && n.Data == "a") {
					found = true
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)
	return found, nil
}

func (c *Checker) publishBroken(ctx context.Context, module, runID string, entry *Entry, sources []*Link) {
	if c.publisher == nil {
		return
	}
	for _, src := range sources {
		event := &BrokenLinkEvent{
			URL:           entry.URL,
			Status:        entry.Status,
			Error:         entry.Error,
			Module:        module,
			Source:        src.Source,
			Platform:      src.Platform,
			Text:          src.Text,
			Line:          src.Line,
			LastChecked:   entry.LastChecked,
			FailureCount:  entry.FailureCount,
			FirstFailedAt: entry.FirstFailedAt,
			RunID:         runID,
		}
		if err := c.publisher.PublishBroken(ctx, event); err != nil {
			slog.Error("Failed to publish broken link event",
				logfields.URL(entry.URL), logfields.Error(err))
		}
	}
}

// Close releases the cache and any NATS connection behind it.
func (c *Checker) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
