// Package extdocs resolves references into externally hosted documentation.
// Each configured site publishes a package-list file naming the packages it
// documents. The resolver downloads those lists once per run and answers to
// which site a dot-qualified reference belongs.
package extdocs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
)

const (
	// packageListFile is the well-known index name, appended to the site
	// URL when no explicit package list URL is configured.
	packageListFile = "package-list"

	userAgent = "docweaver-extdocs/1.0"

	// maxListSize caps how much of a package list is read. Real lists are
	// a few kilobytes.
	maxListSize = 1 << 20
)

type site struct {
	baseURL  string
	packages map[string]struct{}
}

// Resolver maps package names to the external site documenting them. The
// zero value and nil resolve nothing.
type Resolver struct {
	sites []site
}

// NewResolver returns an empty resolver. Offline runs use it so page
// generation never has to special-case a missing resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Fetch downloads the package list of every configured site. A site whose
// list cannot be fetched or parsed is reported as a warning diagnostic and
// skipped; the returned resolver is always usable.
func Fetch(ctx context.Context, client *http.Client, entries []config.ExternalDocumentation, reporter diag.Reporter) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Resolver{}
	for _, entry := range entries {
		packages, err := fetchPackageList(ctx, client, listURL(entry))
		if err != nil {
			if reporter != nil {
				reporter.Report(diag.SeverityWarning,
					fmt.Sprintf("external documentation %s unavailable: %v", entry.URL, err), nil)
			}
			continue
		}
		r.sites = append(r.sites, site{baseURL: normalizeBase(entry.URL), packages: packages})
	}
	return r
}

// listURL returns the configured package list location, defaulting to the
// well-known name under the site URL.
func listURL(entry config.ExternalDocumentation) string {
	if entry.PackageListURL != "" {
		return entry.PackageListURL
	}
	return normalizeBase(entry.URL) + packageListFile
}

func normalizeBase(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func fetchPackageList(ctx context.Context, client *http.Client, url string) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return parsePackageList(data), nil
}

// parsePackageList reads the package-list format: one package per line,
// with "$"-prefixed metadata lines and "module:" lines ignored.
func parsePackageList(data []byte) map[string]struct{} {
	packages := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "$") || strings.HasPrefix(line, "module:") {
			continue
		}
		packages[line] = struct{}{}
	}
	return packages
}

// Sites returns the number of sites with a loaded package list.
func (r *Resolver) Sites() int {
	if r == nil {
		return 0
	}
	return len(r.sites)
}

// ResolvePackage returns the documentation URL for pkg on whichever
// configured site lists it. Sites are consulted in configuration order.
func (r *Resolver) ResolvePackage(pkg string) (string, bool) {
	if r == nil || pkg == "" {
		return "", false
	}
	for _, s := range r.sites {
		if _, ok := s.packages[pkg]; ok {
			return s.baseURL + pkg + "/", true
		}
	}
	return "", false
}

// ResolveReference resolves a dot-qualified reference such as
// "kotlin.collections.List". The longest leading package any site lists
// wins; the returned URL points at that package's documentation.
func (r *Resolver) ResolveReference(ref string) (string, bool) {
	if r == nil || ref == "" {
		return "", false
	}
	segs := strings.Split(ref, ".")
	for end := len(segs); end > 0; end-- {
		if url, ok := r.ResolvePackage(strings.Join(segs[:end], ".")); ok {
			return url, true
		}
	}
	return "", false
}
