package pipeline

import (
	"sync"

	"git.home.luguber.info/inful/docweaver/internal/extdocs"
)

// ExternalDocs hands the page translator an external-documentation resolver
// that only exists once platform setup has fetched the configured package
// lists. Construct one, share it with the plugins building the page
// translator, and pass it to the runner via WithExternalDocs; the setup
// stage fills it.
type ExternalDocs struct {
	mu sync.RWMutex
	r  *extdocs.Resolver
}

func NewExternalDocs() *ExternalDocs { return &ExternalDocs{} }

func (e *ExternalDocs) set(r *extdocs.Resolver) {
	e.mu.Lock()
	e.r = r
	e.mu.Unlock()
}

// ResolveReference resolves a dot-qualified reference against the fetched
// sites. Before setup has run (or when fetching was skipped) nothing
// resolves.
func (e *ExternalDocs) ResolveReference(ref string) (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.r == nil {
		return "", false
	}
	return e.r.ResolveReference(ref)
}

// Sites returns the number of resolvable external sites.
func (e *ExternalDocs) Sites() int {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.r.Sites()
}
