package plugin

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Cardinality says how many contributions an extension point accepts at
// resolution time.
type Cardinality int

const (
	// Single points must resolve to exactly one contribution.
	Single Cardinality = iota
	// Multi points accept any number of contributions, including zero.
	Multi
)

func (c Cardinality) String() string {
	if c == Single {
		return "single"
	}
	return "multi"
}

// Point identifies an extension point. Points are plain values so plugins
// can reference them without importing each other.
type Point struct {
	Name        string
	Cardinality Cardinality
}

// Contribution pairs a registered implementation with the plugin that
// contributed it.
type Contribution struct {
	Impl   any
	Plugin string
}

// Registry holds extension point contributions. Registration happens during
// plugin initialization; afterwards the registry is sealed and becomes
// read-only. Resolution order per point equals contribution order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string][]Contribution
	points  map[string]Point
	sealed  bool
	current string
}

// NewRegistry creates a new empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string][]Contribution),
		points:  make(map[string]Point),
	}
}

// Register adds a contribution to the given point. It fails once the
// registry is sealed, and when the point was previously seen with a
// different cardinality.
func (r *Registry) Register(p Point, impl any) error {
	if impl == nil {
		return errors.Configuration("cannot register nil extension").
			WithContext("point", p.Name)
	}
	if p.Name == "" {
		return errors.Configuration("extension point name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Configuration("registry is sealed, registration is only allowed during plugin initialization").
			WithContext("point", p.Name).
			WithContext("plugin", r.current)
	}
	if known, ok := r.points[p.Name]; ok && known.Cardinality != p.Cardinality {
		return errors.Configuration("extension point registered with conflicting cardinality").
			WithContext("point", p.Name)
	}

	r.points[p.Name] = p
	r.entries[p.Name] = append(r.entries[p.Name], Contribution{Impl: impl, Plugin: r.current})
	return nil
}

// Seal freezes the registry. Further Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the registry has been frozen.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// setCurrent records the plugin whose Contribute call is in progress, for
// contribution attribution.
func (r *Registry) setCurrent(plugin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = plugin
}

// ResolveSingle returns the one contribution registered for a Single point.
// Zero contributions or more than one is a configuration error.
func (r *Registry) ResolveSingle(p Point) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p.Cardinality != Single {
		return nil, errors.Configuration("ResolveSingle called on a multi-cardinality point").
			WithContext("point", p.Name)
	}

	entries := r.entries[p.Name]
	switch len(entries) {
	case 0:
		return nil, errors.ExtensionMissing(p.Name)
	case 1:
		return entries[0].Impl, nil
	default:
		plugins := make([]string, 0, len(entries))
		for _, e := range entries {
			plugins = append(plugins, e.Plugin)
		}
		return nil, errors.ExtensionAmbiguous(p.Name, len(entries)).
			WithContext("plugins", plugins)
	}
}

// ResolveAll returns every contribution registered for a point, in
// contribution order. An empty slice is valid for Multi points.
func (r *Registry) ResolveAll(p Point) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[p.Name]
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.Impl
	}
	return out
}

// Contributions returns the contributions for a point together with their
// contributing plugin names. Used by inspection tooling.
func (r *Registry) Contributions(p Point) []Contribution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Contribution, len(r.entries[p.Name]))
	copy(out, r.entries[p.Name])
	return out
}

// Points returns every point that received at least one contribution,
// sorted by name.
func (r *Registry) Points() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Point, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SingleOf resolves a Single point and asserts the contribution to T.
func SingleOf[T any](r *Registry, p Point) (T, error) {
	var zero T
	impl, err := r.ResolveSingle(p)
	if err != nil {
		return zero, err
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, errors.Configuration("extension does not implement the point's contract").
			WithContext("point", p.Name)
	}
	return typed, nil
}

// AllOf resolves a Multi point and asserts every contribution to T,
// preserving contribution order.
func AllOf[T any](r *Registry, p Point) ([]T, error) {
	impls := r.ResolveAll(p)
	out := make([]T, 0, len(impls))
	for _, impl := range impls {
		typed, ok := impl.(T)
		if !ok {
			return nil, errors.Configuration("extension does not implement the point's contract").
				WithContext("point", p.Name)
		}
		out = append(out, typed)
	}
	return out, nil
}
