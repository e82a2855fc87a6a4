// Package plugin implements the extension mechanism the pipeline is built
// around. Plugins contribute implementations to named extension points during
// initialization; once every plugin has run the registry is sealed, and the
// pipeline resolves the points it needs from the frozen registry.
package plugin

import (
	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Plugin is a unit of pipeline extension. Contribute is called exactly once,
// during the init-plugins stage, and must register everything the plugin
// provides.
type Plugin interface {
	// Metadata returns the plugin's identity (name, version, description).
	Metadata() Metadata

	// Contribute registers the plugin's extensions. Errors abort the run as
	// configuration errors.
	Contribute(reg *Registry) error
}

// Ordered lets a plugin constrain its initialization order relative to other
// plugins by name. Constraints naming unknown plugins are ignored.
type Ordered interface {
	MustRunAfter() []string
	MustRunBefore() []string
}

// Metadata describes a plugin's identity.
type Metadata struct {
	// Name is the unique plugin identifier (e.g., "docweaver.base").
	Name string

	// Version is the semantic version (e.g., "v1.0.0").
	Version string

	// Description provides a human-readable summary of the plugin's purpose.
	Description string
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return errors.Configuration("plugin name is required")
	}
	return nil
}

// Initialize runs every plugin's Contribute in dependency order and seals
// the registry. The base order is the order plugins were passed in; Ordered
// constraints reorder within it. A constraint cycle is a configuration
// error, as is any Contribute failure.
func Initialize(reg *Registry, plugins ...Plugin) error {
	byName := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		md := p.Metadata()
		if err := md.Validate(); err != nil {
			return err
		}
		if _, dup := byName[md.Name]; dup {
			return errors.Configuration("duplicate plugin name").
				WithContext("plugin", md.Name)
		}
		byName[md.Name] = p
	}

	ordered, err := orderPlugins(plugins)
	if err != nil {
		return err
	}

	for _, p := range ordered {
		name := p.Metadata().Name
		reg.setCurrent(name)
		if err := p.Contribute(reg); err != nil {
			reg.setCurrent("")
			return errors.WrapConfiguration(err, "plugin initialization failed").
				WithContext("plugin", name)
		}
	}
	reg.setCurrent("")
	reg.Seal()
	return nil
}

// orderPlugins performs dependency resolution using Kahn's algorithm. Ties
// keep declaration order, so an unconstrained plugin set initializes exactly
// as passed.
func orderPlugins(plugins []Plugin) ([]Plugin, error) {
	if len(plugins) <= 1 {
		return plugins, nil
	}

	index := make(map[string]int, len(plugins))
	for i, p := range plugins {
		index[p.Metadata().Name] = i
	}

	// Build adjacency list (dependencies graph)
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for _, p := range plugins {
		name := p.Metadata().Name
		if _, exists := graph[name]; !exists {
			graph[name] = []string{}
		}

		ord, ok := p.(Ordered)
		if !ok {
			continue
		}

		for _, dep := range ord.MustRunAfter() {
			if _, exists := index[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
			// Skip constraints on plugins that are not installed
		}
		for _, after := range ord.MustRunBefore() {
			if _, exists := index[after]; exists {
				graph[name] = append(graph[name], after)
				inDegree[after]++
			}
		}
	}

	// Kahn's algorithm, queue ordered by declaration index for determinism
	var queue []string
	for _, p := range plugins {
		name := p.Metadata().Name
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sortByIndex(queue, index)

	result := make([]Plugin, 0, len(plugins))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		result = append(result, plugins[index[current]])

		neighbors := graph[current]
		sortByIndex(neighbors, index)

		for _, neighbor := range neighbors {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sortByIndex(queue, index)
			}
		}
	}

	if len(result) != len(plugins) {
		var unresolved []string
		for _, p := range plugins {
			if deg := inDegree[p.Metadata().Name]; deg > 0 {
				unresolved = append(unresolved, p.Metadata().Name)
			}
		}
		return nil, errors.Configuration("circular dependency detected between plugins").
			WithContext("plugins", unresolved)
	}

	return result, nil
}

// sortByIndex sorts names in-place by declaration index.
func sortByIndex(names []string, index map[string]int) {
	for i := range len(names) - 1 {
		for j := i + 1; j < len(names); j++ {
			if index[names[i]] > index[names[j]] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
}
