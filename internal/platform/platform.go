// Package platform identifies analysis targets. A PlatformData value names one
// configured pass (platform name, kind, logical sub-targets) and is used as the
// map key for every per-platform lookup in the documentation model, so it must
// stay comparable.
package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies the runtime family a pass targets.
type Kind string

const (
	KindNative Kind = "native"
	KindJVM    Kind = "jvm"
	KindJS     Kind = "js"
	KindWasm   Kind = "wasm"
	KindCommon Kind = "common"
)

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindNative:
		return KindNative, nil
	case KindJVM:
		return KindJVM, nil
	case KindJS:
		return KindJS, nil
	case KindWasm:
		return KindWasm, nil
	case KindCommon:
		return KindCommon, nil
	}
	return "", fmt.Errorf("unknown platform kind %q", s)
}

// PlatformData is the identity of one analysis target. The sub-target set is
// normalized into a single sorted "+"-joined string so the struct keeps value
// equality and can key maps directly.
type PlatformData struct {
	Name    string
	Kind    Kind
	Targets string
}

// New builds a PlatformData with a normalized sub-target set.
func New(name string, kind Kind, targets []string) PlatformData {
	return PlatformData{Name: name, Kind: kind, Targets: normalizeTargets(targets)}
}

func normalizeTargets(targets []string) string {
	if len(targets) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(targets))
	cleaned := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		cleaned = append(cleaned, t)
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, "+")
}

// TargetList splits the normalized sub-target string back into its parts.
func (p PlatformData) TargetList() []string {
	if p.Targets == "" {
		return nil
	}
	return strings.Split(p.Targets, "+")
}

// String renders a compact identity like "jvm(jvm):jvm8+jvm11".
func (p PlatformData) String() string {
	if p.Targets == "" {
		return fmt.Sprintf("%s(%s)", p.Name, p.Kind)
	}
	return fmt.Sprintf("%s(%s):%s", p.Name, p.Kind, p.Targets)
}

// Sort orders platforms by name, then kind, then targets. Used wherever a
// deterministic platform order is rendered (content tabs, log lines).
func Sort(platforms []PlatformData) {
	sort.Slice(platforms, func(i, j int) bool {
		if platforms[i].Name != platforms[j].Name {
			return platforms[i].Name < platforms[j].Name
		}
		if platforms[i].Kind != platforms[j].Kind {
			return platforms[i].Kind < platforms[j].Kind
		}
		return platforms[i].Targets < platforms[j].Targets
	})
}
