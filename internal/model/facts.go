package model

import "strings"

// Visibility is the declared access level of a symbol on one platform.
type Visibility string

// Known visibility levels. The zero value means the front end did not report
// one.
const (
	VisibilityUnspecified Visibility = ""
	VisibilityPublic      Visibility = "public"
	VisibilityProtected   Visibility = "protected"
	VisibilityInternal    Visibility = "internal"
	VisibilityPrivate     Visibility = "private"
)

// ParseVisibility maps a front-end visibility string onto a known level.
// Unknown strings come back unchanged so they survive round trips.
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return VisibilityPublic
	case "protected":
		return VisibilityProtected
	case "internal":
		return VisibilityInternal
	case "private":
		return VisibilityPrivate
	case "":
		return VisibilityUnspecified
	default:
		return Visibility(s)
	}
}

// Deprecation records that a declaration is deprecated on some platform.
type Deprecation struct {
	Message     string
	ReplaceWith string
}

// SourceLocation points at the declaration site in the analyzed sources.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// Annotation is a marker the front end attached to a declaration.
type Annotation struct {
	Name   string
	Params map[string]string
}

// Facts is the platform-variant slice of a declaration: everything that may
// legitimately differ between platforms sharing the same identity.
type Facts struct {
	Documentation string
	Signature     string
	Visibility    Visibility
	Deprecation   *Deprecation
	Location      *SourceLocation
	Annotations   []Annotation
}

// IsZero reports whether no field of f carries information.
func (f Facts) IsZero() bool {
	return f.Documentation == "" &&
		f.Signature == "" &&
		f.Visibility == VisibilityUnspecified &&
		f.Deprecation == nil &&
		f.Location == nil &&
		len(f.Annotations) == 0
}

// Clone returns a deep copy of f.
func (f Facts) Clone() Facts {
	out := f
	if f.Deprecation != nil {
		d := *f.Deprecation
		out.Deprecation = &d
	}
	if f.Location != nil {
		l := *f.Location
		out.Location = &l
	}
	if len(f.Annotations) > 0 {
		out.Annotations = make([]Annotation, len(f.Annotations))
		for i, a := range f.Annotations {
			out.Annotations[i] = a
			if len(a.Params) > 0 {
				params := make(map[string]string, len(a.Params))
				for k, v := range a.Params {
					params[k] = v
				}
				out.Annotations[i].Params = params
			}
		}
	}
	return out
}

// UnionFacts combines two facts for the same identity and platform. Fields
// set on first win; fields first leaves empty are filled from second. The
// result is detached from both inputs.
func UnionFacts(first, second Facts) Facts {
	out := first.Clone()
	if out.Documentation == "" {
		out.Documentation = second.Documentation
	}
	if out.Signature == "" {
		out.Signature = second.Signature
	}
	if out.Visibility == VisibilityUnspecified {
		out.Visibility = second.Visibility
	}
	if out.Deprecation == nil && second.Deprecation != nil {
		d := *second.Deprecation
		out.Deprecation = &d
	}
	if out.Location == nil && second.Location != nil {
		l := *second.Location
		out.Location = &l
	}
	if len(out.Annotations) == 0 && len(second.Annotations) > 0 {
		out.Annotations = second.Clone().Annotations
	}
	return out
}
