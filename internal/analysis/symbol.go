package analysis

// SymbolGroup is one package's worth of analyzed declarations.
type SymbolGroup struct {
	// Package is the fully qualified package name, e.g.
	// "kotlinx.coroutines.flow".
	Package string `json:"package"`

	Symbols []Symbol `json:"symbols,omitempty"`
}

// Symbol is one declaration as reported by a front end. Members nest:
// classlike symbols carry their functions and properties, enums their
// entries.
type Symbol struct {
	Name          string       `json:"name"`
	Kind          string       `json:"kind"`
	Signature     string       `json:"signature,omitempty"`
	Documentation string       `json:"documentation,omitempty"`
	Visibility    string       `json:"visibility,omitempty"`
	Deprecation   *Deprecation `json:"deprecation,omitempty"`
	Location      *Location    `json:"location,omitempty"`
	Annotations   []Annotation `json:"annotations,omitempty"`
	Members       []Symbol     `json:"members,omitempty"`
}

// Deprecation marks a symbol scheduled for removal.
type Deprecation struct {
	Message     string `json:"message,omitempty"`
	ReplaceWith string `json:"replaceWith,omitempty"`
}

// Location points at the declaration site.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Annotation is a marker attached to a declaration.
type Annotation struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// SourceFile is a standalone documentation file surfaced by a pass.
type SourceFile struct {
	Path string
}
