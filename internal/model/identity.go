package model

import "strings"

// Identity names a declaration across every platform it appears on. Two
// declarations are the same logical entity exactly when their identities are
// equal, which makes Identity usable as a map key during merging.
//
// Path is a "/"-separated chain of enclosing names starting at the module,
// e.g. "mylib/com.example.collections/Deque/push". Signature disambiguates
// overloads that share a path; it is empty for everything that cannot be
// overloaded.
type Identity struct {
	Path      string
	Signature string
}

// RootIdentity returns the identity of a module root.
func RootIdentity(module string) Identity {
	return Identity{Path: module}
}

// Child returns the identity of a member named name nested under id.
func (id Identity) Child(name string) Identity {
	if id.Path == "" {
		return Identity{Path: name}
	}
	return Identity{Path: id.Path + "/" + name}
}

// WithSignature returns a copy of id carrying the given overload
// discriminator.
func (id Identity) WithSignature(signature string) Identity {
	id.Signature = signature
	return id
}

// Leaf returns the last path segment, the declaration's own name.
func (id Identity) Leaf() string {
	if i := strings.LastIndexByte(id.Path, '/'); i >= 0 {
		return id.Path[i+1:]
	}
	return id.Path
}

// IsZero reports whether id carries no information.
func (id Identity) IsZero() bool {
	return id.Path == "" && id.Signature == ""
}

func (id Identity) String() string {
	if id.Signature == "" {
		return id.Path
	}
	return id.Path + "#" + id.Signature
}
