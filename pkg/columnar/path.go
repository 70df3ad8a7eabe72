package columnar

import (
	"strings"

	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// ComponentKind discriminates path components. The numeric order is part of
// the persisted layout: keys sort before array markers.
type ComponentKind uint8

const (
	ComponentKey ComponentKind = iota
	ComponentArray
)

// Component is one step of a Path: an object key or one level of array
// nesting. Array components carry no element index.
type Component struct {
	Kind ComponentKind
	Name string
}

// Key returns a key component
func Key(name string) Component { return Component{Kind: ComponentKey, Name: name} }

// ArrayElem is the array element component
var ArrayElem = Component{Kind: ComponentArray}

// Compare orders components: keys by byte-wise name, keys before arrays.
func (c Component) Compare(o Component) int {
	if c.Kind != o.Kind {
		if c.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if c.Kind == ComponentArray {
		return 0
	}
	return strings.Compare(c.Name, o.Name)
}

func (c Component) String() string {
	if c.Kind == ComponentArray {
		return "[]"
	}
	return c.Name
}

// Path identifies a column. The empty path is the root of each record.
type Path []Component

// NewPath builds a path from components
func NewPath(components ...Component) Path {
	return Path(components)
}

// Child returns a new path extended by c. The receiver is never aliased.
func (p Path) Child(c Component) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, c)
}

// Depth is the number of array components in p
func (p Path) Depth() int {
	n := 0
	for _, c := range p {
		if c.Kind == ComponentArray {
			n++
		}
	}
	return n
}

// Compare is the total order over paths: component-wise, with a strict
// prefix sorting before its extensions.
func (p Path) Compare(o Path) int {
	for i := 0; i < len(p) && i < len(o); i++ {
		if c := p[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p) < len(o):
		return -1
	case len(p) > len(o):
		return 1
	default:
		return 0
	}
}

// Equal reports whether p and o are the same path
func (p Path) Equal(o Path) bool {
	return p.Compare(o) == 0
}

// String renders the path with '.' separators and "[]" for arrays. The root
// renders as "$". Keys containing '.' or named "[]" do not round-trip through
// ParsePath.
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses the rendering produced by String
func ParsePath(s string) (Path, error) {
	if s == "$" || s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "":
			return nil, errors.New(errors.ErrorTypeValidation, "empty path component").
				WithDetail("path", s)
		case "[]":
			p = append(p, ArrayElem)
		default:
			p = append(p, Key(part))
		}
	}
	return p, nil
}
