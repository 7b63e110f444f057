package css

import "fmt"

// Specificity represents CSS specificity as (IDs, classes/attributes, type names).
type Specificity struct {
	IDs     int // #id selectors
	Classes int // .class and [attr] selectors
	Types   int // element names, '*' does not count
}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
func (s Specificity) Compare(other Specificity) int {
	switch {
	case s.IDs != other.IDs:
		return sign(s.IDs - other.IDs)
	case s.Classes != other.Classes:
		return sign(s.Classes - other.Classes)
	case s.Types != other.Types:
		return sign(s.Types - other.Types)
	}
	return 0
}

// Less reports whether s sorts strictly before other.
func (s Specificity) Less(other Specificity) bool {
	return s.Compare(other) < 0
}

func (s Specificity) add(other Specificity) Specificity {
	return Specificity{
		IDs:     s.IDs + other.IDs,
		Classes: s.Classes + other.Classes,
		Types:   s.Types + other.Types,
	}
}

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.IDs, s.Classes, s.Types)
}

// Specificity of a single compound selector.
func (s SimpleSelector) Specificity() Specificity {
	spec := Specificity{Classes: len(s.Classes) + len(s.Attrs)}
	if s.ID != "" {
		spec.IDs = 1
	}
	if s.Tag != "" {
		spec.Types = 1
	}
	return spec
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
