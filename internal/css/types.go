package css

import (
	"strings"

	"go.uber.org/multierr"
)

// Combinator joins a compound selector to the one on its right.
type Combinator int

const (
	CombinatorNone            Combinator = iota // key selector, rightmost part
	CombinatorDescendant                        // "A B"
	CombinatorChild                             // "A > B"
	CombinatorAdjacentSibling                   // "A + B"
)

func (c Combinator) String() string {
	switch c {
	case CombinatorDescendant:
		return " "
	case CombinatorChild:
		return " > "
	case CombinatorAdjacentSibling:
		return " + "
	}
	return ""
}

// AttrOp is the operator of an attribute test.
type AttrOp int

const (
	AttrPresent AttrOp = iota // [name]
	AttrEquals                // [name=value]
)

// AttrTest is a single [name] or [name=value] test.
type AttrTest struct {
	Name  string // lower-cased
	Op    AttrOp
	Value string
}

// SimpleSelector is a compound selector: all of its tests must pass.
type SimpleSelector struct {
	Tag       string // lower-cased type name, empty when absent
	Universal bool
	ID        string
	Classes   []string
	Attrs     []AttrTest
}

// Part is one compound of a selector chain together with the combinator
// that joins it to the next part on the right.
type Part struct {
	Simple     SimpleSelector
	Combinator Combinator
}

// Selector is a parsed complex selector, parts ordered left to right.
// The last part is the key selector and carries CombinatorNone.
type Selector struct {
	Text        string
	Parts       []Part
	Specificity Specificity
}

// Key returns the rightmost compound, the one tested against the candidate element.
func (s Selector) Key() SimpleSelector {
	return s.Parts[len(s.Parts)-1].Simple
}

// Declaration is a single property declaration kept as written in source.
type Declaration struct {
	Lead       string // whitespace preceding the property name
	Property   string // property name as written
	Gap        string // whitespace between the name and the colon
	Value      string // everything after the colon, verbatim
	Terminated bool   // followed by a semicolon in source
}

// Key is the name used to compare declarations, property names are case-insensitive.
func (d Declaration) Key() string {
	return strings.ToLower(d.Property)
}

// Text returns the declaration without leading whitespace or terminator.
func (d Declaration) Text() string {
	return d.Property + d.Gap + ":" + d.Value
}

// DeclarationBlock is an ordered list of declarations, duplicates allowed.
type DeclarationBlock []Declaration

// String renders the block as it would appear in a style attribute.
func (b DeclarationBlock) String() string {
	var sb strings.Builder
	for i, d := range b {
		if i > 0 {
			if !b[i-1].Terminated {
				sb.WriteByte(';')
			}
			sb.WriteString(d.Lead)
		}
		sb.WriteString(d.Text())
		if d.Terminated {
			sb.WriteByte(';')
		}
	}
	return strings.TrimSpace(sb.String())
}

// Rule represents a single qualified rule with its selector list and declarations
type Rule struct {
	Text         string // selector list as written
	Selectors    []Selector
	Declarations DeclarationBlock
	SourceOrder  int    // strictly increasing across one stylesheet
	Media        string // condition of the enclosing media block, empty at top level
}

// Stylesheet represents the complete parsed CSS.
type Stylesheet struct {
	// Rules holds the rules to inline, in source order.
	Rules []Rule
	// Conditional holds rules found inside allowed media blocks. They are
	// accounted for in source order but never inlined.
	Conditional []Rule
	// Preserved holds at-rule text to be re-emitted verbatim in a <style> element.
	Preserved []string
	// Issues combines every recoverable problem found while parsing.
	Issues error
}

// Warnings splits Issues into individual errors.
func (s *Stylesheet) Warnings() []error {
	return multierr.Errors(s.Issues)
}

// PreservedCSS joins the preserved fragments for a <style> element.
func (s *Stylesheet) PreservedCSS() string {
	return strings.Join(s.Preserved, "\n")
}

// Empty reports whether the stylesheet carries nothing to inline or preserve.
func (s *Stylesheet) Empty() bool {
	return len(s.Rules) == 0 && len(s.Preserved) == 0
}
