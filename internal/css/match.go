package css

import (
	"slices"
	"strings"
)

// Element is the read-only view of a document element the matcher needs.
// ParentElement and PrevElementSibling return nil when there is no such element.
type Element interface {
	TagName() string
	Attr(name string) (string, bool)
	ParentElement() Element
	PrevElementSibling() Element
}

// Matches reports whether every test of the compound selector passes against e.
func (s SimpleSelector) Matches(e Element) bool {
	if s.Tag != "" && !strings.EqualFold(s.Tag, e.TagName()) {
		return false
	}
	if s.ID != "" {
		if id, ok := e.Attr("id"); !ok || id != s.ID {
			return false
		}
	}
	if len(s.Classes) > 0 {
		class, ok := e.Attr("class")
		if !ok {
			return false
		}
		tokens := strings.Fields(class)
		for _, want := range s.Classes {
			if !slices.Contains(tokens, want) {
				return false
			}
		}
	}
	for _, a := range s.Attrs {
		v, ok := e.Attr(a.Name)
		if !ok || (a.Op == AttrEquals && v != a.Value) {
			return false
		}
	}
	return true
}

// Matches reports whether the selector matches e. Evaluation runs right to
// left: the key compound must match e, then each combinator is walked toward
// the root.
func (s Selector) Matches(e Element) bool {
	if e == nil || len(s.Parts) == 0 {
		return false
	}
	last := len(s.Parts) - 1
	if !s.Parts[last].Simple.Matches(e) {
		return false
	}
	return s.matchLeft(last-1, e)
}

// matchLeft checks parts[0..i] against the context of e, where e already
// matched parts[i+1].
func (s Selector) matchLeft(i int, e Element) bool {
	if i < 0 {
		return true
	}
	part := s.Parts[i]

	switch part.Combinator {
	case CombinatorChild:
		parent := e.ParentElement()
		return parent != nil && part.Simple.Matches(parent) && s.matchLeft(i-1, parent)

	case CombinatorAdjacentSibling:
		prev := e.PrevElementSibling()
		return prev != nil && part.Simple.Matches(prev) && s.matchLeft(i-1, prev)

	case CombinatorDescendant:
		// try every ancestor, a nearer match may fail further left where a farther one succeeds
		for anc := e.ParentElement(); anc != nil; anc = anc.ParentElement() {
			if part.Simple.Matches(anc) && s.matchLeft(i-1, anc) {
				return true
			}
		}
	}
	return false
}

// MatchWithSpecificity reports whether any selector of the rule matches e and
// returns the highest specificity among the matching ones.
func (r Rule) MatchWithSpecificity(e Element) (bool, Specificity) {
	var (
		found bool
		best  Specificity
	)
	for _, sel := range r.Selectors {
		if sel.Matches(e) {
			if !found || best.Less(sel.Specificity) {
				best = sel.Specificity
			}
			found = true
		}
	}
	return found, best
}
