package resolver

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"emogrify/internal/css"
)

// MatchRecord is one rule that matched an element: the specificity of its
// most specific matching selector, its source order and its declarations.
type MatchRecord struct {
	Specificity  css.Specificity
	SourceOrder  int
	Declarations css.DeclarationBlock
}

func compareRecords(a, b MatchRecord) int {
	if c := a.Specificity.Compare(b.Specificity); c != 0 {
		return c
	}
	return cmp.Compare(a.SourceOrder, b.SourceOrder)
}

// Resolver handles CSS cascade resolution and computes final styles for HTML elements
type Resolver struct {
	rules []css.Rule
	log   *zap.Logger
}

// New creates a new style resolver for the inlinable rules of sheet.
func New(sheet *css.Stylesheet, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{log: log.Named("resolver")}
	if sheet != nil {
		r.rules = sheet.Rules
	}
	return r
}

// Match returns a record for every rule with at least one selector matching
// e, in cascade order: ascending specificity, then ascending source order.
func (r *Resolver) Match(e css.Element) []MatchRecord {
	var records []MatchRecord
	for _, rule := range r.rules {
		ok, spec := rule.MatchWithSpecificity(e)
		if !ok {
			continue
		}
		records = append(records, MatchRecord{
			Specificity:  spec,
			SourceOrder:  rule.SourceOrder,
			Declarations: rule.Declarations,
		})
	}
	slices.SortStableFunc(records, compareRecords)
	return records
}

// Resolution is the outcome of resolving one element.
type Resolution struct {
	// Style is the new value of the style attribute.
	Style string
	// Matches is the number of rules that matched.
	Matches int
	// Declarations is the merged block Style was rendered from.
	Declarations css.DeclarationBlock
}

// Resolve computes the style attribute of e. It reports false when e has
// neither matching rules nor a style attribute and must be left untouched.
func (r *Resolver) Resolve(e css.Element) (Resolution, bool) {
	records := r.Match(e)
	inline, hasStyle := e.Attr("style")
	if len(records) == 0 && !hasStyle {
		return Resolution{}, false
	}

	seed, err := css.ParseDeclarations(inline)
	if err != nil {
		r.log.Debug("Dropping malformed inline declarations",
			zap.String("element", e.TagName()), zap.Error(err))
	}

	merged := Merge(seed, records)
	return Resolution{
		Style:        merged.String(),
		Matches:      len(records),
		Declarations: merged,
	}, true
}

// Merge applies records, already in cascade order, over the inline
// declarations. A property keeps the position where it was first introduced,
// and the leading whitespace of that first declaration, while the last writer
// supplies its name, value and terminator. New properties are appended.
func Merge(inline css.DeclarationBlock, records []MatchRecord) css.DeclarationBlock {
	var (
		merged   css.DeclarationBlock
		position = make(map[string]int)
	)
	write := func(d css.Declaration) {
		key := d.Key()
		if i, ok := position[key]; ok {
			d.Lead = merged[i].Lead
			merged[i] = d
			return
		}
		position[key] = len(merged)
		merged = append(merged, d)
	}

	for _, d := range inline {
		write(d)
	}
	for _, rec := range records {
		for _, d := range rec.Declarations {
			write(d)
		}
	}
	return merged
}
