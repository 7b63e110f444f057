package css

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
)

// ParseDeclarations splits a declaration block (or a style attribute value)
// into declarations. Names are trimmed, values are kept verbatim. Segments
// that cannot be parsed are skipped and reported through the returned error,
// which combines one ErrMalformedDeclaration per skipped segment.
func ParseDeclarations(text string) (DeclarationBlock, error) {
	return parseDeclarationTokens(tokenize(text))
}

func parseDeclarationTokens(toks []token) (DeclarationBlock, error) {
	var (
		block DeclarationBlock
		errs  error
	)

	segments := split(toks, css.SemicolonToken)
	for i, seg := range segments {
		// every segment but the last one was followed by a semicolon
		terminated := i < len(segments)-1

		lead := 0
		for lead < len(seg) && seg[lead].tt == css.WhitespaceToken {
			lead++
		}
		if lead == len(seg) {
			// empty, e.g. produced by ";;" or trailing whitespace
			continue
		}

		decl, err := declaration(seg[lead:])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		decl.Lead = join(seg[:lead])
		decl.Terminated = terminated
		block = append(block, decl)
	}
	return block, errs
}

func declaration(seg []token) (Declaration, error) {
	colon := -1
	for i, t := range seg {
		if t.tt == css.ColonToken {
			colon = i
			break
		}
	}
	if colon < 0 {
		return Declaration{}, fmt.Errorf("%w: %q: missing ':'", ErrMalformedDeclaration, join(seg))
	}

	name := join(seg[:colon])
	property := strings.TrimRightFunc(name, isSpace)
	if property == "" || strings.IndexFunc(property, isSpace) >= 0 {
		return Declaration{}, fmt.Errorf("%w: %q: invalid property name", ErrMalformedDeclaration, join(seg))
	}

	value := join(seg[colon+1:])
	if strings.TrimSpace(value) == "" {
		return Declaration{}, fmt.Errorf("%w: %q: empty value", ErrMalformedDeclaration, join(seg))
	}

	return Declaration{
		Property: property,
		Gap:      name[len(property):],
		Value:    value,
	}, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}
