package css

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// ParseSelector parses one selector (no top-level commas) into a chain of
// compound selectors and computes its specificity.
//
// Supported: type names, '*', #id, .class, [attr], [attr=value] and the
// descendant, child ('>') and adjacent sibling ('+') combinators.
func ParseSelector(text string) (Selector, error) {
	text = strings.TrimSpace(text)
	sp := selectorParser{text: text, toks: tokenize(text)}
	return sp.parse()
}

type selectorParser struct {
	text  string
	toks  []token
	pos   int
	parts []Part
	cur   SimpleSelector
	have  bool // cur holds at least one test
	space bool // whitespace seen after cur
}

func (p *selectorParser) fail(reason string) (Selector, error) {
	return Selector{}, &SelectorError{Selector: p.text, Reason: reason}
}

func (p *selectorParser) failPseudo() (Selector, error) {
	return Selector{}, &SelectorError{Selector: p.text, Reason: "pseudo-classes and pseudo-elements are not supported", Pseudo: true}
}

// closeCompound ends the current compound with the given combinator.
func (p *selectorParser) closeCompound(c Combinator) {
	p.parts = append(p.parts, Part{Simple: p.cur, Combinator: c})
	p.cur = SimpleSelector{}
	p.have = false
	p.space = false
}

// component starts a new compound when whitespace separated it from the previous one.
func (p *selectorParser) component() {
	if p.have && p.space {
		p.closeCompound(CombinatorDescendant)
	}
	p.have = true
}

func (p *selectorParser) parse() (Selector, error) {
	if p.text == "" {
		return p.fail("empty selector")
	}

	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		p.pos++

		switch t.tt {
		case css.WhitespaceToken:
			if p.have {
				p.space = true
			}

		case css.IdentToken:
			if p.have && !p.space {
				return p.fail("type selector must come first in a compound selector")
			}
			p.component()
			p.cur.Tag = strings.ToLower(t.data)

		case css.HashToken:
			p.component()
			if p.cur.ID != "" {
				return p.fail("more than one id in a compound selector")
			}
			p.cur.ID = t.data[1:]

		case css.ColonToken:
			return p.failPseudo()

		case css.LeftBracketToken:
			p.component()
			if err := p.attribute(); err != nil {
				return Selector{}, err
			}

		case css.DelimToken:
			switch t.data {
			case "*":
				if p.have && !p.space {
					return p.fail("universal selector must come first in a compound selector")
				}
				p.component()
				p.cur.Universal = true
			case ".":
				if p.pos >= len(p.toks) || p.toks[p.pos].tt != css.IdentToken {
					return p.fail("expected class name after '.'")
				}
				p.component()
				p.cur.Classes = append(p.cur.Classes, p.toks[p.pos].data)
				p.pos++
			case ">", "+":
				if !p.have {
					return p.fail("combinator " + t.data + " without a left-hand selector")
				}
				comb := CombinatorChild
				if t.data == "+" {
					comb = CombinatorAdjacentSibling
				}
				p.closeCompound(comb)
			case "~":
				return p.fail("general sibling combinator is not supported")
			case "|":
				return p.fail("namespace prefixes are not supported")
			default:
				return p.fail("unexpected " + t.data)
			}

		case css.ColumnToken:
			return p.fail("column combinator is not supported")

		case css.CommaToken:
			return p.fail("selector lists must be split before parsing")

		default:
			return p.fail("unexpected " + t.data)
		}
	}

	if !p.have {
		if len(p.parts) > 0 {
			return p.fail("dangling combinator")
		}
		return p.fail("empty selector")
	}
	p.closeCompound(CombinatorNone)

	sel := Selector{Text: p.text, Parts: p.parts}
	for _, part := range sel.Parts {
		sel.Specificity = sel.Specificity.add(part.Simple.Specificity())
	}
	return sel, nil
}

// attribute parses the rest of an attribute test, the '[' is already consumed.
func (p *selectorParser) attribute() error {
	p.skipWhitespace()
	name, ok := p.expect(css.IdentToken)
	if !ok {
		_, err := p.fail("expected attribute name")
		return err
	}
	test := AttrTest{Name: strings.ToLower(name), Op: AttrPresent}

	p.skipWhitespace()
	if p.pos >= len(p.toks) {
		_, err := p.fail("unterminated attribute selector")
		return err
	}
	t := p.toks[p.pos]
	p.pos++
	switch {
	case t.tt == css.RightBracketToken:
		p.cur.Attrs = append(p.cur.Attrs, test)
		return nil
	case t.tt == css.DelimToken && t.data == "=":
		test.Op = AttrEquals
	case t.tt == css.DelimToken && t.data == "|":
		_, err := p.fail("namespace prefixes are not supported")
		return err
	default:
		_, err := p.fail("attribute operator " + t.data + " is not supported")
		return err
	}

	p.skipWhitespace()
	if p.pos >= len(p.toks) {
		_, err := p.fail("missing attribute value")
		return err
	}
	switch v := p.toks[p.pos]; v.tt {
	case css.IdentToken, css.NumberToken, css.DimensionToken, css.PercentageToken:
		// unquoted, e.g. [border=0] or [width=100%]
		test.Value = v.data
	case css.StringToken:
		test.Value = unquote(v.data)
	default:
		_, err := p.fail("invalid attribute value " + v.data)
		return err
	}
	p.pos++

	p.skipWhitespace()
	if _, ok := p.expect(css.RightBracketToken); !ok {
		_, err := p.fail("expected ']'")
		return err
	}
	p.cur.Attrs = append(p.cur.Attrs, test)
	return nil
}

func (p *selectorParser) skipWhitespace() {
	for p.pos < len(p.toks) && p.toks[p.pos].tt == css.WhitespaceToken {
		p.pos++
	}
}

func (p *selectorParser) expect(tt css.TokenType) (string, bool) {
	if p.pos >= len(p.toks) || p.toks[p.pos].tt != tt {
		return "", false
	}
	p.pos++
	return p.toks[p.pos-1].data, true
}

// String renders the selector in normalized form.
func (s Selector) String() string {
	var sb strings.Builder
	for _, part := range s.Parts {
		sb.WriteString(part.Simple.String())
		sb.WriteString(part.Combinator.String())
	}
	return sb.String()
}

func (s SimpleSelector) String() string {
	var sb strings.Builder
	switch {
	case s.Tag != "":
		sb.WriteString(s.Tag)
	case s.Universal:
		sb.WriteByte('*')
	}
	if s.ID != "" {
		sb.WriteString("#" + s.ID)
	}
	for _, c := range s.Classes {
		sb.WriteString("." + c)
	}
	for _, a := range s.Attrs {
		sb.WriteString("[" + a.Name)
		if a.Op == AttrEquals {
			sb.WriteString(`="` + a.Value + `"`)
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// unquote removes surrounding quotes from a string token.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
