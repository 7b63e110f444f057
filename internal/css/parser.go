package css

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Parser splits stylesheet text into rules to inline and at-rules to preserve.
// A Parser holds configuration only and may be reused; every Parse call gets
// its own source order counter.
type Parser struct {
	log            *zap.Logger
	media          MediaPolicy
	preserveMedia  bool
	preservePseudo bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithMediaPolicy replaces the default media type policy.
func WithMediaPolicy(mp MediaPolicy) Option {
	return func(p *Parser) { p.media = mp }
}

// WithPreserveMedia controls whether allowed @media blocks are kept verbatim
// (true, the default) or dropped.
func WithPreserveMedia(preserve bool) Option {
	return func(p *Parser) { p.preserveMedia = preserve }
}

// WithPreservePseudo keeps rules rejected for pseudo-class selectors as
// verbatim CSS instead of dropping them.
func WithPreservePseudo(preserve bool) Option {
	return func(p *Parser) { p.preservePseudo = preserve }
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger, opts ...Option) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		log:           log.Named("css-parser"),
		media:         DefaultMediaPolicy(),
		preserveMedia: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses CSS text into a Stylesheet. It never fails: every problem is
// recovered locally and recorded in Stylesheet.Issues.
func (p *Parser) Parse(text string) *Stylesheet {
	return p.ParseSources(text)
}

// ParseSources parses several stylesheets as one, in the given order. Source
// order runs on across them, but each is lexed on its own so an unterminated
// comment or block cannot reach into the next one.
func (p *Parser) ParseSources(sources ...string) *Stylesheet {
	b := &sheetBuilder{p: p, sheet: &Stylesheet{}}
	size := 0
	for _, text := range sources {
		toks, err := lex(text)
		if err != nil {
			b.issue(err)
		}
		b.block(toks, "")
		size += len(text)
	}

	p.log.Debug("Parsed stylesheet",
		zap.Int("sources", len(sources)),
		zap.Int("bytes", size),
		zap.Int("rules", len(b.sheet.Rules)),
		zap.Int("preserved", len(b.sheet.Preserved)),
		zap.Int("issues", len(b.sheet.Warnings())))
	return b.sheet
}

// sheetBuilder is the state of a single Parse call.
type sheetBuilder struct {
	p     *Parser
	sheet *Stylesheet
	order int
}

func (b *sheetBuilder) nextOrder() int {
	b.order++
	return b.order
}

func (b *sheetBuilder) issue(err error) {
	b.p.log.Debug("Skipping malformed CSS", zap.Error(err))
	b.sheet.Issues = multierr.Append(b.sheet.Issues, err)
}

// block walks a list of rules. media is the condition of the enclosing
// allowed media block, empty at top level.
func (b *sheetBuilder) block(toks []token, media string) {
	for i := 0; i < len(toks); {
		switch toks[i].tt {
		case css.WhitespaceToken, css.CDOToken, css.CDCToken, css.SemicolonToken:
			i++
		case css.AtKeywordToken:
			i = b.atRule(toks, i, media)
		case css.RightBraceToken:
			b.issue(fmt.Errorf("%w: unexpected '}'", ErrMalformedRule))
			i++
		default:
			i = b.qualifiedRule(toks, i, media)
		}
	}
}

// atRule handles the at-rule starting at toks[i] and returns the index just past it.
func (b *sheetBuilder) atRule(toks []token, i int, media string) int {
	name := strings.ToLower(toks[i].data)
	end := scanPrelude(toks, i+1)

	if end == len(toks) || toks[end].tt == css.SemicolonToken {
		// statement at-rule, e.g. @import or @charset
		next := min(end+1, len(toks))
		switch {
		case name == "@import":
			b.p.log.Debug("Dropping @import", zap.String("rule", strings.TrimSpace(join(toks[i:next]))))
		case media != "":
			b.p.log.Debug("Skipping nested at-rule", zap.String("rule", name))
		default:
			b.sheet.Preserved = append(b.sheet.Preserved, strings.TrimSpace(join(toks[i:next])))
		}
		return next
	}

	closing := matchBrace(toks, end)
	next := min(closing+1, len(toks))
	text := join(toks[i:next])
	if closing == len(toks) {
		b.issue(fmt.Errorf("%w: unterminated %s block", ErrMalformedRule, name))
		text += "}"
	}

	if media != "" {
		b.p.log.Debug("Skipping nested at-rule", zap.String("rule", name))
		return next
	}

	if name != "@media" {
		// @font-face, @keyframes, @page and friends cannot be inlined
		b.sheet.Preserved = append(b.sheet.Preserved, text)
		return next
	}

	condition := strings.TrimSpace(join(toks[i+1 : end]))
	verdict, err := b.p.media.Classify(condition)
	if err != nil {
		b.issue(err)
	}
	b.p.log.Debug("Classified @media block", zap.String("condition", condition), zap.Stringer("verdict", verdict))
	if verdict != MediaAllowed {
		return next
	}

	if b.p.preserveMedia {
		b.sheet.Preserved = append(b.sheet.Preserved, text)
	}
	// contained rules take their place in source order but are never inlined
	label := condition
	if label == "" {
		label = "all"
	}
	b.block(toks[end+1:closing], label)
	return next
}

// qualifiedRule handles the rule starting at toks[i] and returns the index just past it.
func (b *sheetBuilder) qualifiedRule(toks []token, i int, media string) int {
	open := scanPrelude(toks, i)
	if open == len(toks) || toks[open].tt != css.LeftBraceToken {
		b.issue(fmt.Errorf("%w: %q has no declaration block", ErrMalformedRule, strings.TrimSpace(join(toks[i:open]))))
		return min(open+1, len(toks))
	}
	closing := matchBrace(toks, open)
	if closing == len(toks) {
		b.issue(fmt.Errorf("%w: unterminated declaration block", ErrMalformedRule))
	}

	prelude := toks[i:open]
	body := toks[open+1 : closing]
	rule := Rule{
		Text:        strings.TrimSpace(join(prelude)),
		SourceOrder: b.nextOrder(),
		Media:       media,
	}

	decls, err := parseDeclarationTokens(body)
	if err != nil {
		b.issue(err)
	}
	rule.Declarations = decls

	var pseudo []string
	for _, seg := range split(prelude, css.CommaToken) {
		sel, err := ParseSelector(join(seg))
		if err != nil {
			if IsPseudoSelectorError(err) {
				pseudo = append(pseudo, strings.TrimSpace(join(seg)))
			}
			b.issue(err)
			continue
		}
		rule.Selectors = append(rule.Selectors, sel)
	}

	if len(pseudo) > 0 && b.p.preservePseudo && media == "" {
		b.sheet.Preserved = append(b.sheet.Preserved, strings.Join(pseudo, ", ")+" {"+join(body)+"}")
	}

	switch {
	case len(rule.Selectors) == 0 || len(rule.Declarations) == 0:
		// nothing to apply
	case media != "":
		b.sheet.Conditional = append(b.sheet.Conditional, rule)
	default:
		b.sheet.Rules = append(b.sheet.Rules, rule)
	}
	return min(closing+1, len(toks))
}
