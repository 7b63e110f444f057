package css_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"emogrify/internal/css"
)

func newTestParser(t *testing.T, opts ...css.Option) *css.Parser {
	return css.NewParser(zaptest.NewLogger(t), opts...)
}

func TestParseMinified(t *testing.T) {
	sheet := newTestParser(t).Parse("p{color:blue;}html{color:red;}")

	require.Len(t, sheet.Rules, 2)
	assert.NoError(t, sheet.Issues)

	assert.Equal(t, "p", sheet.Rules[0].Text)
	assert.Equal(t, 1, sheet.Rules[0].SourceOrder)
	assert.Equal(t, "color:blue;", sheet.Rules[0].Declarations.String())

	assert.Equal(t, "html", sheet.Rules[1].Text)
	assert.Equal(t, 2, sheet.Rules[1].SourceOrder)
	assert.Equal(t, "color:red;", sheet.Rules[1].Declarations.String())
}

func TestParseSelectorListSharesOrder(t *testing.T) {
	sheet := newTestParser(t).Parse("h1, p.x {color:red} a {b:c}")

	require.Len(t, sheet.Rules, 2)
	rule := sheet.Rules[0]
	require.Len(t, rule.Selectors, 2)
	assert.Equal(t, "h1", rule.Selectors[0].String())
	assert.Equal(t, "p.x", rule.Selectors[1].String())
	assert.Equal(t, 1, rule.SourceOrder)
	assert.Equal(t, 2, sheet.Rules[1].SourceOrder)
}

func TestParseSourceOrderIsPerCall(t *testing.T) {
	p := newTestParser(t)
	first := p.Parse("a {b:c} d {e:f}")
	second := p.Parse("g {h:i}")

	require.Len(t, first.Rules, 2)
	require.Len(t, second.Rules, 1)
	assert.Equal(t, 1, second.Rules[0].SourceOrder)
}

func TestParseDropsUnneededThings(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{"comment", "/* nothing */"},
		{"import", `@import "foo.css";`},
		{"import url", `@import url(foo.css) screen;`},
		{"aural", "@media aural {p {color: #000;}}"},
		{"braille", "@media braille {p {color: #000;}}"},
		{"embossed", "@media embossed {p {color: #000;}}"},
		{"handheld", "@media handheld {p {color: #000;}}"},
		{"print", "@media print {p {color: #000;}}"},
		{"projection", "@media projection {p {color: #000;}}"},
		{"speech", "@media speech {p {color: #000;}}"},
		{"tty", "@media tty {p {color: #000;}}"},
		{"tv", "@media tv {p {color: #000;}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := newTestParser(t).Parse(tt.css)
			assert.Empty(t, sheet.Rules)
			assert.Empty(t, sheet.Conditional)
			assert.Empty(t, sheet.Preserved)
			assert.NoError(t, sheet.Issues)
			assert.True(t, sheet.Empty())
		})
	}
}

func TestParseAllowedMediaIsPreservedVerbatim(t *testing.T) {
	blocks := []string{
		"@media only all {p {color: #000;}}",
		"@media only screen {p {color: #000;}}",
		"@media {p {color: #000;}}",
		"@media screen {p {color: #000;}}",
		"@media all {p {color: #000;}}",
		"@media only screen and (min-device-width: 320px) and (max-device-width: 480px) { h1 { color:red; } }",
		"@media all { html {} }",
	}

	for _, block := range blocks {
		t.Run(block, func(t *testing.T) {
			sheet := newTestParser(t).Parse(block)
			assert.Equal(t, []string{block}, sheet.Preserved)
			assert.Empty(t, sheet.Rules)
			assert.Equal(t, block, sheet.PreservedCSS())
		})
	}
}

func TestParseMediaRulesConsumeSourceOrder(t *testing.T) {
	sheet := newTestParser(t).Parse(`
		@media print { p { color: black } }
		@media screen { h1 { color:red; } }
		h1 { color: blue }
	`)

	require.Len(t, sheet.Conditional, 1)
	assert.Equal(t, 1, sheet.Conditional[0].SourceOrder)
	assert.Equal(t, "screen", sheet.Conditional[0].Media)

	require.Len(t, sheet.Rules, 1)
	assert.Equal(t, 2, sheet.Rules[0].SourceOrder)
	assert.Empty(t, sheet.Rules[0].Media)

	assert.Equal(t, []string{"@media screen { h1 { color:red; } }"}, sheet.Preserved)
}

func TestParseWithoutMediaPreservation(t *testing.T) {
	sheet := newTestParser(t, css.WithPreserveMedia(false)).Parse("@media screen {p {a:b}}")

	assert.Empty(t, sheet.Preserved)
	assert.Len(t, sheet.Conditional, 1)
}

func TestParseUnresolvableMedia(t *testing.T) {
	sheet := newTestParser(t).Parse("@media not screen { p {a:b} } p {c:d}")

	assert.Empty(t, sheet.Preserved)
	assert.Empty(t, sheet.Conditional)
	assert.Len(t, sheet.Rules, 1)
	assert.ErrorIs(t, sheet.Issues, css.ErrUnresolvableMedia)
}

func TestParsePreservesOtherAtRules(t *testing.T) {
	fontFace := "@font-face { font-family: X; src: url(x.woff); }"
	charset := `@charset "utf-8";`

	sheet := newTestParser(t).Parse(charset + "\n" + fontFace + "\np {a:b}")

	assert.Equal(t, []string{charset, fontFace}, sheet.Preserved)
	assert.Len(t, sheet.Rules, 1)
}

func TestParseSkipsInvalidSelectors(t *testing.T) {
	sheet := newTestParser(t).Parse("a:hover, p {color:red} b ~ i {color:blue}")

	require.Len(t, sheet.Rules, 1)
	require.Len(t, sheet.Rules[0].Selectors, 1)
	assert.Equal(t, "p", sheet.Rules[0].Selectors[0].String())

	warnings := sheet.Warnings()
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.ErrorIs(t, w, css.ErrMalformedSelector)
	}
	assert.True(t, css.IsPseudoSelectorError(warnings[0]))
	assert.False(t, css.IsPseudoSelectorError(warnings[1]))
	assert.Empty(t, sheet.Preserved)
}

func TestParsePreservesPseudoRules(t *testing.T) {
	sheet := newTestParser(t, css.WithPreservePseudo(true)).Parse("a:hover, p {color:red}")

	assert.Equal(t, []string{"a:hover {color:red}"}, sheet.Preserved)
	require.Len(t, sheet.Rules, 1)
	assert.Equal(t, "p", sheet.Rules[0].Selectors[0].String())
}

func TestParseRecoversFromMalformedRules(t *testing.T) {
	t.Run("empty block", func(t *testing.T) {
		sheet := newTestParser(t).Parse("p {} h1 {a:b}")
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, 2, sheet.Rules[0].SourceOrder)
	})

	t.Run("stray brace", func(t *testing.T) {
		sheet := newTestParser(t).Parse("} p {a:b}")
		assert.Len(t, sheet.Rules, 1)
		assert.ErrorIs(t, sheet.Issues, css.ErrMalformedRule)
	})

	t.Run("unterminated block", func(t *testing.T) {
		sheet := newTestParser(t).Parse("p {color:red")
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, "color:red", sheet.Rules[0].Declarations.String())
		assert.ErrorIs(t, sheet.Issues, css.ErrMalformedRule)
	})

	t.Run("missing block", func(t *testing.T) {
		sheet := newTestParser(t).Parse("p; h1 {a:b}")
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, "h1", sheet.Rules[0].Text)
		assert.ErrorIs(t, sheet.Issues, css.ErrMalformedRule)
	})

	t.Run("malformed declaration", func(t *testing.T) {
		sheet := newTestParser(t).Parse("p {color; margin:0}")
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, "margin:0", sheet.Rules[0].Declarations.String())
		assert.ErrorIs(t, sheet.Issues, css.ErrMalformedDeclaration)
	})
}

func TestParseSourcesContinueOrder(t *testing.T) {
	sheet := newTestParser(t).ParseSources("p {a:1} q {b:2", "", "@media screen { s {c:3} } h1 {d:4}")

	require.Len(t, sheet.Rules, 3)
	assert.Equal(t, "p", sheet.Rules[0].Text)
	assert.Equal(t, 1, sheet.Rules[0].SourceOrder)
	assert.Equal(t, "q", sheet.Rules[1].Text)
	assert.Equal(t, 2, sheet.Rules[1].SourceOrder)
	assert.Equal(t, "h1", sheet.Rules[2].Text)
	assert.Equal(t, 4, sheet.Rules[2].SourceOrder, "the media rule consumed order 3")

	assert.Equal(t, []string{"@media screen { s {c:3} }"}, sheet.Preserved)
	assert.ErrorIs(t, sheet.Issues, css.ErrMalformedRule)
}

func TestParseUnterminatedComment(t *testing.T) {
	for _, text := range []string{"p {a:1} /* open", "p {a:1} /*/"} {
		sheet := newTestParser(t).Parse(text)
		require.Len(t, sheet.Rules, 1, text)
		require.Len(t, sheet.Warnings(), 1, text)
		assert.ErrorIs(t, sheet.Issues, css.ErrMalformedRule, text)
	}

	sheet := newTestParser(t).Parse("p {a:1} /**/ /* closed */")
	assert.NoError(t, sheet.Issues)
}
