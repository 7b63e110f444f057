package html_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emogrify/internal/css"
	"emogrify/internal/html"
)

const sampleDocument = `<!DOCTYPE html>
<html id="html">
  <head><title>t</title></head>
  <body>
    <p class="p-1"><span>some text</span></p>
    <!-- comment -->
    <p class="p-2 lead"><span title="bonjour">some</span> text</p>
    text
    <p class="p-3"><span title="buenas dias">some</span> more <b>text</b></p>
    <div id="box" class="a"><p><em hidden>x</em></p><table><tr><td data-x="1">c</td></tr></table></div>
  </body>
</html>`

func mustParse(t *testing.T, s string) *html.Document {
	t.Helper()
	doc, err := html.ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestMatcherAgreesWithCascadia(t *testing.T) {
	doc := mustParse(t, sampleDocument)
	elements := doc.Elements()

	selectors := []string{
		"*",
		"p",
		"p span",
		"body span",
		"p > span",
		"body > span",
		"p + p",
		"p + p span",
		"#html",
		"html#html",
		".p-1",
		"p.p-2.lead",
		"span[title]",
		`span[title="bonjour"]`,
		`[title='buenas dias']`,
		"[hidden]",
		"div.a p em",
		"#box > p > em",
		"table td",
		"td[data-x]",
		"body > div + p",
		"head + body",
		"html > body > p.p-3 b",
		"* > span",
	}

	for _, text := range selectors {
		t.Run(text, func(t *testing.T) {
			sel, err := css.ParseSelector(text)
			require.NoError(t, err)

			want, err := doc.Select(text)
			require.NoError(t, err)
			wantSet := make(map[any]bool, len(want))
			for _, n := range want {
				wantSet[n.Raw()] = true
			}

			for _, e := range elements {
				assert.Equal(t, wantSet[e.Raw()], sel.Matches(e), "<%s> disagrees with cascadia", e.TagName())
			}
		})
	}
}

func TestElementsInDocumentOrder(t *testing.T) {
	doc := mustParse(t, "<html><head></head><body><p><span></span></p><div></div></body></html>")

	var tags []string
	for _, e := range doc.Elements() {
		tags = append(tags, e.TagName())
	}
	assert.Equal(t, []string{"html", "head", "body", "p", "span", "div"}, tags)
}

func TestNodeNavigationSkipsNonElements(t *testing.T) {
	doc := mustParse(t, "<html><body><p id=a></p> text <!-- c --> <p id=b></p></body></html>")

	nodes, err := doc.Select("#b")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	b := nodes[0]

	prev := b.PrevElementSibling()
	require.NotNil(t, prev)
	id, ok := prev.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Nil(t, prev.PrevElementSibling())

	parent := b.ParentElement()
	require.NotNil(t, parent)
	assert.Equal(t, "body", parent.TagName())

	root := doc.Root()
	require.NotNil(t, root)
	assert.Nil(t, root.ParentElement())
	assert.Len(t, root.Children(), 2)
}

func TestNodeAttributes(t *testing.T) {
	doc := mustParse(t, `<html><body><p TITLE="x" style="a:b"></p></body></html>`)
	nodes, err := doc.Select("p")
	require.NoError(t, err)
	p := nodes[0]

	v, ok := p.Attr("Title")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	p.SetAttr("style", "color:red;")
	p.SetAttr("class", "c")
	p.RemoveAttr("title")

	_, ok = p.Attr("title")
	assert.False(t, ok)

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<p style="color:red;" class="c"></p>`)
}

func TestExtractStyles(t *testing.T) {
	doc := mustParse(t, `<html><head><style type="text/css">p {a:b}</style></head>`+
		`<body><style>h1 {c:d}</style><p></p></body></html>`)

	text := doc.ExtractStyles()
	assert.Equal(t, "p {a:b}\nh1 {c:d}\n", text)

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.NotContains(t, out, "<style")
	assert.Empty(t, doc.ExtractStyles())
}

func TestAppendStyleCreatesHead(t *testing.T) {
	doc := mustParse(t, "<!DOCTYPE html>\n<html></html>")
	require.NoError(t, doc.AppendStyle("@media screen { p { a:b } }"))

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<head><style type="text/css">@media screen { p { a:b } }</style></head>`)
	assert.Equal(t, 1, strings.Count(out, "<head>"))
}

func TestAppendStyleKeepsHeadContent(t *testing.T) {
	doc := mustParse(t, "<html><head><!-- original content --><title>t</title></head><body></body></html>")
	require.NoError(t, doc.AppendStyle("p > a {b:c}"))

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<head><!-- original content --><title>t</title><style type="text/css">p > a {b:c}</style></head>`)
}

func TestRemoveEmpty(t *testing.T) {
	doc := mustParse(t, "<html><body>foo<wbr/>bar<p></p><p>kept</p><span></span></body></html>")

	removed, err := doc.RemoveEmpty([]string{"wbr", "p"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "foobar<p>kept</p><span></span>")

	removed, err = doc.RemoveEmpty(nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = doc.RemoveEmpty([]string{"p["})
	assert.Error(t, err)
}
