package html

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document wraps goquery.Document with the operations the inliner needs.
type Document struct {
	doc *goquery.Document
}

// Parse parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses HTML string into a Document
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses HTML file into a Document
func ParseFile(filename string) (*Document, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	defer f.Close()

	return Parse(f)
}

// Root returns the <html> element.
func (d *Document) Root() *Node {
	sel := d.doc.Find("html").First()
	if sel.Length() == 0 {
		return nil
	}
	return newNode(sel.Get(0))
}

// Elements returns every element of the document in pre-order.
func (d *Document) Elements() []*Node {
	sel := d.doc.Find("*")
	nodes := make([]*Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, newNode(s.Get(0)))
	})
	return nodes
}

// Select returns the elements matching a CSS selector, using the full
// cascadia grammar rather than the inlining subset.
func (d *Document) Select(selector string) ([]*Node, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	sel := d.doc.FindMatcher(m)
	nodes := make([]*Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		nodes = append(nodes, newNode(n))
	}
	return nodes, nil
}

// ExtractStyles removes every <style> element from the document and returns
// their contents concatenated in document order.
func (d *Document) ExtractStyles() string {
	styles := d.doc.Find("style")

	var sb strings.Builder
	styles.Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
		sb.WriteByte('\n')
	})
	styles.Remove()

	return sb.String()
}

// Head returns the <head> element, creating it as the first child of <html>
// when the document has none.
func (d *Document) Head() *Node {
	if head := d.doc.Find("head").First(); head.Length() > 0 {
		return newNode(head.Get(0))
	}

	root := d.doc.Find("html").First()
	if root.Length() == 0 {
		return nil
	}
	head := &html.Node{Type: html.ElementNode, DataAtom: atom.Head, Data: atom.Head.String()}
	r := root.Get(0)
	r.InsertBefore(head, r.FirstChild)
	return newNode(head)
}

// AppendStyle adds a <style type="text/css"> element holding text at the end
// of <head>.
func (d *Document) AppendStyle(text string) error {
	head := d.Head()
	if head == nil {
		return fmt.Errorf("no html element to attach a head to")
	}

	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     atom.Style.String(),
		Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	head.node.AppendChild(style)
	return nil
}

// RemoveEmpty removes the elements with one of the given tag names that have
// no child nodes. Elements with content are kept.
func (d *Document) RemoveEmpty(tags []string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	m, err := cascadia.Compile(strings.Join(tags, ", "))
	if err != nil {
		return 0, fmt.Errorf("invalid tag list %q: %w", tags, err)
	}

	empty := d.doc.FindMatcher(m).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Get(0).FirstChild == nil
	})
	count := empty.Length()
	empty.Remove()
	return count, nil
}

// HTML returns the complete HTML document as string
func (d *Document) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return out, nil
}
