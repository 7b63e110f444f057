package html

import (
	"strings"

	"golang.org/x/net/html"

	"emogrify/internal/css"
)

// Node is an element of a parsed document. It implements css.Element so the
// matcher can walk the tree without knowing about x/net/html.
type Node struct {
	node *html.Node
}

var _ css.Element = (*Node)(nil)

func newNode(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{node: n}
}

// TagName returns the element's lower-cased tag name
func (n *Node) TagName() string {
	return n.node.Data
}

// Attr returns the value of an attribute, names compare case-insensitively.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing the existing value if any.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.node.Attr[i].Val = value
			return
		}
	}
	n.node.Attr = append(n.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	attrs := n.node.Attr[:0]
	for _, a := range n.node.Attr {
		if a.Namespace != "" || !strings.EqualFold(a.Key, name) {
			attrs = append(attrs, a)
		}
	}
	n.node.Attr = attrs
}

// ParentElement returns the parent element, nil for the root element.
func (n *Node) ParentElement() css.Element {
	if p := n.node.Parent; p != nil && p.Type == html.ElementNode {
		return &Node{node: p}
	}
	return nil
}

// PrevElementSibling returns the closest preceding sibling that is an
// element, skipping text and comments.
func (n *Node) PrevElementSibling() css.Element {
	for s := n.node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return &Node{node: s}
		}
	}
	return nil
}

// Children returns the child elements in document order.
func (n *Node) Children() []*Node {
	var children []*Node
	for c := n.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, &Node{node: c})
		}
	}
	return children
}

// Raw exposes the underlying x/net/html node.
func (n *Node) Raw() *html.Node {
	return n.node
}
