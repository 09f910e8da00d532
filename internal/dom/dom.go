// Package dom adapts golang.org/x/net/html into the small document model the
// compiler works on: parse, select in document order, mutate, serialize.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// Parse reads a complete HTML document. Missing html, head and body elements
// are synthesized by the parser, so Head and Body are always non-nil.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Serialize renders the document back to markup, doctype included.
func (d *Document) Serialize() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Head returns the head element.
func (d *Document) Head() *html.Node {
	return d.First(IsElement(atom.Head))
}

// Body returns the body element.
func (d *Document) Body() *html.Node {
	return d.First(IsElement(atom.Body))
}

// Matcher selects nodes.
type Matcher func(*html.Node) bool

// All returns every node matching m, in document order.
func (d *Document) All(m Matcher) []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if m(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// First returns the first node matching m in document order, or nil.
func (d *Document) First(m Matcher) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if m(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth-first, pre-order. It stops as soon
// as visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// IsElement matches elements of the given type.
func IsElement(a atom.Atom) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// HasAttr matches elements carrying attribute key.
func HasAttr(a atom.Atom, key string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != a {
			return false
		}
		_, ok := Attr(n, key)
		return ok
	}
}

// IsStylesheetLink matches <link rel="stylesheet">.
func IsStylesheetLink(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Link {
		return false
	}
	rel, _ := Attr(n, "rel")
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, "stylesheet") {
			return true
		}
	}
	return false
}

// Any matches nodes accepted by at least one of ms.
func Any(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if m(n) {
				return true
			}
		}
		return false
	}
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// NewElement creates a detached element with the given text content.
func NewElement(a atom.Atom, text string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}

// Remove detaches n from its parent. Detached nodes are left alone.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
