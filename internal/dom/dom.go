// Package dom holds the read-only view of a document tree the locator engine
// works on. Nodes are golang.org/x/net/html nodes; parent and sibling links
// are used for navigation only.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoDocumentElement = errors.New("document has no root element")

func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return doc, nil
}

func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Tag returns the lower-case tag name of an element.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}

	return strings.ToLower(n.Data)
}

func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}

	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// AttrValue is Attr without the presence flag.
func AttrValue(n *html.Node, key string) string {
	v, _ := Attr(n, key)

	return v
}

// Attributes returns the node's attributes as a map.
func Attributes(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}

	return out
}

func Classes(n *html.Node) []string {
	return strings.Fields(AttrValue(n, "class"))
}

func HasClass(n *html.Node, token string) bool {
	for _, c := range Classes(n) {
		if c == token {
			return true
		}
	}

	return false
}

// Text returns the node's text content, trimmed. Like the DOM textContent it
// concatenates every descendant text node without inserting separators.
func Text(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)

	return strings.TrimSpace(sb.String())
}

func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			out = append(out, c)
		}
	}

	return out
}

// ParentElement returns the closest element ancestor, or nil at the document element.
func ParentElement(n *html.Node) *html.Node {
	if n == nil || !IsElement(n.Parent) {
		return nil
	}

	return n.Parent
}

// PrecedingSameTag counts element siblings before n that share its tag.
func PrecedingSameTag(n *html.Node) int {
	count := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if IsElement(s) && Tag(s) == Tag(n) {
			count++
		}
	}

	return count
}

// FollowingSameTag counts element siblings after n that share its tag.
func FollowingSameTag(n *html.Node) int {
	count := 0
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if IsElement(s) && Tag(s) == Tag(n) {
			count++
		}
	}

	return count
}

func DocumentElement(doc *html.Node) *html.Node {
	if IsElement(doc) {
		for doc.Parent != nil {
			doc = doc.Parent
		}
	}

	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}

	return nil
}

func Body(doc *html.Node) *html.Node {
	root := DocumentElement(doc)
	if root == nil {
		return nil
	}

	for _, c := range ElementChildren(root) {
		if c.DataAtom == atom.Body {
			return c
		}
	}

	return nil
}

// Root walks up from n to the document node.
func Root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}

	return n
}

// ResolveIndexPath follows element-child indices from the document element.
// An empty path resolves to the document element itself.
func ResolveIndexPath(doc *html.Node, path []int) (*html.Node, error) {
	current := DocumentElement(doc)
	if current == nil {
		return nil, ErrNoDocumentElement
	}

	for depth, idx := range path {
		children := ElementChildren(current)
		if idx < 0 || idx >= len(children) {
			return nil, fmt.Errorf("index %d out of range at depth %d (%d children under <%s>)", idx, depth, len(children), Tag(current))
		}
		current = children[idx]
	}

	return current, nil
}

// RemoveClass strips a class token from every element in the tree and
// returns how many elements were touched. An emptied class attribute is removed.
func RemoveClass(doc *html.Node, token string) int {
	touched := 0

	Walk(doc, func(n *html.Node) {
		for i, a := range n.Attr {
			if a.Namespace != "" || a.Key != "class" {
				continue
			}

			fields := strings.Fields(a.Val)
			kept := fields[:0]
			for _, f := range fields {
				if f != token {
					kept = append(kept, f)
				}
			}
			if len(kept) == len(fields) {
				return
			}

			touched++
			if len(kept) == 0 {
				n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			} else {
				n.Attr[i].Val = strings.Join(kept, " ")
			}

			return
		}
	})

	return touched
}

// Walk calls fn for every element in document order.
func Walk(n *html.Node, fn func(*html.Node)) {
	if IsElement(n) {
		fn(n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// FindFirst returns the first element in document order for which match is true.
func FindFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node

	var walk func(*html.Node) bool
	walk = func(c *html.Node) bool {
		if IsElement(c) && match(c) {
			found = c

			return true
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			if walk(ch) {
				return true
			}
		}

		return false
	}
	walk(n)

	return found
}

// FindByID is FindFirst on the id attribute.
func FindByID(n *html.Node, id string) *html.Node {
	return FindFirst(n, func(c *html.Node) bool {
		v, ok := Attr(c, "id")

		return ok && v == id
	})
}
