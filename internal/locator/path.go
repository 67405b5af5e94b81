package locator

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"locator-capture/internal/dom"
)

// BuildPath returns the sibling-indexed path from the body to n, for example
// //body/div[2]/ul/li[1]. A segment carries an index whenever a sibling shares
// its tag, so the path selects exactly one element. Nodes outside the body
// get an absolute path from the document element instead. Segments keep the
// parser's tag case (SVG foreignObject) since XPath name tests are exact.
func BuildPath(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}

	body := dom.Body(dom.Root(n))

	var segments []string
	current := n
	for current != nil && current != body {
		if dom.ParentElement(current) == nil {
			// Reached the document element without crossing the body.
			return "/" + strings.Join(append([]string{segment(current)}, segments...), "/")
		}
		segments = append([]string{segment(current)}, segments...)
		current = dom.ParentElement(current)
	}

	if len(segments) == 0 {
		return "//body"
	}

	return "//body/" + strings.Join(segments, "/")
}

func segment(n *html.Node) string {
	tag := n.Data

	preceding := dom.PrecedingSameTag(n)
	if preceding == 0 && dom.FollowingSameTag(n) == 0 {
		return tag
	}

	return tag + "[" + strconv.Itoa(preceding+1) + "]"
}
