package locator

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
)

// Evaluate reports how many nodes of the tree containing doc match expr under
// the given strategy. Malformed expressions and evaluation faults count as
// zero matches so that one bad candidate never aborts a synthesis.
func Evaluate(doc *html.Node, strategy entity.Strategy, expr string) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	if doc == nil || expr == "" {
		return 0
	}

	doc = dom.Root(doc)

	switch strategy {
	case entity.StrategyID:
		return countXPath(doc, "//*[@id="+xpathLiteral(expr)+"]")
	case entity.StrategyName:
		return countXPath(doc, "//*[@name="+xpathLiteral(expr)+"]")
	case entity.StrategyTag:
		return countTag(doc, strings.ToLower(expr))
	case entity.StrategyClass:
		if isBareToken(expr) {
			return countClassToken(doc, expr)
		}

		return countXPath(doc, descendantXPath(expr))
	case entity.StrategyAttribute:
		if strings.HasPrefix(expr, "/") {
			return countXPath(doc, expr)
		}

		return countCSS(doc, expr)
	default:
		return countXPath(doc, descendantXPath(expr))
	}
}

func countXPath(doc *html.Node, expr string) int {
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return 0
	}

	return len(nodes)
}

func countCSS(doc *html.Node, expr string) int {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return 0
	}

	return len(sel.MatchAll(doc))
}

func countTag(doc *html.Node, tag string) int {
	count := 0
	dom.Walk(doc, func(n *html.Node) {
		if dom.Tag(n) == tag {
			count++
		}
	})

	return count
}

func countClassToken(doc *html.Node, token string) int {
	count := 0
	dom.Walk(doc, func(n *html.Node) {
		if dom.HasClass(n, token) {
			count++
		}
	})

	return count
}

// descendantXPath turns a relative step such as div[@class='x'] into a
// search over the whole tree.
func descendantXPath(expr string) string {
	if strings.HasPrefix(expr, "/") || strings.HasPrefix(expr, "(") {
		return expr
	}

	return "//" + expr
}

func isBareToken(expr string) bool {
	return !strings.ContainsAny(expr, "[]()/@=' \t\n")
}

// xpathLiteral quotes s as an XPath string literal. XPath 1.0 has no escape
// sequences, so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}

	return "concat(" + strings.Join(quoted, ",") + ")"
}
