package locator

import (
	"regexp"

	"golang.org/x/net/html"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
)

// MarkerClass is the class the page highlighter puts on the hovered element.
// It is cosmetic and never part of a locator.
const MarkerClass = "locator-highlight"

var safeTokenRe = regexp.MustCompile(`^[\p{L}\p{N} _\-.,:/()!?]+$`)

// SafeToken reports whether v may be embedded in a generated expression
// without escaping.
func SafeToken(v string) bool {
	return safeTokenRe.MatchString(v)
}

var skippedAttrs = map[string]bool{
	"id":    true,
	"class": true,
	"name":  true,
}

// Generate proposes locators for n in presentation order: tag, id, name,
// class, other attributes, text. The list is not checked for uniqueness.
func Generate(n *html.Node) []entity.Candidate {
	if !dom.IsElement(n) {
		return nil
	}

	// The tag strategy compares lower-case names; XPath and CSS expressions
	// need the name as parsed.
	parsed := n.Data
	candidates := []entity.Candidate{{Type: entity.StrategyTag, Value: dom.Tag(n)}}

	if id, ok := dom.Attr(n, "id"); ok && SafeToken(id) {
		candidates = append(candidates, entity.Candidate{Type: entity.StrategyID, Value: id})
	}

	if name, ok := dom.Attr(n, "name"); ok && SafeToken(name) {
		candidates = append(candidates, entity.Candidate{Type: entity.StrategyName, Value: name})
	}

	candidates = append(candidates, classCandidates(n, parsed)...)
	candidates = append(candidates, attributeCandidates(n, parsed)...)

	if text := dom.Text(n); text != "" {
		candidates = append(candidates, entity.Candidate{
			Type:  entity.StrategyText,
			Value: "//" + parsed + "[normalize-space(.)='" + text + "']",
		})
	}

	return candidates
}

func classCandidates(n *html.Node, tag string) []entity.Candidate {
	seen := make(map[string]bool)
	var tokens []string
	for _, c := range dom.Classes(n) {
		if c == MarkerClass || seen[c] || !SafeToken(c) {
			continue
		}
		seen[c] = true
		tokens = append(tokens, c)
	}

	var exprs []string
	if len(tokens) == 1 {
		exprs = append(exprs, tag+"[@class='"+tokens[0]+"']")
	}
	for _, c := range tokens {
		exprs = append(exprs, tag+"[contains(@class,'"+c+"')]")
	}

	out := make([]entity.Candidate, 0, len(exprs))
	for _, e := range dedupe(exprs) {
		out = append(out, entity.Candidate{Type: entity.StrategyClass, Value: e})
	}

	return out
}

func attributeCandidates(n *html.Node, tag string) []entity.Candidate {
	var out []entity.Candidate
	for _, a := range n.Attr {
		if a.Namespace != "" || skippedAttrs[a.Key] || !SafeToken(a.Val) {
			continue
		}

		out = append(out,
			entity.Candidate{Type: entity.StrategyAttribute, Value: tag + "[" + a.Key + "='" + a.Val + "']"},
			entity.Candidate{Type: entity.StrategyAttribute, Value: "//" + tag + "[@" + a.Key + "='" + a.Val + "']"},
		)
	}

	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}
