package locator

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"locator-capture/internal/dom"
)

// NotAvailable marks a display name or type that could not be derived.
const NotAvailable = "N/A"

const maxDisplayTextLen = 50

// Classify returns a friendly element kind. The boolean is false when no
// category applies and the raw tag is returned as a fallback.
func Classify(n *html.Node) (string, bool) {
	tag := dom.Tag(n)
	if tag == "" {
		return NotAvailable, false
	}

	switch tag {
	case "input":
		typ := strings.ToLower(strings.TrimSpace(dom.AttrValue(n, "type")))
		if typ == "" {
			typ = "text"
		}

		switch typ {
		case "text", "password", "email", "search", "tel", "url":
			return "Textfield", true
		case "submit", "button", "reset":
			return "Button", true
		case "checkbox":
			return "Checkbox", true
		case "radio":
			return "Radio Button", true
		case "file":
			return "File Input", true
		case "hidden":
			return "Hidden Input", true
		}
	case "textarea":
		return "Textarea", true
	case "select":
		return "Dropdown", true
	case "button":
		return "Button", true
	case "a":
		return "Link", true
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "Heading", true
	case "img":
		return "Image", true
	case "p", "span", "div":
		return "Text/Container", true
	}

	return tag, false
}

// DisplayName picks a human label for n: short own text, then placeholder,
// aria-label, title, and finally the text of a <label for=id>.
func DisplayName(n *html.Node) string {
	if text := dom.Text(n); text != "" && utf8.RuneCountInString(text) < maxDisplayTextLen {
		return text
	}

	for _, key := range []string{"placeholder", "aria-label", "title"} {
		if v := dom.AttrValue(n, key); v != "" {
			return v
		}
	}

	if id := dom.AttrValue(n, "id"); id != "" {
		label := dom.FindFirst(dom.Root(n), func(c *html.Node) bool {
			return dom.Tag(c) == "label" && dom.AttrValue(c, "for") == id
		})
		if label != nil {
			if text := dom.Text(label); text != "" {
				return text
			}
		}
	}

	return NotAvailable
}
