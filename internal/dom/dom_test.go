package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const page = `<html><head><title>t</title></head><body>
<ul id="list"><li class="item">one</li><li class="item locator-highlight">two</li></ul>
<p>  Hello <b>world</b>  </p>
</body></html>`

func mustParse(t *testing.T, s string) *html.Node {
	t.Helper()

	doc, err := ParseString(s)
	require.NoError(t, err)

	return doc
}

func TestTextConcatenatesDescendants(t *testing.T) {
	doc := mustParse(t, page)

	p := FindFirst(doc, func(n *html.Node) bool { return Tag(n) == "p" })
	require.NotNil(t, p)
	assert.Equal(t, "Hello world", Text(p))
}

func TestSiblingCounts(t *testing.T) {
	doc := mustParse(t, page)

	items := ElementChildren(FindByID(doc, "list"))
	require.Len(t, items, 2)

	assert.Equal(t, 0, PrecedingSameTag(items[0]))
	assert.Equal(t, 1, FollowingSameTag(items[0]))
	assert.Equal(t, 1, PrecedingSameTag(items[1]))
	assert.Equal(t, 0, FollowingSameTag(items[1]))
}

func TestResolveIndexPath(t *testing.T) {
	doc := mustParse(t, page)

	// html > body(1) > ul(0) > li(1)
	n, err := ResolveIndexPath(doc, []int{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "li", Tag(n))
	assert.Equal(t, "two", Text(n))

	root, err := ResolveIndexPath(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "html", Tag(root))

	_, err = ResolveIndexPath(doc, []int{1, 7})
	assert.Error(t, err)
}

func TestRemoveClass(t *testing.T) {
	doc := mustParse(t, `<body><div class="locator-highlight"></div><span class="a locator-highlight b"></span><i class="c"></i></body>`)

	assert.Equal(t, 2, RemoveClass(doc, "locator-highlight"))

	div := FindFirst(doc, func(n *html.Node) bool { return Tag(n) == "div" })
	_, ok := Attr(div, "class")
	assert.False(t, ok)

	span := FindFirst(doc, func(n *html.Node) bool { return Tag(n) == "span" })
	assert.Equal(t, []string{"a", "b"}, Classes(span))
}

func TestBodyAndRoot(t *testing.T) {
	doc := mustParse(t, page)

	body := Body(doc)
	require.NotNil(t, body)
	assert.Equal(t, "body", Tag(body))
	assert.Equal(t, doc, Root(body))
	assert.Equal(t, "html", Tag(DocumentElement(body)))
	assert.Nil(t, ParentElement(DocumentElement(doc)))
}
