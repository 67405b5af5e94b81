package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
)

type fakePrompter struct {
	answer entity.Identity
	ok     bool
	calls  int
	hint   entity.IdentityHint
}

func (f *fakePrompter) PromptIdentity(_ context.Context, hint entity.IdentityHint) (entity.Identity, bool) {
	f.calls++
	f.hint = hint

	return f.answer, f.ok
}

func newTestSynthesizer(t *testing.T, p *fakePrompter) *Synthesizer {
	params := Params{Logger: zaptest.NewLogger(t)}
	if p != nil {
		params.Prompter = p
	}

	return NewSynthesizer(params)
}

func TestSynthesizeButtonScenario(t *testing.T) {
	doc := parse(t, `<html><body><form><button id="submit-btn">Go</button></form></body></html>`)
	s := newTestSynthesizer(t, nil)

	result, ok := s.Synthesize(context.Background(), dom.FindByID(doc, "submit-btn"))
	require.True(t, ok)

	assert.Equal(t, "Go", result.ElementName)
	assert.Equal(t, "Button", result.ElementType)
	assert.Equal(t, []entity.Candidate{
		{Type: entity.StrategyTag, Value: "button"},
		{Type: entity.StrategyID, Value: "submit-btn"},
		{Type: entity.StrategyText, Value: "//button[normalize-space(.)='Go']"},
	}, result.UniqueLocators)
}

func TestSynthesizeSiblingFallback(t *testing.T) {
	doc := parse(t, `<html><body><ul><li class="item"></li><li class="item"></li></ul></body></html>`)
	s := newTestSynthesizer(t, nil)

	lis := dom.ElementChildren(first(t, doc, "ul"))
	require.Len(t, lis, 2)

	r1, ok := s.Synthesize(context.Background(), lis[0])
	require.True(t, ok)
	r2, ok := s.Synthesize(context.Background(), lis[1])
	require.True(t, ok)

	assert.Equal(t, []entity.Candidate{{Type: entity.StrategyStructuralPath, Value: "//body/ul/li[1]"}}, r1.UniqueLocators)
	assert.Equal(t, []entity.Candidate{{Type: entity.StrategyStructuralPath, Value: "//body/ul/li[2]"}}, r2.UniqueLocators)
}

func TestSynthesizeBareNodeFallsBackToPath(t *testing.T) {
	doc := parse(t, `<html><body><div><div></div></div><div></div></body></html>`)
	s := newTestSynthesizer(t, nil)

	inner := dom.ElementChildren(first(t, doc, "div"))[0]
	result, ok := s.Synthesize(context.Background(), inner)
	require.True(t, ok)

	require.Len(t, result.UniqueLocators, 1)
	only := result.UniqueLocators[0]
	assert.Equal(t, entity.StrategyStructuralPath, only.Type)
	assert.Equal(t, "//body/div[1]/div", only.Value)
	assert.Equal(t, 1, Evaluate(doc, only.Type, only.Value))
}

const richPage = `<html><head><title>Shop</title></head><body>
<header class="top"><a href="/" class="logo">Shop</a><nav><a href="/cart">Cart</a><a href="/help" title="Help">?</a></nav></header>
<main>
  <h1>Products</h1>
  <ul class="grid">
    <li class="card"><span class="price">10</span><button type="button" class="buy">Buy</button></li>
    <li class="card"><span class="price">12</span><button type="button" class="buy">Buy</button></li>
  </ul>
  <form id="search" action="/s">
    <label for="q">Query</label><input id="q" name="q" placeholder="Search">
    <input type="checkbox" name="in-stock" id="stock"><select name="sort"><option>a</option><option>b</option></select>
    <textarea name="notes"></textarea>
    <input type="submit" value="Go">
  </form>
  <p>Text with <b>bold</b> and "quotes" and it's tricky</p>
  <div></div><div><img src="/x.png" alt="X"></div>
</main>
</body></html>`

func TestSynthesizeEveryElementIsUniqueAndDeterministic(t *testing.T) {
	doc := parse(t, richPage)
	s := newTestSynthesizer(t, nil)
	ctx := WithoutPrompt(context.Background())

	dom.Walk(doc, func(n *html.Node) {
		got, ok := s.Synthesize(ctx, n)
		require.True(t, ok)
		require.NotEmpty(t, got.UniqueLocators, BuildPath(n))

		for _, c := range got.UniqueLocators {
			assert.Equal(t, 1, Evaluate(doc, c.Type, c.Value), "%s %s", c.Type, c.Value)
		}

		again, ok := s.Synthesize(ctx, n)
		require.True(t, ok)
		assert.Equal(t, got, again)
	})
}

func TestSynthesizePromptsWhenIdentityUnresolved(t *testing.T) {
	doc := parse(t, `<html><body><section></section></body></html>`)
	p := &fakePrompter{answer: entity.Identity{Name: "Hero", Type: "Region"}, ok: true}
	s := newTestSynthesizer(t, p)

	result, ok := s.Synthesize(context.Background(), first(t, doc, "section"))
	require.True(t, ok)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "section", p.hint.Tag)
	assert.Equal(t, entity.Identity{Name: NotAvailable, Type: "section"}, p.hint.Fallback)
	assert.Equal(t, "Hero", result.ElementName)
	assert.Equal(t, "Region", result.ElementType)
	assert.NotEmpty(t, result.UniqueLocators)
}

func TestSynthesizeKeepsFallbackForBlankAnswers(t *testing.T) {
	doc := parse(t, `<html><body><section></section></body></html>`)
	p := &fakePrompter{answer: entity.Identity{Name: "Hero"}, ok: true}
	s := newTestSynthesizer(t, p)

	result, ok := s.Synthesize(context.Background(), first(t, doc, "section"))
	require.True(t, ok)
	assert.Equal(t, "Hero", result.ElementName)
	assert.Equal(t, "section", result.ElementType)
}

func TestSynthesizeCancelledPromptYieldsNoResult(t *testing.T) {
	doc := parse(t, `<html><body><section></section></body></html>`)
	p := &fakePrompter{ok: false}
	s := newTestSynthesizer(t, p)

	result, ok := s.Synthesize(context.Background(), first(t, doc, "section"))
	assert.False(t, ok)
	assert.Nil(t, result)
	assert.Equal(t, 1, p.calls)
}

func TestSynthesizeDoesNotPromptForNamedOrClassifiedElements(t *testing.T) {
	doc := parse(t, `<html><body><div></div><section title="Hero"></section></body></html>`)
	p := &fakePrompter{ok: false}
	s := newTestSynthesizer(t, p)

	result, ok := s.Synthesize(context.Background(), first(t, doc, "div"))
	require.True(t, ok)
	assert.Equal(t, NotAvailable, result.ElementName)
	assert.Equal(t, "Text/Container", result.ElementType)

	result, ok = s.Synthesize(context.Background(), first(t, doc, "section"))
	require.True(t, ok)
	assert.Equal(t, "Hero", result.ElementName)

	assert.Zero(t, p.calls)
}

func TestSynthesizeWithoutPromptContext(t *testing.T) {
	doc := parse(t, `<html><body><section></section></body></html>`)
	p := &fakePrompter{ok: false}
	s := newTestSynthesizer(t, p)

	result, ok := s.Synthesize(WithoutPrompt(context.Background()), first(t, doc, "section"))
	require.True(t, ok)
	assert.Equal(t, NotAvailable, result.ElementName)
	assert.Equal(t, "section", result.ElementType)
	assert.Zero(t, p.calls)
}

func TestSynthesizeNonElement(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	result, ok := s.Synthesize(context.Background(), &html.Node{Type: html.TextNode, Data: "x"})
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestSynthesizeCamelCaseSVGElement(t *testing.T) {
	doc := parse(t, `<html><body><svg><foreignObject/><foreignObject/><clipPath id="clip" class="mask"/></svg></body></html>`)
	synth := newTestSynthesizer(t, nil)

	objects := dom.ElementChildren(first(t, doc, "svg"))
	for _, n := range objects {
		result, ok := synth.Synthesize(context.Background(), n)
		require.True(t, ok)
		require.NotEmpty(t, result.UniqueLocators)

		for _, c := range result.UniqueLocators {
			assert.Equal(t, 1, Evaluate(doc, c.Type, c.Value), "%s %q", c.Type, c.Value)
		}
	}

	result, ok := synth.Synthesize(context.Background(), objects[0])
	require.True(t, ok)
	assert.Equal(t, []entity.Candidate{{Type: entity.StrategyStructuralPath, Value: "//body/svg/foreignObject[1]"}}, result.UniqueLocators)

	result, ok = synth.Synthesize(context.Background(), objects[2])
	require.True(t, ok)
	assert.Contains(t, result.UniqueLocators, entity.Candidate{Type: entity.StrategyClass, Value: "clipPath[@class='mask']"})
}
