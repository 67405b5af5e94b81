package console

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"locator-capture/internal/entity"
	"locator-capture/pkg/logg"
)

const maxHintText = 80

// Prompter asks the operator to name elements that could not be described
// automatically. An empty name cancels the capture.
type Prompter struct {
	term   *Terminal
	logger *zap.Logger
}

func NewPrompter(term *Terminal, logger *zap.Logger) *Prompter {
	return &Prompter{
		term:   term,
		logger: logger.With(zap.String(logg.Layer, "Prompter")),
	}
}

func (p *Prompter) PromptIdentity(ctx context.Context, hint entity.IdentityHint) (entity.Identity, bool) {
	p.logger.Debug("Asking operator to identify element", zap.String(logg.Tag, hint.Tag))

	p.term.Println()
	p.term.Printf("Could not describe <%s>%s\n", hint.Tag, describeHint(hint))

	name, ok := p.term.Ask(ctx, "  Element name (empty to skip): ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		p.term.Println("  Skipped.")

		return entity.Identity{}, false
	}

	typ, ok := p.term.Ask(ctx, "  Element type ["+hint.Fallback.Type+"]: ")
	if !ok {
		return entity.Identity{}, false
	}

	return entity.Identity{Name: name, Type: strings.TrimSpace(typ)}, true
}

func describeHint(hint entity.IdentityHint) string {
	var b strings.Builder

	if text := strings.Join(strings.Fields(hint.Text), " "); text != "" {
		runes := []rune(text)
		if len(runes) > maxHintText {
			text = string(runes[:maxHintText]) + "..."
		}
		b.WriteString(" text=\"" + text + "\"")
	}

	keys := make([]string, 0, len(hint.Attributes))
	for k := range hint.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(" " + k + "=\"" + hint.Attributes[k] + "\"")
	}

	return b.String()
}
