// Package websearch offers "search the web for ..." items: as fallbacks when nothing else
// matched, and as regular matches when a query starts with an engine trigger.
package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/itemid"
	"github.com/hyperjump/yobidashi/internal/models"
)

// Name is the provider name stamped on items.
const Name = "websearch"

// triggerScore ranks triggered searches above ordinary matches.
const triggerScore = 200

// Engine is a search engine. URL contains %s where the query-escaped term goes.
type Engine struct {
	Name    string
	URL     string
	Trigger string
}

// Provider implements extension.Handler and extension.FallbackProvider.
type Provider struct {
	engines []Engine
	opener  string
}

// Option configures a Provider.
type Option func(*Provider)

// WithOpener sets the URL opener used by produced items.
func WithOpener(opener string) Option {
	return func(p *Provider) { p.opener = opener }
}

// New returns a provider over engines. Engines without a %s placeholder are dropped.
func New(engines []Engine, opts ...Option) *Provider {
	p := &Provider{}
	for _, e := range engines {
		if e.Name == "" || !strings.Contains(e.URL, "%s") {
			continue
		}
		p.engines = append(p.engines, e)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engines returns the usable engines.
func (p *Provider) Engines() []Engine { return append([]Engine(nil), p.engines...) }

// Name implements extension.Handler.
func (p *Provider) Name() string { return Name }

// HandleQuery matches queries of the form "<trigger> <terms>".
func (p *Provider) HandleQuery(_ context.Context, q extension.Query) error {
	raw := strings.TrimSpace(q.Term().Raw())
	trigger, rest, ok := strings.Cut(raw, " ")
	rest = strings.TrimSpace(rest)
	if !ok || rest == "" {
		return nil
	}
	for i := range p.engines {
		e := p.engines[i]
		if e.Trigger != "" && strings.EqualFold(e.Trigger, trigger) {
			q.AddMatch(p.item(e, rest), triggerScore)
		}
	}
	return nil
}

// Fallbacks implements extension.FallbackProvider.
func (p *Provider) Fallbacks(term models.Term) []*models.Item {
	if term.IsEmpty() {
		return nil
	}
	text := strings.TrimSpace(term.Raw())
	items := make([]*models.Item, 0, len(p.engines))
	for _, e := range p.engines {
		items = append(items, p.item(e, text))
	}
	return items
}

func (p *Provider) item(e Engine, text string) *models.Item {
	target := strings.Replace(e.URL, "%s", url.QueryEscape(text), 1)
	return &models.Item{
		ID:       itemid.ForKey(Name, e.Name),
		Text:     fmt.Sprintf("Search %s for '%s'", e.Name, text),
		Subtext:  target,
		Provider: Name,
		Action:   &models.URLAction{URL: target, Opener: p.opener},
	}
}
