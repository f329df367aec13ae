package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/rals-widget/internal/card"
	"github.com/yourorg/rals-widget/internal/catalog"
	"github.com/yourorg/rals-widget/internal/logger"
	"github.com/yourorg/rals-widget/rengo"
)

// ErrorMessage replaces the widget body when the catalog cannot be read.
const ErrorMessage template.HTML = `<p>Error loading properties. Please try again later.</p>`

var containerTmpl = template.Must(template.New("container").Parse(
	`<div class="rals-widget{{if .OK}} rals-widget-container{{end}}"` +
		`{{if .Style}} style="{{if .Color}}--rals-main-color: {{.Color}};{{end}}{{if .HoverColor}}--rals-hover-color: {{.HoverColor}};{{end}}{{if .CardBg}}--rals-card-bg: {{.CardBg}};{{end}}"{{end}}>` +
		`{{.Body}}</div>`))

// Result is the outcome of resolving one instance.
type Result struct {
	Name    string               `json:"name,omitempty"`
	HTML    template.HTML        `json:"html"`
	Records []card.DisplayRecord `json:"cards"`
	Cards   int                  `json:"count"`
	Err     error                `json:"-"`
}

// Resolver fetches and renders widget instances.
type Resolver struct {
	src    catalog.Source
	cards  card.Config
	logger *slog.Logger
	// APIBase is used by instances that do not name a catalog endpoint.
	APIBase string
	// Parallel bounds ResolveAll; <= 0 means unbounded.
	Parallel int
}

func NewResolver(src catalog.Source, cards card.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{src: src, cards: cards, logger: logger, Parallel: 8}
}

// Resolve performs the instance's single catalog request and renders it.
// On failure Result.HTML carries only ErrorMessage and Result.Err is set.
func (r *Resolver) Resolve(ctx context.Context, opts Options) Result {
	if opts.APIBase == "" {
		opts.APIBase = r.APIBase
	}
	if opts.DetailBaseURL == "" {
		opts.DetailBaseURL = r.cards.DetailBaseURL
	}
	opts = opts.WithDefaults()
	res := Result{Name: opts.Name}
	lg := r.logger.With("widget", opts.Name)
	if id := logger.RequestID(ctx); id != "" {
		lg = lg.With("request_id", id)
	}

	raw, err := r.src.Fetch(ctx, catalog.Request{APIBase: opts.APIBase, Query: opts.Query()})
	if err != nil {
		return r.fail(lg, res, opts, fmt.Errorf("fetch listings: %w", err))
	}
	listings, skipped, err := rengo.DecodeListings(raw)
	if err != nil && !errors.Is(err, rengo.ErrNotAList) {
		return r.fail(lg, res, opts, fmt.Errorf("decode listings: %w", err))
	}
	if skipped > 0 {
		lg.Warn("catalog elements skipped", "skipped", skipped)
	}

	cfg := r.cards
	cfg.DetailBaseURL = opts.DetailBaseURL
	renderer := card.NewRenderer(card.NewNormalizer(cfg), lg)

	var body template.HTML
	body, res.Records, res.Cards = renderer.RenderListings(listings)
	res.HTML = r.container(lg, opts, body, res.Cards > 0)
	return res
}

// ResolveAll resolves the instances concurrently. They share nothing, so
// one failing never affects another; results keep the input order.
func (r *Resolver) ResolveAll(ctx context.Context, all []Options) []Result {
	out := make([]Result, len(all))
	var g errgroup.Group
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}
	for i, o := range all {
		g.Go(func() error {
			out[i] = r.Resolve(ctx, o)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) fail(lg *slog.Logger, res Result, opts Options, err error) Result {
	lg.Error("widget load failed", "supplier", opts.Supplier, "prop", opts.PropertyType, "error", err)
	res.Err = err
	res.HTML = r.container(lg, opts, ErrorMessage, false)
	return res
}

func (r *Resolver) container(lg *slog.Logger, opts Options, body template.HTML, ok bool) template.HTML {
	data := struct {
		OK                        bool
		Style                     bool
		Color, HoverColor, CardBg template.CSS
		Body                      template.HTML
	}{
		OK:         ok,
		Color:      CSSColor(opts.Color),
		HoverColor: CSSColor(opts.HoverColor),
		CardBg:     CSSColor(opts.CardBg),
		Body:       body,
	}
	data.Style = data.Color != "" || data.HoverColor != "" || data.CardBg != ""
	var buf bytes.Buffer
	if err := containerTmpl.Execute(&buf, data); err != nil {
		lg.Error("render container", "error", err)
		return body
	}
	return template.HTML(buf.String())
}
