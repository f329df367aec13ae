package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourorg/rals-widget/internal/widget"
)

type WidgetDeps struct {
	Resolver *widget.Resolver
	// AllowAPIOverride honors the "api" query parameter; otherwise every
	// instance uses the configured catalog endpoint.
	AllowAPIOverride bool
}

// RegisterWidget serves card markup for one widget instance described by
// the query string (sup, prop, limit, detail_url, color, hover_color,
// card_bg, and api when allowed).
func RegisterWidget(r chi.Router, d WidgetDeps) {
	r.Get("/widget", func(w http.ResponseWriter, req *http.Request) {
		opts := OptionsFromRequest(req, d.AllowAPIOverride)
		res := d.Resolver.Resolve(req.Context(), opts)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if res.Err != nil {
			w.WriteHeader(http.StatusBadGateway)
		}
		_, _ = w.Write([]byte(res.HTML))
	})
}

// OptionsFromRequest parses widget options and drops the endpoint override
// unless it is allowed.
func OptionsFromRequest(req *http.Request, allowAPIOverride bool) widget.Options {
	opts := widget.OptionsFromQuery(req.URL.Query())
	if !allowAPIOverride {
		opts.APIBase = ""
	}
	return opts
}
