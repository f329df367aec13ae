package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/rals-widget/http"
	"github.com/yourorg/rals-widget/internal/widget"
)

type CardsDeps struct {
	Resolver         *widget.Resolver
	AllowAPIOverride bool
}

// RegisterCards exposes the normalized display records of a widget
// instance as JSON. It accepts the same query parameters as /widget.
func RegisterCards(r chi.Router, d CardsDeps) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/cards", func(w http.ResponseWriter, req *http.Request) {
			opts := httpapi.OptionsFromRequest(req, d.AllowAPIOverride)
			res := d.Resolver.Resolve(req.Context(), opts)
			if res.Err != nil {
				// the resolver logs the cause; upstream text stays server side
				render.Status(req, http.StatusBadGateway)
				render.JSON(w, req, map[string]any{"ok": false, "error": "upstream_error"})
				return
			}
			render.JSON(w, req, map[string]any{
				"ok":    true,
				"count": len(res.Records),
				"cards": res.Records,
			})
		})
	})
}
