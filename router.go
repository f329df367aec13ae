package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/rals-widget/http"
	httpv1 "github.com/yourorg/rals-widget/http/v1"
	"github.com/yourorg/rals-widget/internal/logger"
	"github.com/yourorg/rals-widget/internal/widget"
)

type RouterDeps struct {
	Resolver         *widget.Resolver
	Logger           *slog.Logger
	AllowAPIOverride bool
	// RateLimitPerMin <= 0 disables the per-IP limit.
	RateLimitPerMin int
}

func BuildRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware(d.Logger))
	if d.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(d.RateLimitPerMin, 1*time.Minute)) // protect upstream catalog
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	httpapi.RegisterWidget(r, httpapi.WidgetDeps{Resolver: d.Resolver, AllowAPIOverride: d.AllowAPIOverride})
	httpv1.RegisterCards(r, httpv1.CardsDeps{Resolver: d.Resolver, AllowAPIOverride: d.AllowAPIOverride})

	return r
}
