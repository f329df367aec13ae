package catalog

import (
	"context"

	"github.com/yourorg/rals-widget/rengo"
)

// Request identifies one catalog search.
type Request struct {
	APIBase string
	Query   rengo.Query
}

// URL is the GET URL of the request; it doubles as its identity.
func (r Request) URL() (string, error) {
	base := r.APIBase
	if base == "" {
		base = rengo.DefaultAPIBaseURL
	}
	return rengo.SearchURL(base, r.Query)
}

// Source returns the raw search-properties payload for a request.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Direct queries the catalog on every call.
type Direct struct {
	Client *rengo.Client
}

func (d Direct) Fetch(ctx context.Context, req Request) ([]byte, error) {
	base := req.APIBase
	if base == "" {
		base = d.Client.BaseURL()
	}
	return d.Client.SearchProperties(ctx, base, req.Query)
}
