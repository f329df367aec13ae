package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourorg/rals-widget/internal/card"
	"github.com/yourorg/rals-widget/internal/catalog"
	"github.com/yourorg/rals-widget/internal/widget"
	"github.com/yourorg/rals-widget/rengo"
)

type upstream struct {
	srv   *httptest.Server
	hits  int32
	query atomic.Value // url.Values
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.hits, 1)
		u.query.Store(r.URL.Query())
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newTestRouter(t *testing.T, apiBase string, allowOverride bool) http.Handler {
	t.Helper()
	lg := slog.New(slog.DiscardHandler)
	client := rengo.NewClient(rengo.ClientOptions{BaseURL: apiBase})
	resolver := widget.NewResolver(catalog.Direct{Client: client}, card.Config{}, lg)
	resolver.APIBase = client.BaseURL()
	return BuildRouter(RouterDeps{Resolver: resolver, Logger: lg, AllowAPIOverride: allowOverride})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

const listings = `[
	{"propertyPrice": 120000, "exclusiveSize": 25.5, "area1Name": "東京都", "area2Name": "渋谷区",
	 "trafficDataStr": "渋谷駅 徒歩5分", "buildingId": "B1", "delegateImgBuilding": 1},
	{"propertyPrice": null, "propertyId": "P2"}
]`

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(t, "http://127.0.0.1:1/", false), "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestWidget_HTML(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listings)
	h := newTestRouter(t, up.srv.URL+"/search", false)

	rec := get(t, h, "/widget?sup=3100&prop=1&limit=2&color=%23ff0000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %s", ct)
	}

	q := up.query.Load().(url.Values)
	if q.Get("sup") != "3100" || q.Get("prop") != "1" || q.Get("limit") != "2" {
		t.Errorf("unexpected upstream query %v", q)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if n := doc.Find(".rals-widget-container .property-card").Length(); n != 2 {
		t.Errorf("expected 2 cards, got %d", n)
	}
	if got := strings.TrimSpace(doc.Find(".property-rent").First().Text()); got != "賃料: 12万円" {
		t.Errorf("unexpected rent %q", got)
	}
	if style, _ := doc.Find(".rals-widget").Attr("style"); !strings.Contains(style, "#ff0000") {
		t.Errorf("expected main color in style, got %q", style)
	}
}

func TestWidget_UpstreamFailure(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError, "down")
	rec := get(t, newTestRouter(t, up.srv.URL, false), "/widget")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(widget.ErrorMessage)) {
		t.Errorf("expected error message, got %s", rec.Body.String())
	}
}

func TestWidget_APIOverride(t *testing.T) {
	configured := newUpstream(t, http.StatusOK, `[]`)
	other := newUpstream(t, http.StatusOK, `[]`)
	target := "/widget?api=" + url.QueryEscape(other.srv.URL+"/search")

	get(t, newTestRouter(t, configured.srv.URL, false), target)
	if atomic.LoadInt32(&other.hits) != 0 || atomic.LoadInt32(&configured.hits) != 1 {
		t.Errorf("override must be ignored unless allowed (configured=%d other=%d)", configured.hits, other.hits)
	}

	get(t, newTestRouter(t, configured.srv.URL, true), target)
	if atomic.LoadInt32(&other.hits) != 1 {
		t.Errorf("expected allowed override to reach the other endpoint")
	}
}

func TestCards_JSON(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listings)
	rec := get(t, newTestRouter(t, up.srv.URL, false), "/v1/cards?sup=2000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		OK    bool                 `json:"ok"`
		Count int                  `json:"count"`
		Cards []card.DisplayRecord `json:"cards"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Count != 2 || len(body.Cards) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	first := body.Cards[0]
	if first.Price != "12万円" || first.Area != "7.7坪(25.5㎡)" || first.Transit != "渋谷駅(徒歩5分)" || first.Address != "東京都渋谷区" {
		t.Errorf("unexpected first card %+v", first)
	}
	if body.Cards[1].ImageRule != rengo.RulePlaceholder {
		t.Errorf("expected placeholder for second card, got %s", body.Cards[1].ImageRule)
	}
}

func TestCards_UpstreamFailure(t *testing.T) {
	up := newUpstream(t, http.StatusNotFound, "internal catalog host db-7.local")
	rec := get(t, newTestRouter(t, up.srv.URL, false), "/v1/cards")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	raw := rec.Body.String()
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != false || body["error"] != "upstream_error" {
		t.Errorf("unexpected error body %v", body)
	}
	if _, ok := body["detail"]; ok || len(body) != 2 {
		t.Errorf("error body must carry only ok and error, got %v", body)
	}
	if strings.Contains(raw, "db-7.local") {
		t.Errorf("upstream response leaked to the client: %s", raw)
	}
}
