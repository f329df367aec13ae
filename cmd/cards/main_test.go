package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/rals-widget/internal/card"
	"github.com/yourorg/rals-widget/internal/catalog"
	"github.com/yourorg/rals-widget/internal/widget"
	"github.com/yourorg/rals-widget/rengo"
)

func newJob(t *testing.T, outDir string, stdout *bytes.Buffer) *renderJob {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sup") == "500" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"propertyPrice": 85000, "buildingId": "B1"}]`))
	}))
	t.Cleanup(srv.Close)

	lg := slog.New(slog.DiscardHandler)
	client := rengo.NewClient(rengo.ClientOptions{BaseURL: srv.URL})
	resolver := widget.NewResolver(catalog.Direct{Client: client}, card.Config{}, lg)
	resolver.APIBase = client.BaseURL()
	return &renderJob{
		resolver: resolver,
		widgets:  []widget.Options{{Name: "home"}, {Name: "broken", Supplier: "500"}},
		outDir:   outDir,
		stdout:   stdout,
		logger:   lg,
	}
}

func TestRunOnce_WritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	job := newJob(t, dir, nil)

	err := job.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "widget broken") {
		t.Fatalf("expected the broken widget to be reported, got %v", err)
	}

	home, err := os.ReadFile(filepath.Join(dir, "home.html"))
	if err != nil {
		t.Fatalf("read home: %v", err)
	}
	if !strings.Contains(string(home), "8.5万円") {
		t.Errorf("unexpected home markup %s", home)
	}
	broken, err := os.ReadFile(filepath.Join(dir, "broken.html"))
	if err != nil {
		t.Fatalf("read broken: %v", err)
	}
	if !strings.Contains(string(broken), string(widget.ErrorMessage)) {
		t.Errorf("expected error message in broken widget, got %s", broken)
	}
	if _, err := os.Stat(filepath.Join(dir, "home.html.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestRunOnce_Stdout(t *testing.T) {
	var out bytes.Buffer
	job := newJob(t, "", &out)
	job.widgets = job.widgets[:1]

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "<!-- home -->\n") || !strings.Contains(out.String(), "property-card") {
		t.Errorf("unexpected stdout %s", out.String())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	job := newJob(t, "", &out)
	job.widgets = job.widgets[:1]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Run(ctx, time.Hour); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
