// Command cards renders the widget instances listed in a YAML file to
// static HTML, once or on an interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yourorg/rals-widget/internal/catalog"
	"github.com/yourorg/rals-widget/internal/config"
	"github.com/yourorg/rals-widget/internal/env"
	"github.com/yourorg/rals-widget/internal/logger"
	"github.com/yourorg/rals-widget/internal/widget"
	"github.com/yourorg/rals-widget/rengo"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	file := env.Get("WIDGETS_FILE", "widgets.yaml")
	widgets, err := config.LoadWidgets(file)
	if err != nil {
		log.Fatalf("widgets: %v", err)
	}
	if len(widgets) == 0 {
		log.Fatalf("%s lists no widgets", file)
	}
	outDir := env.Get("CARDS_OUTPUT_DIR", "")
	interval := env.GetDuration("CARDS_INTERVAL", 0)

	cfg.Catalog.Logger = lg
	client := rengo.NewClient(cfg.Catalog)
	resolver := widget.NewResolver(catalog.Direct{Client: client}, cfg.Cards, lg)
	resolver.APIBase = client.BaseURL()
	resolver.Parallel = env.GetInt("CARDS_PARALLEL", 4)

	job := &renderJob{resolver: resolver, widgets: widgets, outDir: outDir, stdout: os.Stdout, logger: lg}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interval <= 0 {
		if err := job.RunOnce(rootCtx); err != nil {
			log.Fatalf("render failed: %v", err)
		}
		return
	}
	if err := job.Run(rootCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("render job stopped with error: %v", err)
	}
}

type renderJob struct {
	resolver *widget.Resolver
	widgets  []widget.Options
	outDir   string
	stdout   io.Writer
	logger   *slog.Logger
}

func (j *renderJob) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.logger.Info("render job starting", "interval", interval.String(), "widgets", len(j.widgets))
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("render job initial run error", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("render job stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("render job iteration error", "error", err)
			}
		}
	}
}

// RunOnce renders every widget. A widget whose catalog request failed is
// still written with the error message; its error is returned joined with
// the others.
func (j *renderJob) RunOnce(ctx context.Context) error {
	results := j.resolver.ResolveAll(ctx, j.widgets)
	var joined error
	for _, res := range results {
		if res.Err != nil {
			joined = errors.Join(joined, fmt.Errorf("widget %s: %w", res.Name, res.Err))
		}
		if err := j.write(res); err != nil {
			joined = errors.Join(joined, fmt.Errorf("widget %s write: %w", res.Name, err))
			continue
		}
		j.logger.Info("widget rendered", "widget", res.Name, "cards", res.Cards)
	}
	return joined
}

func (j *renderJob) write(res widget.Result) error {
	if j.outDir == "" {
		_, err := fmt.Fprintf(j.stdout, "<!-- %s -->\n%s\n", res.Name, res.HTML)
		return err
	}
	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(j.outDir, res.Name+".html")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(res.HTML), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
