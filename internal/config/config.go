package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/rals-widget/internal/card"
	"github.com/yourorg/rals-widget/internal/env"
	"github.com/yourorg/rals-widget/internal/widget"
	"github.com/yourorg/rals-widget/rengo"
)

// Service is the runtime configuration shared by the server and the CLI.
type Service struct {
	Port      int
	LogLevel  string
	LogFormat string

	Catalog rengo.ClientOptions
	Cards   card.Config

	// AllowAPIOverride lets callers pick the catalog endpoint per request.
	AllowAPIOverride bool
	RateLimitPerMin  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	StaleAfter    time.Duration
}

// FromEnv reads the service configuration from the environment.
func FromEnv() (Service, error) {
	s := Service{
		Port:      env.GetInt("PORT", 4002),
		LogLevel:  env.Get("LOG_LEVEL", "info"),
		LogFormat: env.Get("LOG_FORMAT", "json"),
		Catalog: rengo.ClientOptions{
			BaseURL:       env.Get("CATALOG_API_URL", rengo.DefaultAPIBaseURL),
			Timeout:       env.GetDuration("CATALOG_TIMEOUT", 6*time.Second),
			RetryMax:      env.GetInt("CATALOG_RETRY_MAX", 0),
			RatePerSecond: env.GetFloat("CATALOG_RATE_PER_SECOND", 0),
			Burst:         env.GetInt("CATALOG_BURST", 1),
		},
		Cards: card.Config{
			DetailBaseURL:       env.Get("DETAIL_PAGE_BASE_URL", card.DefaultDetailBaseURL),
			ImageBaseURL:        env.Get("IMAGE_BASE_URL", rengo.DefaultImageBaseURL),
			PlaceholderImageURL: env.Get("PLACEHOLDER_IMAGE_URL", rengo.DefaultPlaceholderURL),
			DefaultSupplierID:   env.Get("DEFAULT_SUPPLIER_ID", rengo.DefaultSupplierID),
		},
		AllowAPIOverride: env.GetBool("WIDGET_ALLOW_API_OVERRIDE", false),
		RateLimitPerMin:  env.GetInt("RATE_LIMIT_PER_MIN", 100),
		RedisAddr:        env.Get("REDIS_ADDR", ""),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          env.GetInt("REDIS_DB", 0),
		CacheTTL:         env.GetDuration("CACHE_TTL", time.Hour),
		StaleAfter:       env.GetDuration("CACHE_STALE_AFTER", 5*time.Minute),
	}
	return s, s.Validate()
}

func (s Service) Validate() error {
	var errs []error
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", s.Port))
	}
	if _, err := rengo.SearchURL(s.Catalog.BaseURL, rengo.Query{}); err != nil {
		errs = append(errs, fmt.Errorf("CATALOG_API_URL: %w", err))
	}
	if s.Catalog.RetryMax < 0 {
		errs = append(errs, errors.New("CATALOG_RETRY_MAX must be non-negative"))
	}
	if s.RedisDB < 0 {
		errs = append(errs, errors.New("REDIS_DB must be non-negative"))
	}
	return errors.Join(errs...)
}

// WidgetFile lists the widget instances rendered by the CLI.
type WidgetFile struct {
	Widgets []widget.Options `yaml:"widgets"`
}

// LoadWidgets reads a widget file. Instances without a name are named
// after their position.
func LoadWidgets(path string) ([]widget.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read widget file: %w", err)
	}
	var f WidgetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal widget file: %w", err)
	}
	seen := make(map[string]bool, len(f.Widgets))
	for i := range f.Widgets {
		w := &f.Widgets[i]
		w.Name = strings.TrimSpace(w.Name)
		if w.Name == "" {
			w.Name = fmt.Sprintf("widget-%d", i+1)
		}
		if strings.ContainsAny(w.Name, `/\`) {
			return nil, fmt.Errorf("widget %d: name %q must not contain path separators", i+1, w.Name)
		}
		if seen[w.Name] {
			return nil, fmt.Errorf("widget %d: duplicate name %q", i+1, w.Name)
		}
		seen[w.Name] = true
	}
	return f.Widgets, nil
}
