package rengo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const DefaultAPIBaseURL = "https://ralsnet.example.formatline.com/wp-json/rengodb/v1/search-properties"

// ErrPayloadTooLarge is returned when a response body exceeds the read cap.
var ErrPayloadTooLarge = errors.New("rengo: payload too large")

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rengo error %d", e.Code)
	}
	return fmt.Sprintf("rengo error %d: %s", e.Code, e.Body)
}

// Query selects listings of one supplier and property type. Limit <= 0
// leaves the result count to the server.
type Query struct {
	Supplier     string
	PropertyType string
	Limit        int
}

type ClientOptions struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RatePerSecond <= 0 disables outbound throttling.
	RatePerSecond float64
	Burst         int
	MaxBodyBytes  int64
	Logger        *slog.Logger
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	maxBody int64
}

func NewClient(opts ClientOptions) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.RetryMax = max(0, opts.RetryMax)
	rc.HTTPClient.Timeout = 6 * time.Second
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	// hand the final response back so the status can be reported
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	} else {
		rc.Logger = nil
	}

	c := &Client{
		baseURL: opts.BaseURL,
		http:    rc,
		maxBody: opts.MaxBodyBytes,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPIBaseURL
	}
	if c.maxBody <= 0 {
		c.maxBody = 4 << 20
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

// BaseURL is the endpoint used when a request does not override it.
func (c *Client) BaseURL() string { return c.baseURL }

// SearchURL builds the GET URL for q against apiBase, keeping any query
// parameters apiBase already carries.
func SearchURL(apiBase string, q Query) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid api base %q: %w", apiBase, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid api base %q: scheme must be http or https", apiBase)
	}
	v := u.Query()
	v.Set("sup", q.Supplier)
	v.Set("prop", q.PropertyType)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// SearchProperties performs one GET against apiBase (the client's base URL
// when empty) and returns the raw body.
func (c *Client) SearchProperties(ctx context.Context, apiBase string, q Query) ([]byte, error) {
	if apiBase == "" {
		apiBase = c.baseURL
	}
	u, err := SearchURL(apiBase, q)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, u)
}

// Get fetches an already built search URL.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		// with retries exhausted the last response arrives alongside err
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
	}
	if err != nil {
		return nil, err
	}
	return ioReadAllLimit(resp.Body, c.maxBody)
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrPayloadTooLarge
	}
	return b, nil
}
