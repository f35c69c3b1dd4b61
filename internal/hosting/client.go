// Package hosting is a client for the hosting platform API: domain search and
// pricing, WHOIS, order submission, payment links and location lookup.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxResponseSize = 4 << 20

// Config holds hosting API settings.
type Config struct {
	BaseURL string        `default:"http://localhost:8000" usage:"Hosting API base URL"`
	Key     string        `usage:"Hosting API key sent in the Key header"`
	Timeout time.Duration `default:"30s" usage:"Hosting API request timeout"`
}

// Error is a non-2xx response from the hosting API.
type Error struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hosting %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	tp         trace.TracerProvider
	mp         metric.MeterProvider
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTracerProvider sets the tracer provider of the default transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tp = tp }
}

// WithMeterProvider sets the meter provider of the default transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) { o.mp = mp }
}

// Client talks to the hosting API. Every request carries the Key header.
type Client struct {
	base *url.URL
	key  string
	http *http.Client
}

// NewClient creates a Client for cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		var transportOpts []otelhttp.Option
		if o.tp != nil {
			transportOpts = append(transportOpts, otelhttp.WithTracerProvider(o.tp))
		}
		if o.mp != nil {
			transportOpts = append(transportOpts, otelhttp.WithMeterProvider(o.mp))
		}
		o.httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		}
	}

	return &Client{
		base: base,
		key:  cfg.Key,
		http: o.httpClient,
	}, nil
}

// do sends a request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: marshal request", op)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: create request", op)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Key", c.key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: send request", op)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read response", op)
	}

	zctx.From(ctx).Debug("Hosting API call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
