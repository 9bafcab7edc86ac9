// Package fetch wraps outbound JSON calls with a per-attempt timeout and a
// bounded retry loop. Callers never see an error: a failed call yields
// false and a warning in the log.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"titlevault/internal/metrics"
)

const (
	DefaultRetries = 2
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 8 << 20
)

var errEmptyURL = errors.New("empty url")

// sensitiveParams are redacted from URLs before they reach the log.
var sensitiveParams = []string{"api_key", "apikey", "key", "token"}

type Client struct {
	http    *http.Client
	retries int
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		retries: DefaultRetries,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	headers map[string]string
	retries int
	timeout time.Duration
}

// RequestOption adjusts a single call.
type RequestOption func(*request)

func Header(key, value string) RequestOption {
	return func(r *request) {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return
		}
		if r.headers == nil {
			r.headers = make(map[string]string, 2)
		}
		r.headers[key] = value
	}
}

// RapidAPI sets the key and target-host headers of the RapidAPI proxy
// scheme. Nothing is set unless both values are present.
func RapidAPI(apiKey, host string) RequestOption {
	return func(r *request) {
		if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(host) == "" {
			return
		}
		Header("X-RapidAPI-Key", apiKey)(r)
		Header("X-RapidAPI-Host", host)(r)
	}
}

func Retries(n int) RequestOption {
	return func(r *request) {
		if n >= 0 {
			r.retries = n
		}
	}
}

func Timeout(d time.Duration) RequestOption {
	return func(r *request) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// JSON issues a GET to rawURL and decodes the body into out. It retries
// on transport errors, non-2xx statuses, timeouts and undecodable bodies
// with no delay between attempts. It reports whether out was populated.
func (c *Client) JSON(ctx context.Context, rawURL string, out any, opts ...RequestOption) bool {
	if c == nil {
		return false
	}
	req := request{retries: c.retries, timeout: c.timeout}
	for _, opt := range opts {
		opt(&req)
	}
	host := hostOf(rawURL)

	err := retry.Do(
		func() error {
			err := c.attempt(ctx, rawURL, out, req)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				if errors.Is(err, context.DeadlineExceeded) {
					outcome = "timeout"
				}
			}
			metrics.FetchAttemptsTotal.WithLabelValues(host, outcome).Inc()
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(req.retries+1)),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		metrics.FetchFailuresTotal.WithLabelValues(host).Inc()
		c.logger.Warn("fetch failed",
			slog.String("url", redactURL(rawURL)),
			slog.Int("attempts", req.retries+1),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (c *Client) attempt(ctx context.Context, rawURL string, out any, req request) error {
	if strings.TrimSpace(rawURL) == "" {
		return retry.Unrecoverable(errEmptyURL)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return retry.Unrecoverable(redactError(err))
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return redactError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Host)
}

// redactError scrubs the request URL that net/http embeds in transport
// errors.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for _, param := range sensitiveParams {
		if query.Has(param) {
			query.Set(param, "REDACTED")
			changed = true
		}
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}
