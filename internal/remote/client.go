// Package remote is the HTTP/JSON client for the commerce API: cart, orders and catalog resources.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderCartID         = "X-Cart-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ErrCircuitOpen is returned without contacting the server while the breaker is open.
var ErrCircuitOpen = errors.New("remote api unavailable: circuit open")

// errServerFailure marks 5xx responses as breaker failures. It never leaves this package.
var errServerFailure = errors.New("server failure")

// APIError is a non-2xx response. Message is the server's message verbatim.
type APIError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("remote api returned %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport is wrapped by otelhttp. nil means http.DefaultTransport.
	Transport http.RoundTripper
	// BreakerFailures is the number of consecutive failures that opens the breaker. 0 means 5.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewClient(cfg Config, m *metrics.Metrics, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	hc := &http.Client{Transport: otelhttp.NewTransport(base)}
	rc := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			if r.Header.Get(HeaderRequestID) == "" {
				id := logger.RequestID(r.Context())
				if id == "" {
					id = uuid.NewString()
				}
				r.SetHeader(HeaderRequestID, id)
			}
			return nil
		})

	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    "remote-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http:    rc,
		breaker: cb,
		metrics: m,
		logger:  log,
	}
}

// do sends one request through the breaker. Non-2xx responses become *APIError;
// only transport errors and 5xx count against the breaker.
func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.http.R().SetContext(ctx)
		if build != nil {
			build(req)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})

	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}
	c.metrics.Remote(method, status, time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrCircuitOpen)
	}
	if err != nil && !errors.Is(err, errServerFailure) {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := newAPIError(resp)
		logger.WithContext(ctx, c.logger).Debug("remote api error",
			"method", method, "path", path, "status", apiErr.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, build func(*resty.Request)) error {
	resp, err := c.do(ctx, http.MethodGet, path, build)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *resty.Response, out any) error {
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL, err)
	}
	return nil
}

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Title   string              `json:"title"`
	Errors  map[string][]string `json:"errors"`
}

func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	body := resp.Body()

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			apiErr.Message = eb.Message
		case eb.Error != "":
			apiErr.Message = eb.Error
		default:
			apiErr.Message = eb.Title
		}
		apiErr.Errors = eb.Errors
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
