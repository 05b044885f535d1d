// Package api provides the core plant API HTTP client with bearer-token
// authentication, filter serialization, and error classification.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production plant API root.
const DefaultBaseURL = "https://trefle.io/api/v1"

// Prometheus metrics for plant API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trefle_requests_total",
		Help: "Total plant API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trefle_request_duration_seconds",
		Help:    "Plant API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trefle_errors_total",
		Help: "Total plant API errors by class",
	}, []string{"class"})
)

// Query holds the optional filter objects accepted by filterable endpoints.
// Each non-empty map is JSON-serialized into a single query parameter.
type Query struct {
	Filter    map[string]string
	FilterNot map[string]string
	Order     map[string]string
	Range     map[string]string
}

func (q *Query) apply(params url.Values) error {
	if q == nil {
		return nil
	}
	for name, m := range map[string]map[string]string{
		"filter":     q.Filter,
		"filter_not": q.FilterNot,
		"order":      q.Order,
		"range":      q.Range,
	} {
		if len(m) == 0 {
			continue
		}
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", name, err)
		}
		params.Set(name, string(b))
	}
	return nil
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API (default: DefaultBaseURL).
	BaseURL string

	// Token is the bearer token, sent as the token query parameter on
	// every request (REQUIRED).
	Token string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Logger for request flow; pass a configured handle, there is no
	// ambient global.
	Logger zerolog.Logger
}

// Client is the plant API HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

// New creates a new plant API client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, &ValidationError{Field: "token", Reason: "must not be empty"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		logger:     cfg.Logger.With().Str("component", "api-client").Logger(),
	}, nil
}

// Get performs a GET request against endpoint and decodes the JSON body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, params)
}

// Post performs a POST request with a JSON body against endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, body any, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, params)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing plant API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			Endpoint: endpoint,
			Class:    ErrorClassNetwork,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Class:      ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Plant API request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Class:      class,
			Message:    resp.Status,
		}
	}

	if len(raw) == 0 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Class:      ErrorClassServer,
			Message:    "empty body",
			Err:        ErrEmptyResponse,
		}
	}

	return json.RawMessage(raw), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// HTTPClient returns the underlying HTTP client (for transport interception
// in tests).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
