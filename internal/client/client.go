// Package client talks to the scenario service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// DefaultBaseURL is the local daemon's API root
const DefaultBaseURL = "http://127.0.0.1:7433/api/v1"

// RequestIDHeader carries the correlation id of a request
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 4 << 20

// ErrMalformedResponse is returned when a response body cannot be decoded
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response from the service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s: %s", e.Status, e.Code, e.Message)
}

// Is matches domain.ErrScenarioNotFound for 404 scenario lookups
func (e *APIError) Is(target error) bool {
	return target == domain.ErrScenarioNotFound && e.Status == http.StatusNotFound
}

// Config configures a Client
type Config struct {
	BaseURL string

	// Timeout bounds a single HTTP attempt (default: 15s)
	Timeout time.Duration

	// EnableRetry retries GET requests on 429, 5xx and network errors
	EnableRetry bool

	// MaxAttempts for retry (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 250ms)
	InitialDelay time.Duration

	// EnableCircuitBreaker stops calling a failing service for a while
	EnableCircuitBreaker bool

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns defaults for a local daemon
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		Timeout:              15 * time.Second,
		EnableRetry:          true,
		MaxAttempts:          3,
		InitialDelay:         250 * time.Millisecond,
		EnableCircuitBreaker: true,
	}
}

type response struct {
	status int
	body   []byte
}

// Client is the scenario service API client
type Client struct {
	baseURL        string
	http           *http.Client
	retrier        retry.Retry[*response]
	circuitBreaker circuitbreaker.CircuitBreaker[*response]
	logger         *slog.Logger
}

// New creates a client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = newHTTPClient(cfg.Timeout)
	}

	if cfg.EnableCircuitBreaker {
		c.circuitBreaker = circuitbreaker.New[*response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				c.logger.Warn("circuit breaker state change",
					"service", c.baseURL,
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 250 * time.Millisecond
		}
		c.retrier = retry.New[*response](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// ScenarioList is the response of ListScenarios
type ScenarioList struct {
	Scenarios []domain.ScenarioSummary `json:"scenarios"`
	Total     int                      `json:"total"`
	Topics    []domain.Topic           `json:"topics"`
}

// Filter narrows a scenario listing. Zero values mean no constraint.
type Filter struct {
	Topics     []domain.Topic
	Difficulty domain.Difficulty
}

// Query encodes the filter as URL query parameters
func (f Filter) Query() url.Values {
	q := url.Values{}
	if len(f.Topics) > 0 {
		parts := make([]string, len(f.Topics))
		for i, t := range f.Topics {
			parts[i] = string(t)
		}
		q.Set("topics", strings.Join(parts, ","))
	}
	if f.Difficulty != "" {
		q.Set("difficulty", string(f.Difficulty))
	}
	return q
}

// Health is the service health report
type Health struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ScenariosLoaded int    `json:"scenarios_loaded"`
}

// ListScenarios fetches scenario summaries matching filter
func (c *Client) ListScenarios(ctx context.Context, filter Filter) (*ScenarioList, error) {
	path := "/scenarios"
	if q := filter.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ScenarioList
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if out.Scenarios == nil {
		return nil, fmt.Errorf("list scenarios: %w: missing scenarios", ErrMalformedResponse)
	}
	return &out, nil
}

// GetScenario fetches one scenario's detail
func (c *Client) GetScenario(ctx context.Context, id string) (*domain.ScenarioDetail, error) {
	var out domain.ScenarioDetail
	if err := c.get(ctx, "/scenarios/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("get scenario %s: %w: missing id", id, ErrMalformedResponse)
	}
	return &out, nil
}

// ListTopics fetches topic metadata
func (c *Client) ListTopics(ctx context.Context) ([]domain.TopicInfo, error) {
	var out struct {
		Topics []domain.TopicInfo `json:"topics"`
	}
	if err := c.get(ctx, "/scenarios/topics", &out); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	if out.Topics == nil {
		return nil, fmt.Errorf("list topics: %w: missing topics", ErrMalformedResponse)
	}
	return out.Topics, nil
}

// Validate submits a solution for checking. It is never retried.
func (c *Client) Validate(ctx context.Context, id, solution string) (*domain.ValidationResult, error) {
	body, err := json.Marshal(map[string]string{"solution": solution})
	if err != nil {
		return nil, fmt.Errorf("encode solution: %w", err)
	}

	var out domain.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/scenarios/"+url.PathEscape(id)+"/validate", body, false, &out); err != nil {
		return nil, fmt.Errorf("validate %s: %w", id, err)
	}
	if out.MaxScore < 0 || out.Score < 0 || out.Score > out.MaxScore {
		return nil, fmt.Errorf("validate %s: %w: score %d of %d", id, ErrMalformedResponse, out.Score, out.MaxScore)
	}
	return &out, nil
}

// Health fetches the service health report
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, true, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotent bool, out any) error {
	requestID := uuid.NewString()

	operation := func(ctx context.Context) (*response, error) {
		return c.send(ctx, method, path, body, requestID)
	}

	if c.retrier != nil && idempotent {
		inner := operation
		operation = func(ctx context.Context) (*response, error) {
			return c.retrier.Do(ctx, inner)
		}
	}

	var (
		resp *response
		err  error
	)
	if c.circuitBreaker != nil {
		resp, err = c.circuitBreaker.Execute(ctx, operation)
	} else {
		resp, err = operation(ctx)
	}
	if err != nil {
		return err
	}

	// 4xx responses pass through the breaker as successes
	if resp.status >= 300 {
		return decodeAPIError(resp)
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, requestID string) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	r := &response{status: resp.StatusCode, body: data}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, decodeAPIError(r)
	}
	return r, nil
}

// decodeAPIError reads {error, message}, also accepting it nested under "detail"
func decodeAPIError(r *response) error {
	apiErr := &APIError{Status: r.status, Message: http.StatusText(r.status)}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  *struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(r.body, &body); err != nil {
		return apiErr
	}
	if body.Detail != nil {
		body.Error, body.Message = body.Detail.Error, body.Detail.Message
	}
	if body.Error != "" {
		apiErr.Code = body.Error
	}
	if body.Message != "" {
		apiErr.Message = body.Message
	}
	return apiErr
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
