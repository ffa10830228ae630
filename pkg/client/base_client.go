package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"weathercompare/internal/models"
)

// Contractual windows every adapter truncates to. The rest of the system
// assumes no record exceeds these.
const (
	maxHourlyPoints = 24
	maxDailyPoints  = 10
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig bundles the per-request timeout and resilience settings shared
// by every adapter.
type ClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Multiplier     float64
	BreakerTimeout time.Duration
}

// BaseClient is the HTTP layer under every provider adapter: bounded timeout,
// exponential-backoff retry for transient failures, and a per-provider
// circuit breaker. Unauthorized and rate-limited responses are never retried.
type BaseClient struct {
	provider   string
	client     HTTPClient
	logger     *zap.Logger
	breaker    *gobreaker.CircuitBreaker
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration
	multiplier float64
}

func NewBaseClient(provider string, config ClientConfig, logger *zap.Logger) *BaseClient {
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BaseClient{
		provider:   provider,
		client:     &http.Client{Timeout: config.Timeout},
		logger:     logger,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		multiplier: config.Multiplier,
	}
}

// SetHeader adds a default header sent with every request (e.g. the
// User-Agent the NWS API requires).
func (c *BaseClient) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

// SetHTTPClient swaps the underlying transport; used by tests.
func (c *BaseClient) SetHTTPClient(hc HTTPClient) {
	c.client = hc
}

// GetJSON fetches url and decodes the body into out. A 2xx body that fails to
// decode is reported as malformed-response, not transport.
func (c *BaseClient) GetJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewProviderError(c.provider, models.FailureMalformedResponse, err)
	}
	return nil
}

// Get fetches url through the circuit breaker with bounded retries.
func (c *BaseClient) Get(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getWithRetry(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, models.NewProviderError(c.provider, models.FailureUnavailable, err)
		}
		return nil, err
	}
	body, ok := result.([]byte)
	if !ok {
		return nil, models.NewProviderError(c.provider, models.FailureTransport,
			fmt.Errorf("unexpected result type from circuit breaker"))
	}
	return body, nil
}

func (c *BaseClient) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryDelay) * math.Pow(c.multiplier, float64(attempt-1)))
			c.logger.Debug("Retrying request",
				zap.String("provider", c.provider),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, models.NewProviderError(c.provider, models.FailureTimeout, ctx.Err())
			case <-time.After(delay):
			}
		}

		body, err := c.doOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var pe *models.ProviderError
		if errors.As(err, &pe) && !pe.Kind.Retryable() {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *BaseClient) doOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewProviderError(c.provider, models.FailureTransport, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		kind := models.FailureTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = models.FailureTimeout
		}
		c.logger.Warn("HTTP request failed",
			zap.String("provider", c.provider),
			zap.Error(err))
		return nil, models.NewProviderError(c.provider, kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, models.NewProviderError(c.provider, models.FailureTransport, err)
		}
		return body, nil
	}

	kind := classifyStatus(resp.StatusCode)
	c.logger.Warn("HTTP request returned error status",
		zap.String("provider", c.provider),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", string(kind)))
	return nil, models.NewProviderError(c.provider, kind, fmt.Errorf("HTTP %d", resp.StatusCode))
}

func classifyStatus(status int) models.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.FailureUnauthorized
	case status == http.StatusTooManyRequests:
		return models.FailureRateLimited
	case status >= 500:
		return models.FailureUnavailable
	case status >= 400:
		// A definitive answer, e.g. NWS returning 404 for coordinates
		// outside its coverage. Retrying cannot change it.
		return models.FailureRejected
	default:
		return models.FailureTransport
	}
}
