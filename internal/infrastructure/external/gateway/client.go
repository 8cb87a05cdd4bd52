// Package gateway implements the guardian notification gateway client.
// It speaks a small JSON API to the SMS/WhatsApp provider and wraps the
// calls in rate limiting, retries and a circuit breaker so a slow or
// flapping provider cannot stall a dispatch run.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
	"github.com/MLAAHL/Smart-Attendance-sub001/pkg/circuitbreaker"
	"github.com/MLAAHL/Smart-Attendance-sub001/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the gateway client.
type Config struct {
	// BaseURL is the provider API base URL.
	BaseURL string

	// APIKey authenticates requests (Bearer token).
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RequestsPerSecond caps the outbound send rate.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size.
	Burst int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 10,
		Burst:             5,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements notification.Gateway against the provider HTTP API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
}

// NewClient creates a gateway client.
func NewClient(config Config) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     config.Logger,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		breaker:    circuitbreaker.NotificationGatewayBreaker(nil),
		retrier:    retry.GatewayRetrier(),
	}
}

// Send delivers one message to a guardian contact. Provider outages and
// throttling are retried; a rejected message (bad number, blocked contact)
// is returned as shared.ErrGatewayRejected without retrying.
func (c *Client) Send(ctx context.Context, contact student.GuardianContact, msg notification.Message) (notification.SendResult, error) {
	var result notification.SendResult

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			res, err := c.sendOnce(ctx, contact, msg)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		if err == circuitbreaker.ErrCircuitOpen || err == circuitbreaker.ErrTooManyRequests {
			return notification.SendResult{}, fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
		}
		return notification.SendResult{}, err
	}
	return result, nil
}

// sendOnce performs a single HTTP exchange. Errors are classified for the
// retrier: retryable for transport failures, throttling and 5xx, permanent
// for provider rejections.
func (c *Client) sendOnce(ctx context.Context, contact student.GuardianContact, msg notification.Message) (notification.SendResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return notification.SendResult{}, retry.Permanent(err)
	}

	payload, err := json.Marshal(sendRequest{
		To:      contact.String(),
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if err != nil {
		return notification.SendResult{}, retry.Permanent(fmt.Errorf("marshal send request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return notification.SendResult{}, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return notification.SendResult{}, retry.Retryable(fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return notification.SendResult{}, retry.Retryable(fmt.Errorf("%w: read response: %v", shared.ErrGatewayUnavailable, err))
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var ack sendResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			return notification.SendResult{}, retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return notification.SendResult{DispatchID: ack.DispatchID}, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warn("gateway send retryable failure",
			slog.Int("status", resp.StatusCode))
		return notification.SendResult{}, retry.Retryable(
			fmt.Errorf("%w: status %d", shared.ErrGatewayUnavailable, resp.StatusCode))

	default:
		return notification.SendResult{}, retry.Permanent(
			fmt.Errorf("%w: status %d: %s", shared.ErrGatewayRejected, resp.StatusCode, string(body)))
	}
}
