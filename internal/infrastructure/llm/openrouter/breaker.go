package openrouter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerFailures uint32 = 5
	defaultBreakerTimeout         = 30 * time.Second
	defaultBreakerInterval        = 60 * time.Second
)

type BreakerConfig struct {
	// MaxFailures is the number of consecutive transport failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout  time.Duration
	Interval time.Duration
}

var _ output.LLMPort = (*BreakerClient)(nil)

// BreakerClient fails fast while the provider keeps failing. Only network and rate
// limit failures count; a bad request is the caller's problem, not the provider's.
type BreakerClient struct {
	inner   output.LLMPort
	breaker *gobreaker.CircuitBreaker[*output.ChatResponse]
}

func NewBreakerClient(inner output.LLMPort, cfg BreakerConfig, logger output.LoggerPort) *BreakerClient {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultBreakerTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*output.ChatResponse](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, entity.ErrNetwork) || errors.Is(err, entity.ErrRateLimit))
		},
	})
	return &BreakerClient{inner: inner, breaker: cb}
}

func (c *BreakerClient) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	resp, err := c.breaker.Execute(func() (*output.ChatResponse, error) {
		return c.inner.Chat(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: llm circuit open: %w", entity.ErrNetwork, err)
	}
	return resp, err
}

func (c *BreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
