package usecase

import (
	"context"
	"fmt"
	"time"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	"DexPilot/internal/service/ratelimit"
	pkghttp "DexPilot/pkg/http"
	"DexPilot/pkg/logger"
)

// DispatcherConfig selects the execution backend and retry policy.
type DispatcherConfig struct {
	Backend      string        // "kafka" or "http"
	ExecutorURL  string        // http backend endpoint
	MaxAttempts  int           // bounded retry budget
	RetryBackoff time.Duration // initial backoff, doubled per attempt
	RateCapacity float64       // token bucket capacity per bot
	RateRefill   float64       // tokens per second per bot
}

// DefaultDispatcherConfig returns the baseline dispatch policy.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Backend:      "kafka",
		MaxAttempts:  3,
		RetryBackoff: 200 * time.Millisecond,
		RateCapacity: 10,
		RateRefill:   2,
	}
}

// Dispatcher routes approved actions to the execution collaborator over the
// configured backend. Failures retry with backoff; after the budget is
// exhausted the cycle is marked failed and an alert is raised, leaving ledger
// state untouched until a fill confirms.
type Dispatcher struct {
	cfg     DispatcherConfig
	pub     drepo.ActionPublisher
	client  *pkghttp.Client
	limiter *ratelimit.Limiter
	alerts  drepo.AlertSink
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewDispatcher(
	cfg DispatcherConfig,
	pub drepo.ActionPublisher,
	client *pkghttp.Client,
	limiter *ratelimit.Limiter,
	alerts drepo.AlertSink,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &Dispatcher{
		cfg:     cfg,
		pub:     pub,
		client:  client,
		limiter: limiter,
		alerts:  alerts,
		metrics: metrics,
		log:     log,
	}
}

// Dispatch sends one action. Hold actions are still delivered so the
// execution side observes the cycle heartbeat.
func (d *Dispatcher) Dispatch(ctx context.Context, a *models.Action) error {
	if a == nil {
		return fmt.Errorf("action is nil")
	}
	if d.limiter != nil && !d.limiter.Allow("dispatch:"+a.BotID, d.cfg.RateCapacity, d.cfg.RateRefill) {
		d.metrics.RecordError("dispatch_rate_limited")
		return fmt.Errorf("dispatch rate limited for bot %s", a.BotID)
	}

	start := time.Now()
	backoff := d.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = d.send(ctx, a)
		if lastErr == nil {
			d.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
			return nil
		}
		d.metrics.RecordError("dispatch")
		d.log.Warn("dispatch attempt failed",
			logger.String("bot_id", a.BotID),
			logger.Int("attempt", attempt),
			logger.Error(lastErr))
		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if d.alerts != nil {
		if err := d.alerts.Alert(ctx, "dispatch_failure", a.BotID, lastErr.Error()); err != nil {
			d.log.Error("dispatch alert failed", logger.String("bot_id", a.BotID), logger.Error(err))
		}
	}
	return fmt.Errorf("dispatch exhausted after %d attempts: %w", d.cfg.MaxAttempts, lastErr)
}

func (d *Dispatcher) send(ctx context.Context, a *models.Action) error {
	switch d.cfg.Backend {
	case "kafka":
		return d.pub.Publish(ctx, a)
	case "http":
		return d.client.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodPost,
			URL:    d.cfg.ExecutorURL,
			Body:   a,
		}, nil)
	default:
		return fmt.Errorf("unknown backend: %s", d.cfg.Backend)
	}
}

// Close releases the underlying publisher.
func (d *Dispatcher) Close() {
	if d.pub != nil {
		_ = d.pub.Close()
	}
}
