package repository

import (
	"context"
	"time"

	"DexPilot/internal/domain/models"
)

// SnapshotStream is the market snapshot feed (push).
type SnapshotStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ActionPublisher delivers emitted actions to the execution collaborator.
type ActionPublisher interface {
	Publish(ctx context.Context, a *models.Action) error
	Close() error
}

// FillLedger is the append-only trade/fill store, sufficient to reconstruct
// PnL and drawdown history.
type FillLedger interface {
	Append(ctx context.Context, f *models.Fill) error
	History(ctx context.Context, botID string, from, to time.Time, limit int) ([]*models.Fill, error)
	// Recent returns fills across all bots since from, oldest first, for
	// replay on startup.
	Recent(ctx context.Context, from time.Time, limit int) ([]*models.Fill, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertSink receives alert events: circuit-breaker trips, gate denials,
// dispatch failures.
type AlertSink interface {
	Alert(ctx context.Context, kind, botID, message string) error
}

// Metrics records engine observability signals.
type Metrics interface {
	RecordCycle(botID, outcome string)
	RecordGateDenial(botID, reason string)
	RecordBreakerTrip(botID string)
	RecordCompositeScore(pair string, score, confidence float64)
	RecordLedgerBalances(total, available float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
