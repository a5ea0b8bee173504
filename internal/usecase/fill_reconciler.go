package usecase

import (
	"context"
	"fmt"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	"DexPilot/pkg/logger"
	"DexPilot/pkg/queue"
)

// FillReconciler is the queue job that applies a confirmed fill to the ledger,
// the performance tracker, and the durable fill store. Reconciliation is
// asynchronous relative to dispatch: the ledger only moves once a fill
// confirms.
type FillReconciler struct {
	ledger  *Ledger
	tracker *Tracker
	store   drepo.FillLedger
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewFillReconciler(ledger *Ledger, tracker *Tracker, store drepo.FillLedger, metrics drepo.Metrics, log *logger.Logger) *FillReconciler {
	return &FillReconciler{ledger: ledger, tracker: tracker, store: store, metrics: metrics, log: log}
}

func (j *FillReconciler) Name() string { return "fill-reconciler" }

func (j *FillReconciler) Type() string { return FillReconcileType }

func (j *FillReconciler) Handle(ctx context.Context, payload interface{}) error {
	fill, err := queue.ParsePayload[models.Fill](payload)
	if err != nil {
		j.metrics.RecordError("fill_payload")
		return fmt.Errorf("parse fill payload: %w", err)
	}

	// Stamp the capital the ledger will hold once this fill applies, so the
	// durable record and the tracker's equity curve agree.
	if fill.Success {
		if alloc, err := j.ledger.Bot(ctx, fill.BotID); err == nil {
			fill.Capital = alloc.AllocatedCapital + fill.PnL - fill.Fee
			if fill.Capital < 0 {
				fill.Capital = 0
			}
		}
	}

	if j.store != nil {
		if err := j.store.Append(ctx, fill); err != nil {
			j.metrics.RecordError("fill_store")
			return fmt.Errorf("append fill: %w", err)
		}
	}

	if !fill.Success {
		j.log.Warn("execution reported failed fill",
			logger.String("bot_id", fill.BotID),
			logger.String("pair", fill.Pair))
		return nil
	}

	if err := j.ledger.ApplyFill(ctx, fill); err != nil {
		j.metrics.RecordError("fill_apply")
		return fmt.Errorf("apply fill: %w", err)
	}

	j.tracker.Record(models.TradeRecord{
		BotID:    fill.BotID,
		Pair:     fill.Pair,
		Strategy: fill.Strategy,
		PnL:      fill.PnL,
		Fee:      fill.Fee,
		Capital:  fill.Capital,
		At:       fill.At,
	})
	return nil
}

var _ queue.Job = (*FillReconciler)(nil)
