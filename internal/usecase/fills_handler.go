package usecase

import (
	"context"
	"encoding/json"
	"time"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	pkgkafka "DexPilot/pkg/kafka"
	"DexPilot/pkg/queue"
)

// FillReconcileType is the queue message type for asynchronous fill
// reconciliation.
const FillReconcileType = "fill.reconcile"

// FillsHandler consumes execution fill reports from Kafka and hands them to
// the reconcile queue. Keeping the Kafka handler thin means a slow ledger or
// store never stalls the consumer group.
type FillsHandler struct {
	topic   string
	queue   queue.QueueService
	metrics drepo.Metrics
}

func NewFillsHandler(topic string, q queue.QueueService, metrics drepo.Metrics) *FillsHandler {
	return &FillsHandler{topic: topic, queue: q, metrics: metrics}
}

func (h *FillsHandler) Topic() string { return h.topic }

// incoming message schema: {bot_id, pair, price, qty, fee, pnl, mark, t, success}
func (h *FillsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		BotID    string  `json:"bot_id"`
		Pair     string  `json:"pair"`
		Strategy string  `json:"strategy"`
		Price    float64 `json:"price"`
		Qty      float64 `json:"qty"`
		Fee      float64 `json:"fee"`
		PnL      float64 `json:"pnl"`
		Mark     float64 `json:"mark"`
		T        int64   `json:"t"`
		Success  bool    `json:"success"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("fill_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("fill_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	fill := models.Fill{
		BotID:    m.BotID,
		Pair:     m.Pair,
		Strategy: models.StrategyKind(m.Strategy),
		Price:    m.Price,
		Quantity: m.Qty,
		Fee:      m.Fee,
		PnL:      m.PnL,
		Mark:     m.Mark,
		At:       time.Unix(m.T, 0).UTC(),
		Success:  m.Success,
	}
	if err := h.queue.PublishMessage(ctx, FillReconcileType, fill); err != nil {
		h.metrics.RecordError("fill_enqueue")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*FillsHandler)(nil)
