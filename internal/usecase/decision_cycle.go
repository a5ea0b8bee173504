package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	"DexPilot/internal/services/analyzers"
	"DexPilot/internal/services/features"
	"DexPilot/pkg/logger"
)

// ActionDispatcher delivers an approved action to the execution collaborator.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, a *models.Action) error
}

// DecisionCycle runs one bot's full pipeline: analyzers in parallel, then
// aggregation, strategy evaluation against a consistent ledger snapshot, the
// risk gate, and dispatch. The cycle is deterministic for a fixed now,
// snapshot window, ledger state, and weights.
type DecisionCycle struct {
	set        []analyzers.Analyzer
	agg        *Aggregator
	eval       *Evaluator
	gate       *RiskGate
	ledger     *Ledger
	tracker    *Tracker
	dispatcher ActionDispatcher
	alerts     drepo.AlertSink
	metrics    drepo.Metrics
	log        *logger.Logger
}

func NewDecisionCycle(
	set []analyzers.Analyzer,
	agg *Aggregator,
	eval *Evaluator,
	gate *RiskGate,
	ledger *Ledger,
	tracker *Tracker,
	dispatcher ActionDispatcher,
	alerts drepo.AlertSink,
	metrics drepo.Metrics,
	log *logger.Logger,
) *DecisionCycle {
	return &DecisionCycle{
		set:        set,
		agg:        agg,
		eval:       eval,
		gate:       gate,
		ledger:     ledger,
		tracker:    tracker,
		dispatcher: dispatcher,
		alerts:     alerts,
		metrics:    metrics,
		log:        log,
	}
}

// Run executes one cycle for botID. It returns the emitted action, or a nil
// action when the cycle emitted nothing (gate denial, inactive bot).
func (c *DecisionCycle) Run(ctx context.Context, now time.Time, botID string, w *features.SnapshotWindow) (*models.Action, error) {
	start := time.Now()

	portfolio, err := c.ledger.Snapshot(ctx)
	if err != nil {
		c.metrics.RecordError("ledger_snapshot")
		return nil, fmt.Errorf("ledger snapshot: %w", err)
	}
	alloc, ok := portfolio.Allocation(botID)
	if !ok {
		return nil, fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
	}
	if !alloc.Status.RunsCycles() {
		c.metrics.RecordCycle(botID, "inactive")
		return nil, nil
	}

	signals := make([]models.AnalysisSignal, len(c.set))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range c.set {
		i, a := i, a
		g.Go(func() error {
			signals[i] = a.Analyze(now, w)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		// Abandoned: the interval deadline fired mid-analysis.
		c.metrics.RecordCycle(botID, "abandoned")
		return nil, err
	}

	analyzerW, strategyW := c.tracker.Weights()
	composite := c.agg.Aggregate(signals, analyzerW, w)
	c.metrics.RecordCompositeScore(alloc.Pair, composite.Score, composite.Confidence)

	snap := w.Latest()
	in := EvalInput{
		BotID:     botID,
		Pair:      alloc.Pair,
		Snapshot:  snap,
		Signal:    composite,
		Liquidity: pick(signals, models.AnalyzerLiquidity),
		Alloc:     alloc,
		Now:       now,
	}

	var action models.Action
	if composite.Confidence == 0 {
		c.log.Warn("all analyzers low confidence, holding",
			logger.String("bot_id", botID),
			logger.String("pair", alloc.Pair))
		action = c.eval.gen.Hold(botID, alloc.Pair, now)
	} else {
		action, _ = c.eval.Evaluate(in, strategyW)
	}

	if !action.IsHold() {
		verdict, tripped := c.gate.Check(GateInput{
			Action:        action,
			Alloc:         alloc,
			Drawdown:      c.tracker.Drawdown(botID, now),
			PoolLiquidity: poolLiquidity(snap),
		})
		if !verdict.Allowed {
			for _, reason := range verdict.Reasons {
				c.metrics.RecordGateDenial(botID, reasonKind(reason))
			}
			c.log.Warn("risk gate denied action",
				logger.String("bot_id", botID),
				logger.Strings("reasons", verdict.Reasons))
			if tripped {
				c.tripBreaker(ctx, botID, verdict)
			}
			c.metrics.RecordCycle(botID, "denied")
			return nil, nil
		}
	}

	if err := ctx.Err(); err != nil {
		c.metrics.RecordCycle(botID, "abandoned")
		return nil, err
	}
	if err := c.dispatcher.Dispatch(ctx, &action); err != nil {
		c.metrics.RecordCycle(botID, "dispatch_failed")
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	outcome := "emitted"
	if action.IsHold() {
		outcome = "hold"
	} else {
		c.log.Debug("action dispatched",
			logger.String("bot_id", botID),
			logger.String("strategy", string(action.Kind)),
			logger.Float64("order_size", action.OrderSize),
			logger.Float64("spread_low", action.SpreadLow),
			logger.Float64("spread_high", action.SpreadHigh))
	}
	c.metrics.RecordCycle(botID, outcome)
	c.metrics.RecordLatency("decision_cycle", time.Since(start).Seconds())
	return &action, nil
}

// tripBreaker force-stops the bot after repeated consecutive denials.
func (c *DecisionCycle) tripBreaker(ctx context.Context, botID string, verdict models.RiskVerdict) {
	c.metrics.RecordBreakerTrip(botID)
	c.log.Error("circuit breaker tripped, stopping bot",
		logger.String("bot_id", botID),
		logger.Strings("reasons", verdict.Reasons))
	if err := c.ledger.SetStatus(ctx, botID, models.BotStopped); err != nil {
		c.log.Error("failed to stop bot after breaker trip", logger.String("bot_id", botID), logger.Error(err))
	}
	if c.alerts != nil {
		msg := strings.Join(verdict.Reasons, "; ")
		if err := c.alerts.Alert(ctx, "circuit_breaker", botID, msg); err != nil {
			c.log.Error("breaker alert failed", logger.String("bot_id", botID), logger.Error(err))
		}
	}
}

// reasonKind strips the formatted values so metric labels stay low-cardinality.
func reasonKind(reason string) string {
	if i := strings.IndexByte(reason, ' '); i > 0 {
		return reason[:i]
	}
	return reason
}

func pick(signals []models.AnalysisSignal, kind models.AnalyzerKind) models.AnalysisSignal {
	for _, s := range signals {
		if s.Kind == kind {
			return s
		}
	}
	return models.AnalysisSignal{Kind: kind}
}

func poolLiquidity(s *models.MarketSnapshot) float64 {
	if s == nil {
		return 0
	}
	return s.PoolLiquidity
}
