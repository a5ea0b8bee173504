package usecase

import (
	"context"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/analyzers"
	"DexPilot/internal/services/features"
)

func cycleWindow(n int, price, liquidity float64, at time.Time) *features.SnapshotWindow {
	w := features.NewSnapshotWindow(n + 10)
	for i := 0; i < n; i++ {
		w.Push(&models.MarketSnapshot{
			Venue:         "orca",
			Pair:          "SOL/USDC",
			Timestamp:     at,
			Bids:          []models.PriceLevel{{Price: price * 0.999, Size: 50}},
			Asks:          []models.PriceLevel{{Price: price * 1.001, Size: 50}},
			LastPrice:     price,
			Volume24h:     1_000_000,
			PoolLiquidity: liquidity,
		})
	}
	return w
}

func newTestCycle(t *testing.T, ledger *Ledger, dispatcher ActionDispatcher) *DecisionCycle {
	t.Helper()
	gen := NewGenerator(DefaultGeneratorConfig())
	return NewDecisionCycle(
		analyzers.DefaultSet(analyzers.DefaultConfig()),
		NewAggregator(DefaultAggregatorConfig()),
		NewEvaluator(DefaultEvaluatorConfig(), gen),
		NewRiskGate(DefaultRiskLimits()),
		ledger,
		NewTracker(DefaultTrackerConfig()),
		dispatcher,
		nopAlerts{},
		nopMetrics{},
		testLogger(t),
	)
}

func TestCycleEmitsDeterministicAction(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	ctx := context.Background()
	bot, err := ledger.CreateBot(ctx, botConfig(5000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dispatcher := &captureDispatcher{}
	cycle := newTestCycle(t, ledger, dispatcher)

	now := time.Unix(1700000000, 0).UTC()
	w := cycleWindow(80, 100, 50_000, now)

	a1, err := cycle.Run(ctx, now, bot.BotID, w)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if a1 == nil {
		t.Fatal("expected an emitted action")
	}
	a2, err := cycle.Run(ctx, now, bot.BotID, w)
	if err != nil {
		t.Fatalf("run again: %v", err)
	}
	if a2 == nil || *a1 != *a2 {
		t.Fatalf("identical inputs produced different actions: %+v vs %+v", a1, a2)
	}
}

func TestCycleHoldsWhenAllAnalyzersLowConfidence(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	ctx := context.Background()
	bot, _ := ledger.CreateBot(ctx, botConfig(5000))

	dispatcher := &captureDispatcher{}
	cycle := newTestCycle(t, ledger, dispatcher)

	now := time.Unix(1700000000, 0).UTC()
	stale := cycleWindow(80, 100, 50_000, now.Add(-time.Hour))

	action, err := cycle.Run(ctx, now, bot.BotID, stale)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action == nil || !action.IsHold() {
		t.Fatalf("stale inputs should emit a hold, got %+v", action)
	}
	if last, ok := dispatcher.last(); !ok || !last.IsHold() {
		t.Fatal("hold action should still be dispatched")
	}
}

func TestCycleSkipsInactiveBot(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	ctx := context.Background()
	bot, _ := ledger.CreateBot(ctx, botConfig(5000))
	if err := ledger.SetStatus(ctx, bot.BotID, models.BotPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}

	dispatcher := &captureDispatcher{}
	cycle := newTestCycle(t, ledger, dispatcher)

	now := time.Unix(1700000000, 0).UTC()
	action, err := cycle.Run(ctx, now, bot.BotID, cycleWindow(80, 100, 50_000, now))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != nil {
		t.Fatalf("paused bot emitted an action: %+v", action)
	}
	if _, ok := dispatcher.last(); ok {
		t.Fatal("paused bot dispatched an action")
	}
}

func TestCycleBreakerStopsBotAfterRepeatedDenials(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	ctx := context.Background()
	bot, _ := ledger.CreateBot(ctx, botConfig(5000))

	dispatcher := &captureDispatcher{}
	cycle := newTestCycle(t, ledger, dispatcher)

	now := time.Unix(1700000000, 0).UTC()
	// Healthy signals but pool liquidity below the gate floor: every cycle is
	// denied until the breaker trips.
	thin := cycleWindow(80, 100, 5_000, now)

	for i := 0; i < 3; i++ {
		if _, err := cycle.Run(ctx, now, bot.BotID, thin); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	got, err := ledger.Bot(ctx, bot.BotID)
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	if got.Status != models.BotStopped {
		t.Fatalf("breaker should have stopped the bot, got %s", got.Status)
	}
	if _, ok := dispatcher.last(); ok {
		t.Fatal("denied cycles must not dispatch actions")
	}
}
