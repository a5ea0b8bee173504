package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// blockingDispatcher holds every dispatch open until its context ends, then
// reports the context error it saw.
type blockingDispatcher struct {
	started chan struct{}
	errs    chan error
}

func newBlockingDispatcher() *blockingDispatcher {
	return &blockingDispatcher{
		started: make(chan struct{}, 4),
		errs:    make(chan error, 4),
	}
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, _ *models.Action) error {
	d.started <- struct{}{}
	<-ctx.Done()
	d.errs <- ctx.Err()
	return ctx.Err()
}

func freshRegistry(venue, pair string, n int) *features.WindowRegistry {
	reg := features.NewWindowRegistry(n + 10)
	w := reg.Window(features.WindowKey(venue, pair))
	at := time.Now().UTC()
	for i := 0; i < n; i++ {
		w.Push(&models.MarketSnapshot{
			Venue:         venue,
			Pair:          pair,
			Timestamp:     at,
			Bids:          []models.PriceLevel{{Price: 99.9, Size: 50}},
			Asks:          []models.PriceLevel{{Price: 100.1, Size: 50}},
			LastPrice:     100,
			Volume24h:     1_000_000,
			PoolLiquidity: 50_000,
		})
	}
	return reg
}

func TestInterruptAbortsInFlightCycleButKeepsLoop(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	ctx := context.Background()

	cfg := botConfig(5000)
	cfg.UpdateInterval = 200 * time.Millisecond
	bot, err := ledger.CreateBot(ctx, cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dispatcher := newBlockingDispatcher()
	cycle := newTestCycle(t, ledger, dispatcher)
	windows := freshRegistry(bot.Venue, bot.Pair, 80)

	s := NewScheduler(cycle, ledger, windows, testLogger(t))
	s.Start(ctx)
	t.Cleanup(s.StopAll)

	s.StartBot(bot)

	select {
	case <-dispatcher.started:
	case <-time.After(3 * time.Second):
		t.Fatal("no cycle reached dispatch")
	}
	s.Interrupt(bot.BotID)

	select {
	case got := <-dispatcher.errs:
		if !errors.Is(got, context.Canceled) {
			t.Fatalf("interrupt should cancel the cycle, got %v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("dispatch never unblocked after interrupt")
	}

	if !s.Running(bot.BotID) {
		t.Fatal("loop must survive an in-flight interrupt")
	}

	// The next tick runs a fresh cycle, proving only the cycle died.
	select {
	case <-dispatcher.started:
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not schedule another cycle after interrupt")
	}
	s.StopBot(bot.BotID)
}

func TestInterruptWithoutInFlightCycleIsNoop(t *testing.T) {
	ledger := newTestLedger(t, 10_000)
	cycle := newTestCycle(t, ledger, &captureDispatcher{})
	s := NewScheduler(cycle, ledger, features.NewWindowRegistry(16), testLogger(t))
	s.Start(context.Background())
	t.Cleanup(s.StopAll)

	s.Interrupt("no-such-bot")
}
