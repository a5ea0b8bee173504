package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
)

func newTestLedger(t *testing.T, opening float64) *Ledger {
	t.Helper()
	l := NewLedger(opening, testLogger(t), nopMetrics{})
	t.Cleanup(l.Close)
	return l
}

func botConfig(alloc float64) models.BotConfig {
	return models.BotConfig{
		Pair:           "SOL/USDC",
		Venue:          "orca",
		Allocation:     alloc,
		UpdateInterval: 30 * time.Second,
	}
}

func TestCreateBotRejectsOverAllocation(t *testing.T) {
	l := newTestLedger(t, 3000)
	ctx := context.Background()

	_, err := l.CreateBot(ctx, botConfig(5000))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("allocation 5000 against 3000 available: got %v, want ErrInsufficientFunds", err)
	}

	snap, err := l.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.AvailableFunds != 3000 || len(snap.Allocations) != 0 {
		t.Fatalf("ledger changed on a rejected create: %+v", snap)
	}
}

func TestCreateBotActivatesOnFirstAllocation(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, err := l.CreateBot(ctx, botConfig(4000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bot.Status != models.BotActive {
		t.Fatalf("funded bot should be active, got %s", bot.Status)
	}

	unfunded, err := l.CreateBot(ctx, botConfig(0))
	if err != nil {
		t.Fatalf("create unfunded: %v", err)
	}
	if unfunded.Status != models.BotCreated {
		t.Fatalf("unfunded bot should stay created, got %s", unfunded.Status)
	}
	if err := l.Allocate(ctx, unfunded.BotID, 1000); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	got, err := l.Bot(ctx, unfunded.BotID)
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	if got.Status != models.BotActive {
		t.Fatalf("first allocation should activate, got %s", got.Status)
	}
}

func TestDepositWithdraw(t *testing.T) {
	l := newTestLedger(t, 1000)
	ctx := context.Background()

	if _, err := l.Deposit(ctx, 500); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := l.Withdraw(ctx, 2000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("over-withdraw: got %v", err)
	}
	total, err := l.Withdraw(ctx, 1500)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if total != 0 {
		t.Fatalf("total = %f, want 0", total)
	}
}

func TestTransferBetweenBots(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	a, _ := l.CreateBot(ctx, botConfig(4000))
	b, _ := l.CreateBot(ctx, botConfig(2000))

	if err := l.Transfer(ctx, a.BotID, b.BotID, 5000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("over-transfer: got %v", err)
	}
	if err := l.Transfer(ctx, a.BotID, "nope", 100); !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("unknown target: got %v", err)
	}
	if err := l.Transfer(ctx, a.BotID, b.BotID, 1000); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	snap, _ := l.Snapshot(ctx)
	if snap.Allocations[a.BotID].AllocatedCapital != 3000 || snap.Allocations[b.BotID].AllocatedCapital != 3000 {
		t.Fatalf("transfer amounts wrong: %+v", snap.Allocations)
	}
}

func TestApplyFillAndSweepProfit(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, _ := l.CreateBot(ctx, botConfig(5000))
	fill := &models.Fill{
		BotID:    bot.BotID,
		Pair:     "SOL/USDC",
		Price:    100,
		Quantity: 2,
		Fee:      10,
		PnL:      110,
		Success:  true,
	}
	if err := l.ApplyFill(ctx, fill); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	got, _ := l.Bot(ctx, bot.BotID)
	if got.RealizedPnL != 100 {
		t.Fatalf("realized = %f, want 100", got.RealizedPnL)
	}
	if got.AllocatedCapital != 5100 {
		t.Fatalf("allocated = %f, want 5100", got.AllocatedCapital)
	}

	swept, err := l.SweepProfit(ctx, bot.BotID)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 100 {
		t.Fatalf("swept = %f, want 100", swept)
	}
	snap, _ := l.Snapshot(ctx)
	if math.Abs(snap.AvailableFunds-5100) > 1e-9 {
		t.Fatalf("available = %f, want 5100", snap.AvailableFunds)
	}
}

func TestStatusTransitions(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, _ := l.CreateBot(ctx, botConfig(1000))

	if err := l.SetStatus(ctx, bot.BotID, models.BotPaused); err != nil {
		t.Fatalf("active to paused: %v", err)
	}
	if err := l.SetStatus(ctx, bot.BotID, models.BotStopped); err != nil {
		t.Fatalf("paused to stopped: %v", err)
	}
	if err := l.SetStatus(ctx, bot.BotID, models.BotPaused); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stopped to paused should fail, got %v", err)
	}
	if err := l.SetStatus(ctx, bot.BotID, models.BotActive); err != nil {
		t.Fatalf("manual resume from stopped: %v", err)
	}
}

func TestRemoveReturnsCapital(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, _ := l.CreateBot(ctx, botConfig(4000))
	if err := l.SetStatus(ctx, bot.BotID, models.BotStopped); err != nil {
		t.Fatalf("stop: %v", err)
	}
	returned, err := l.Remove(ctx, bot.BotID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if returned != 4000 {
		t.Fatalf("returned = %f, want 4000", returned)
	}

	snap, _ := l.Snapshot(ctx)
	if snap.AvailableFunds != 10_000 || len(snap.Allocations) != 0 {
		t.Fatalf("capital not fully returned: %+v", snap)
	}
	if _, err := l.Bot(ctx, bot.BotID); !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("removed bot still visible: %v", err)
	}
}

func TestRemoveRequiresStoppedBot(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, _ := l.CreateBot(ctx, botConfig(4000))
	if _, err := l.Remove(ctx, bot.BotID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("removing an active bot: got %v, want ErrInvalidTransition", err)
	}
	if err := l.SetStatus(ctx, bot.BotID, models.BotPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := l.Remove(ctx, bot.BotID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("removing a paused bot: got %v, want ErrInvalidTransition", err)
	}
	if err := l.SetStatus(ctx, bot.BotID, models.BotStopped); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := l.Remove(ctx, bot.BotID); err != nil {
		t.Fatalf("removing a stopped bot: %v", err)
	}

	// A never-funded bot in Created is removable directly.
	idle, _ := l.CreateBot(ctx, botConfig(0))
	if _, err := l.Remove(ctx, idle.BotID); err != nil {
		t.Fatalf("removing a created bot: %v", err)
	}
}

func TestConcurrentAllocationsHoldInvariant(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	bot, _ := l.CreateBot(ctx, botConfig(0))

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Allocate(ctx, bot.BotID, 500); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 20 {
		t.Fatalf("successes = %d, want exactly 20 (10000 / 500)", successes)
	}

	snap, _ := l.Snapshot(ctx)
	sum := 0.0
	for _, a := range snap.Allocations {
		sum += a.AllocatedCapital
	}
	if sum > snap.TotalBalance {
		t.Fatalf("invariant violated: allocated %f > total %f", sum, snap.TotalBalance)
	}
	if snap.AvailableFunds != 0 {
		t.Fatalf("available = %f, want 0", snap.AvailableFunds)
	}
}

func TestHaltRejectsMutationsButAllowsReads(t *testing.T) {
	l := newTestLedger(t, 10_000)
	ctx := context.Background()

	l.Halt("test halt")
	if _, err := l.Deposit(ctx, 100); !errors.Is(err, ErrLedgerHalted) {
		t.Fatalf("deposit after halt: got %v", err)
	}
	if _, err := l.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot after halt should work: %v", err)
	}

	select {
	case <-l.Halted():
	default:
		t.Fatal("halt signal not raised")
	}
}
