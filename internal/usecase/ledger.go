package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	"DexPilot/pkg/logger"
)

var (
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrUnknownBot        = errors.New("unknown bot")
	ErrLedgerHalted      = errors.New("ledger halted")
	ErrLedgerClosed      = errors.New("ledger closed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// invariantEpsilon absorbs float drift in the allocation-sum check.
const invariantEpsilon = 1e-6

// Ledger is the single source of truth for the master balance and per-bot
// allocations. All mutations are serialized through one goroutine, so
// concurrent bot cycles can never interleave reads and writes in a way that
// pushes the allocation sum above the total balance. Operations that would
// violate the invariant are rejected synchronously; an inconsistency detected
// after the fact halts the ledger pool-wide.
type Ledger struct {
	log     *logger.Logger
	metrics drepo.Metrics

	ops  chan func()
	stop chan struct{}
	halt chan struct{}

	stopOnce sync.Once
	haltOnce sync.Once

	// Owned by the run goroutine. Never touched from outside it.
	total     float64
	available float64
	bots      map[string]*models.BotAllocation
}

// NewLedger starts the ledger actor with the given opening balance.
func NewLedger(openingBalance float64, log *logger.Logger, metrics drepo.Metrics) *Ledger {
	l := &Ledger{
		log:       log,
		metrics:   metrics,
		ops:       make(chan func(), 64),
		stop:      make(chan struct{}),
		halt:      make(chan struct{}),
		total:     openingBalance,
		available: openingBalance,
		bots:      make(map[string]*models.BotAllocation),
	}
	go l.run()
	return l
}

func (l *Ledger) run() {
	for {
		select {
		case op := <-l.ops:
			op()
		case <-l.stop:
			return
		}
	}
}

// Close shuts the actor down. Pending operations may be dropped.
func (l *Ledger) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Halt stops accepting mutations pool-wide. Reads still work so an operator
// can inspect state during manual reconciliation.
func (l *Ledger) Halt(reason string) {
	l.haltOnce.Do(func() {
		if l.log != nil {
			l.log.Error("ledger halted", logger.String("reason", reason))
		}
		close(l.halt)
	})
}

// Halted exposes the halt signal; schedulers stop all cycles when it fires.
func (l *Ledger) Halted() <-chan struct{} { return l.halt }

func (l *Ledger) isHalted() bool {
	select {
	case <-l.halt:
		return true
	default:
		return false
	}
}

// do runs fn on the actor goroutine and waits for its result.
func (l *Ledger) do(ctx context.Context, mutation bool, fn func() error) error {
	if mutation && l.isHalted() {
		return ErrLedgerHalted
	}
	reply := make(chan error, 1)
	select {
	case l.ops <- func() {
		err := fn()
		if mutation {
			l.afterMutation()
		}
		reply <- err
	}:
	case <-l.stop:
		return ErrLedgerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// afterMutation revalidates the core invariant and publishes balances. Runs on
// the actor goroutine.
func (l *Ledger) afterMutation() {
	sum := 0.0
	for _, b := range l.bots {
		sum += b.AllocatedCapital
	}
	if sum > l.total+invariantEpsilon || l.available < -invariantEpsilon {
		l.Halt(fmt.Sprintf("allocation sum %.6f exceeds total balance %.6f", sum, l.total))
		if l.metrics != nil {
			l.metrics.RecordError("ledger_invariant")
		}
	}
	if l.metrics != nil {
		l.metrics.RecordLedgerBalances(l.total, l.available)
	}
}

// CreateBot registers a bot and funds its opening allocation atomically. If
// the allocation cannot be covered the whole creation is rejected and the
// ledger is unchanged.
func (l *Ledger) CreateBot(ctx context.Context, cfg models.BotConfig) (models.BotAllocation, error) {
	var out models.BotAllocation
	err := l.do(ctx, true, func() error {
		if cfg.Allocation < 0 {
			return ErrInvalidAmount
		}
		if cfg.Allocation > l.available {
			return fmt.Errorf("allocate %.2f with %.2f available: %w", cfg.Allocation, l.available, ErrInsufficientFunds)
		}
		bot := &models.BotAllocation{
			BotID:            uuid.NewString(),
			Pair:             cfg.Pair,
			Venue:            cfg.Venue,
			AllocatedCapital: cfg.Allocation,
			Status:           models.BotCreated,
			UpdateInterval:   cfg.UpdateInterval,
			CreatedAt:        time.Now().UTC(),
		}
		if cfg.Allocation > 0 {
			l.available -= cfg.Allocation
			bot.Status = models.BotActive
		}
		l.bots[bot.BotID] = bot
		out = *bot
		return nil
	})
	return out, err
}

// Deposit adds external funds to the master balance.
func (l *Ledger) Deposit(ctx context.Context, amount float64) (float64, error) {
	var total float64
	err := l.do(ctx, true, func() error {
		if amount <= 0 {
			return ErrInvalidAmount
		}
		l.total += amount
		l.available += amount
		total = l.total
		return nil
	})
	return total, err
}

// Withdraw removes unallocated funds from the master balance.
func (l *Ledger) Withdraw(ctx context.Context, amount float64) (float64, error) {
	var total float64
	err := l.do(ctx, true, func() error {
		if amount <= 0 {
			return ErrInvalidAmount
		}
		if amount > l.available {
			return fmt.Errorf("withdraw %.2f with %.2f available: %w", amount, l.available, ErrInsufficientFunds)
		}
		l.total -= amount
		l.available -= amount
		total = l.total
		return nil
	})
	return total, err
}

// Allocate moves available funds into a bot's allocation. A bot in Created
// becomes Active on its first successful allocation.
func (l *Ledger) Allocate(ctx context.Context, botID string, amount float64) error {
	return l.do(ctx, true, func() error {
		if amount <= 0 {
			return ErrInvalidAmount
		}
		bot, ok := l.bots[botID]
		if !ok {
			return fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
		}
		if amount > l.available {
			return fmt.Errorf("allocate %.2f with %.2f available: %w", amount, l.available, ErrInsufficientFunds)
		}
		l.available -= amount
		bot.AllocatedCapital += amount
		if bot.Status == models.BotCreated {
			bot.Status = models.BotActive
		}
		return nil
	})
}

// SweepProfit moves a bot's accumulated realized profit back to the master
// available pool and returns the swept amount. Losses are never swept.
func (l *Ledger) SweepProfit(ctx context.Context, botID string) (float64, error) {
	var swept float64
	err := l.do(ctx, true, func() error {
		bot, ok := l.bots[botID]
		if !ok {
			return fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
		}
		if bot.RealizedPnL <= 0 {
			return nil
		}
		amt := bot.RealizedPnL
		if amt > bot.AllocatedCapital {
			amt = bot.AllocatedCapital
		}
		bot.AllocatedCapital -= amt
		bot.RealizedPnL -= amt
		l.available += amt
		swept = amt
		return nil
	})
	return swept, err
}

// Transfer moves allocated capital between two bots.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount float64) error {
	return l.do(ctx, true, func() error {
		if amount <= 0 {
			return ErrInvalidAmount
		}
		from, ok := l.bots[fromID]
		if !ok {
			return fmt.Errorf("bot %s: %w", fromID, ErrUnknownBot)
		}
		to, ok := l.bots[toID]
		if !ok {
			return fmt.Errorf("bot %s: %w", toID, ErrUnknownBot)
		}
		if amount > from.AllocatedCapital {
			return fmt.Errorf("transfer %.2f with %.2f allocated: %w", amount, from.AllocatedCapital, ErrInsufficientFunds)
		}
		from.AllocatedCapital -= amount
		to.AllocatedCapital += amount
		return nil
	})
}

// ApplyFill reconciles an execution fill into the bot's books. Realized PnL
// compounds into the allocation and grows or shrinks the pool total with it.
func (l *Ledger) ApplyFill(ctx context.Context, fill *models.Fill) error {
	return l.do(ctx, true, func() error {
		if fill == nil {
			return fmt.Errorf("fill is nil")
		}
		bot, ok := l.bots[fill.BotID]
		if !ok {
			return fmt.Errorf("bot %s: %w", fill.BotID, ErrUnknownBot)
		}
		if !fill.Success {
			return nil
		}
		net := fill.PnL - fill.Fee
		bot.RealizedPnL += net
		bot.AllocatedCapital += net
		bot.UnrealizedPnL = fill.Mark
		bot.CurrentPosition += fill.Price * fill.Quantity
		l.total += net
		if bot.AllocatedCapital < 0 {
			// A loss beyond the allocation eats into available funds.
			l.available += bot.AllocatedCapital
			bot.AllocatedCapital = 0
		}
		return nil
	})
}

// SetStatus applies a lifecycle transition.
func (l *Ledger) SetStatus(ctx context.Context, botID string, status models.BotStatus) error {
	return l.do(ctx, true, func() error {
		bot, ok := l.bots[botID]
		if !ok {
			return fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
		}
		if !canTransition(bot.Status, status) {
			return fmt.Errorf("%s to %s: %w", bot.Status, status, ErrInvalidTransition)
		}
		bot.Status = status
		return nil
	})
}

// Remove tears a bot down, returning all of its capital to the master pool.
// Only a stopped or never-started bot is removable; a running bot must pass
// through Stopped first so its loop winds down before the capital moves.
func (l *Ledger) Remove(ctx context.Context, botID string) (float64, error) {
	var returned float64
	err := l.do(ctx, true, func() error {
		bot, ok := l.bots[botID]
		if !ok {
			return fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
		}
		if bot.Status == models.BotActive || bot.Status == models.BotPaused {
			return fmt.Errorf("remove %s bot: %w", bot.Status, ErrInvalidTransition)
		}
		returned = bot.AllocatedCapital
		l.available += returned
		delete(l.bots, botID)
		return nil
	})
	return returned, err
}

// Snapshot returns a consistent copy of the whole portfolio, taken atomically
// on the actor goroutine. Reads work even while halted.
func (l *Ledger) Snapshot(ctx context.Context) (models.PortfolioSnapshot, error) {
	out := models.PortfolioSnapshot{}
	err := l.do(ctx, false, func() error {
		out.TotalBalance = l.total
		out.AvailableFunds = l.available
		out.TakenAt = time.Now().UTC()
		out.Allocations = make(map[string]models.BotAllocation, len(l.bots))
		for id, b := range l.bots {
			out.Allocations[id] = *b
		}
		return nil
	})
	return out, err
}

// Bot returns a copy of one bot's allocation.
func (l *Ledger) Bot(ctx context.Context, botID string) (models.BotAllocation, error) {
	var out models.BotAllocation
	err := l.do(ctx, false, func() error {
		bot, ok := l.bots[botID]
		if !ok {
			return fmt.Errorf("bot %s: %w", botID, ErrUnknownBot)
		}
		out = *bot
		return nil
	})
	return out, err
}

func canTransition(from, to models.BotStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.BotCreated:
		return to == models.BotActive || to == models.BotPaused || to == models.BotStopped
	case models.BotActive:
		return to == models.BotPaused || to == models.BotStopped
	case models.BotPaused:
		return to == models.BotActive || to == models.BotStopped
	case models.BotStopped:
		return to == models.BotActive
	default:
		return false
	}
}
