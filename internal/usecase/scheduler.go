package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
	"DexPilot/pkg/logger"
)

// Scheduler runs one independent decision loop per bot on its configured
// update interval. Each cycle gets a deadline equal to the interval: a cycle
// that overruns is cancelled and abandoned, never queued, so cycles cannot
// pile up. A ledger halt stops every loop pool-wide.
type Scheduler struct {
	cycle   *DecisionCycle
	ledger  *Ledger
	windows *features.WindowRegistry
	log     *logger.Logger

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup

	root    context.Context
	rootCxl context.CancelFunc
}

func NewScheduler(cycle *DecisionCycle, ledger *Ledger, windows *features.WindowRegistry, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cycle:   cycle,
		ledger:  ledger,
		windows: windows,
		log:      log,
		cancels:  make(map[string]context.CancelFunc),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Start arms the scheduler and begins watching for a pool-wide halt.
func (s *Scheduler) Start(ctx context.Context) {
	s.root, s.rootCxl = context.WithCancel(ctx)
	go func() {
		select {
		case <-s.ledger.Halted():
			s.log.Error("ledger halt detected, stopping all bot loops")
			s.StopAll()
		case <-s.root.Done():
		}
	}()
}

// StartBot launches the decision loop for one bot. Idempotent per bot.
func (s *Scheduler) StartBot(alloc models.BotAllocation) {
	interval := alloc.UpdateInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s.mu.Lock()
	if _, running := s.cancels[alloc.BotID]; running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.root)
	s.cancels[alloc.BotID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, alloc.BotID, features.WindowKey(alloc.Venue, alloc.Pair), interval)

	s.log.Info("bot loop started",
		logger.String("bot_id", alloc.BotID),
		logger.String("pair", alloc.Pair),
		logger.Duration("interval", interval))
}

// StopBot cancels the bot's loop and any in-flight cycle. An action already
// dispatched is not rolled back; its fill reconciles asynchronously.
func (s *Scheduler) StopBot(botID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[botID]
	if ok {
		delete(s.cancels, botID)
	}
	s.mu.Unlock()
	if ok {
		cancel()
		s.log.Info("bot loop stopped", logger.String("bot_id", botID))
	}
}

// StopAll cancels every loop and waits for them to drain.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	if s.rootCxl != nil {
		s.rootCxl()
	}
	s.wg.Wait()
}

// Interrupt cancels the bot's in-flight decision cycle, if any, without
// stopping the loop. A pause takes effect immediately instead of after the
// current cycle dispatches.
func (s *Scheduler) Interrupt(botID string) {
	s.mu.Lock()
	cancel, ok := s.inflight[botID]
	s.mu.Unlock()
	if ok {
		cancel()
		s.log.Info("in-flight cycle interrupted", logger.String("bot_id", botID))
	}
}

// Running reports whether a loop exists for botID.
func (s *Scheduler) Running(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[botID]
	return ok
}

func (s *Scheduler) loop(ctx context.Context, botID, windowKey string, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w := s.windows.Window(windowKey)
			cctx, cancel := context.WithDeadline(ctx, time.Now().Add(interval))
			s.mu.Lock()
			s.inflight[botID] = cancel
			s.mu.Unlock()
			_, err := s.cycle.Run(cctx, time.Now().UTC(), botID, w)
			s.mu.Lock()
			delete(s.inflight, botID)
			s.mu.Unlock()
			cancel()
			switch {
			case err == nil:
			case errors.Is(err, context.DeadlineExceeded):
				s.log.Warn("decision cycle abandoned on overrun", logger.String("bot_id", botID))
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return
				}
				// Only the cycle was cancelled; the loop lives on.
				s.log.Info("decision cycle interrupted", logger.String("bot_id", botID))
			case errors.Is(err, ErrUnknownBot):
				// Removed while running.
				s.StopBot(botID)
				return
			default:
				s.log.Error("decision cycle failed", logger.String("bot_id", botID), logger.Error(err))
			}
		}
	}
}
