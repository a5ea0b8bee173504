package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
)

func trade(botID string, strategy models.StrategyKind, pnl float64, at time.Time) models.TradeRecord {
	return models.TradeRecord{BotID: botID, Pair: "SOL/USDC", Strategy: strategy, PnL: pnl, At: at}
}

func TestReportInsufficientBelowMinTrades(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()
	for i := 0; i < 5; i++ {
		tr.Record(trade("bot-1", models.StrategyMarketMaking, 10, now))
	}

	rep := tr.Report("bot-1", now)
	if rep.Sufficient {
		t.Fatal("5 trades against minimum 10 should be insufficient")
	}
	if rep.WinRate != 0 || rep.SharpeRatio != 0 {
		t.Fatalf("ratios must be withheld when insufficient: %+v", rep)
	}
	if rep.TotalPnL != 50 {
		t.Fatalf("total pnl = %f, want 50", rep.TotalPnL)
	}
}

func TestReportWinRateAndDrawdown(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()

	// 8 wins of +10, then losses of -40 and -40: peak 80, trough 0.
	for i := 0; i < 8; i++ {
		tr.Record(trade("bot-1", models.StrategyMarketMaking, 10, now.Add(time.Duration(i)*time.Minute)))
	}
	tr.Record(trade("bot-1", models.StrategyMarketMaking, -40, now.Add(9*time.Minute)))
	tr.Record(trade("bot-1", models.StrategyMarketMaking, -40, now.Add(10*time.Minute)))

	rep := tr.Report("bot-1", now.Add(11*time.Minute))
	if !rep.Sufficient {
		t.Fatal("10 trades should be sufficient")
	}
	if math.Abs(rep.WinRate-0.8) > 1e-9 {
		t.Fatalf("win rate = %f, want 0.8", rep.WinRate)
	}
	if math.Abs(rep.MaxDrawdown-1.0) > 1e-9 {
		t.Fatalf("max drawdown = %f, want 1.0", rep.MaxDrawdown)
	}
}

func TestDrawdownOnPureLossWindow(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()

	// A bot that only loses: capital walks down from 10000 to 8500. The
	// equity curve starts at the capital backing the first trade, so the
	// decline registers even though there was never a profitable peak.
	for i := 0; i < 15; i++ {
		rec := trade("bot-1", models.StrategyMarketMaking, -100, now.Add(time.Duration(i)*time.Minute))
		rec.Capital = 10_000 - 100*float64(i+1)
		tr.Record(rec)
	}

	rep := tr.Report("bot-1", now.Add(16*time.Minute))
	if rep.TotalPnL != -1500 {
		t.Fatalf("total pnl = %f, want -1500", rep.TotalPnL)
	}
	if math.Abs(rep.MaxDrawdown-0.15) > 1e-9 {
		t.Fatalf("max drawdown = %f, want 0.15", rep.MaxDrawdown)
	}
	if rep.MaxDrawdown <= DefaultRiskLimits().MaxDrawdown {
		t.Fatalf("a 15%% decline must exceed the default drawdown limit, got %f", rep.MaxDrawdown)
	}
}

func TestDrawdownIsolatedPerBot(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()

	losing := trade("bot-1", models.StrategyMarketMaking, -500, now)
	losing.Capital = 4500
	tr.Record(losing)

	winning := trade("bot-2", models.StrategyArbitrage, 500, now)
	winning.Capital = 100_000
	tr.Record(winning)

	rep := tr.Report("", now)
	if math.Abs(rep.MaxDrawdown-0.1) > 1e-9 {
		t.Fatalf("global drawdown = %f, want bot-1's 0.1", rep.MaxDrawdown)
	}
}

func TestReportWindowPrunesOldTrades(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()

	tr.Record(trade("bot-1", models.StrategyMarketMaking, 100, now.Add(-8*24*time.Hour)))
	tr.Record(trade("bot-1", models.StrategyMarketMaking, 10, now))

	rep := tr.Report("bot-1", now)
	if rep.Trades != 1 {
		t.Fatalf("trades = %d, want 1 after pruning the 8-day-old trade", rep.Trades)
	}
}

func TestReportGlobalCoversAllBots(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()

	tr.Record(trade("bot-1", models.StrategyMarketMaking, 10, now))
	tr.Record(trade("bot-2", models.StrategyArbitrage, 20, now))

	rep := tr.Report("", now)
	if rep.Trades != 2 || rep.TotalPnL != 30 {
		t.Fatalf("global report wrong: %+v", rep)
	}
}

// memFillStore is an in-memory stand-in for the durable fill store.
type memFillStore struct {
	fills []*models.Fill
}

func (s *memFillStore) Append(_ context.Context, f *models.Fill) error {
	s.fills = append(s.fills, f)
	return nil
}

func (s *memFillStore) History(_ context.Context, botID string, from, to time.Time, limit int) ([]*models.Fill, error) {
	var out []*models.Fill
	for _, f := range s.fills {
		if f.BotID == botID && !f.At.Before(from) && f.At.Before(to) {
			out = append(out, f)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memFillStore) Recent(_ context.Context, from time.Time, limit int) ([]*models.Fill, error) {
	var out []*models.Fill
	for _, f := range s.fills {
		if !f.At.Before(from) {
			out = append(out, f)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memFillStore) Health(context.Context) error { return nil }
func (s *memFillStore) Close() error                 { return nil }

func TestWarmupRebuildsWindowFromFillHistory(t *testing.T) {
	now := time.Now().UTC()
	store := &memFillStore{}
	for i := 0; i < 12; i++ {
		store.fills = append(store.fills, &models.Fill{
			BotID:    "bot-1",
			Pair:     "SOL/USDC",
			Strategy: models.StrategyMarketMaking,
			PnL:      10,
			Capital:  5000 + 10*float64(i+1),
			At:       now.Add(time.Duration(i-12) * time.Hour),
			Success:  true,
		})
	}
	// Failed and expired fills must not enter the window.
	store.fills = append(store.fills,
		&models.Fill{BotID: "bot-1", PnL: -999, At: now.Add(-time.Hour), Success: false},
		&models.Fill{BotID: "bot-1", PnL: -999, At: now.Add(-30 * 24 * time.Hour), Success: true},
	)

	tr := NewTracker(DefaultTrackerConfig())
	replayed, err := tr.Warmup(context.Background(), store, now)
	if err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if replayed != 12 {
		t.Fatalf("replayed = %d, want 12", replayed)
	}

	rep := tr.Report("bot-1", now)
	if !rep.Sufficient {
		t.Fatalf("12 replayed trades should be sufficient: %+v", rep)
	}
	if rep.TotalPnL != 120 {
		t.Fatalf("total pnl = %f, want 120", rep.TotalPnL)
	}
}

func TestNewTrackerUsesConfiguredWeights(t *testing.T) {
	cfg := DefaultTrackerConfig()
	cfg.AnalyzerWeights = models.AnalyzerWeights{
		models.AnalyzerTechnical: 0.7,
		models.AnalyzerLiquidity: 0.3,
	}
	cfg.StrategyWeights = models.StrategyWeights{
		models.StrategyMarketMaking: 0.9,
		models.StrategyArbitrage:    0.1,
	}
	tr := NewTracker(cfg)

	aw, sw := tr.Weights()
	if aw[models.AnalyzerTechnical] != 0.7 || aw[models.AnalyzerLiquidity] != 0.3 {
		t.Fatalf("analyzer weights not taken from config: %+v", aw)
	}
	if sw[models.StrategyMarketMaking] != 0.9 || sw[models.StrategyArbitrage] != 0.1 {
		t.Fatalf("strategy weights not taken from config: %+v", sw)
	}
}

func TestAdaptKeepsWeightsNormalizedAndFloored(t *testing.T) {
	cfg := DefaultTrackerConfig()
	tr := NewTracker(cfg)
	now := time.Now()

	// Market making loses every trade; arbitrage wins every trade.
	for i := 0; i < 15; i++ {
		tr.Record(trade("bot-1", models.StrategyMarketMaking, -5, now))
		tr.Record(trade("bot-1", models.StrategyArbitrage, 5, now))
	}

	weights := tr.Adapt(now)
	sum := 0.0
	for kind, w := range weights {
		sum += w
		if w < cfg.WeightFloor-1e-9 {
			t.Fatalf("weight for %s below floor: %f", kind, w)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum = %f, want 1", sum)
	}
	if weights[models.StrategyMarketMaking] >= weights[models.StrategyArbitrage] {
		t.Fatalf("losing strategy should be down-weighted: %+v", weights)
	}
}

func TestAdaptedWeightsVisibleToCycles(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	now := time.Now()
	for i := 0; i < 15; i++ {
		tr.Record(trade("bot-1", models.StrategyMarketMaking, -5, now))
	}

	before := tr.Adapt(now)
	_, after := tr.Weights()
	if math.Abs(before[models.StrategyMarketMaking]-after[models.StrategyMarketMaking]) > 1e-9 {
		t.Fatal("Weights() should reflect the latest adaptation")
	}
}
