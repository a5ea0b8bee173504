package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
)

// TrackerConfig holds the rolling-window performance parameters.
type TrackerConfig struct {
	Window       time.Duration // rolling window for all metrics
	MinTrades    int           // ratios are withheld below this count
	RiskFreeRate float64       // annualized, for the Sharpe ratio
	WeightFloor  float64       // adapted weights never drop below this

	// Initial weights; the package defaults apply when empty.
	AnalyzerWeights models.AnalyzerWeights
	StrategyWeights models.StrategyWeights
}

// DefaultTrackerConfig returns the baseline tracker parameters.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Window:       7 * 24 * time.Hour,
		MinTrades:    10,
		RiskFreeRate: 0.02,
		WeightFloor:  0.1,
	}
}

// tradingDaysPerYear annualizes the per-trade Sharpe estimate.
const tradingDaysPerYear = 252

// Tracker maintains the rolling trade window per bot and globally, and adapts
// strategy weights from realized performance on a slower cadence than the
// decision cycle. Weights are handed out as explicit values each cycle; the
// tracker is the only writer.
type Tracker struct {
	cfg TrackerConfig

	mu        sync.RWMutex
	trades    []models.TradeRecord
	analyzerW models.AnalyzerWeights
	strategyW models.StrategyWeights
	baseW     models.StrategyWeights // adaptation anchor
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if cfg.MinTrades <= 0 {
		cfg.MinTrades = 10
	}
	if cfg.WeightFloor <= 0 {
		cfg.WeightFloor = 0.1
	}
	if len(cfg.AnalyzerWeights) == 0 {
		cfg.AnalyzerWeights = models.DefaultAnalyzerWeights()
	}
	if len(cfg.StrategyWeights) == 0 {
		cfg.StrategyWeights = models.DefaultStrategyWeights()
	}
	return &Tracker{
		cfg:       cfg,
		analyzerW: cfg.AnalyzerWeights.Clone(),
		strategyW: cfg.StrategyWeights.Clone(),
		baseW:     cfg.StrategyWeights.Clone(),
	}
}

// warmupFillLimit caps the replay so a huge backlog cannot stall startup.
const warmupFillLimit = 5000

// Warmup replays recent fills from the durable store so the rolling window,
// and with it drawdown and ratio state, survives a restart. Failed fills are
// skipped, as in live reconciliation. Returns the number of trades replayed.
func (t *Tracker) Warmup(ctx context.Context, store drepo.FillLedger, now time.Time) (int, error) {
	fills, err := store.Recent(ctx, now.Add(-t.cfg.Window), warmupFillLimit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range fills {
		if f == nil || !f.Success {
			continue
		}
		t.Record(models.TradeRecord{
			BotID:    f.BotID,
			Pair:     f.Pair,
			Strategy: f.Strategy,
			PnL:      f.PnL,
			Fee:      f.Fee,
			Capital:  f.Capital,
			At:       f.At,
		})
		n++
	}
	return n, nil
}

// Record appends one realized trade and prunes expired ones.
func (t *Tracker) Record(rec models.TradeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, rec)
	t.pruneLocked(rec.At)
}

// Weights returns the current analyzer and strategy weights as copies, safe
// to use for a whole cycle without coordination.
func (t *Tracker) Weights() (models.AnalyzerWeights, models.StrategyWeights) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.analyzerW.Clone(), t.strategyW.Clone()
}

// Report builds the rolling-window summary for one bot, or globally when
// botID is empty. Ratio fields stay zero until the window holds MinTrades.
func (t *Tracker) Report(botID string, now time.Time) models.PerformanceReport {
	t.mu.Lock()
	t.pruneLocked(now)
	window := make([]models.TradeRecord, 0, len(t.trades))
	for _, rec := range t.trades {
		if botID == "" || rec.BotID == botID {
			window = append(window, rec)
		}
	}
	t.mu.Unlock()

	rep := models.PerformanceReport{
		BotID:       botID,
		Window:      t.cfg.Window,
		Trades:      len(window),
		GeneratedAt: now,
	}

	returns := make([]float64, 0, len(window))
	for _, rec := range window {
		net := rec.Net()
		rep.TotalPnL += net
		returns = append(returns, net)
	}
	rep.MaxDrawdown = worstDrawdown(window)

	if len(window) < t.cfg.MinTrades {
		return rep
	}
	rep.Sufficient = true

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	rep.WinRate = float64(wins) / float64(len(returns))
	rep.SharpeRatio = sharpe(returns, t.cfg.RiskFreeRate)
	return rep
}

// Drawdown is the gate's view: the rolling drawdown for one bot.
func (t *Tracker) Drawdown(botID string, now time.Time) float64 {
	return t.Report(botID, now).MaxDrawdown
}

// Adapt recomputes strategy weights from per-strategy win rates over the
// window. Strategies without enough trades keep their default weight. Adapted
// weights are floored and renormalized to sum to 1.
func (t *Tracker) Adapt(now time.Time) models.StrategyWeights {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(now)

	base := t.baseW
	counts := make(map[models.StrategyKind]int)
	wins := make(map[models.StrategyKind]int)
	for _, rec := range t.trades {
		counts[rec.Strategy]++
		if rec.Net() > 0 {
			wins[rec.Strategy]++
		}
	}

	raw := make(models.StrategyWeights, len(base))
	sum := 0.0
	for kind, w := range base {
		adj := w
		if counts[kind] >= t.cfg.MinTrades {
			winRate := float64(wins[kind]) / float64(counts[kind])
			// 0.5 win rate leaves the default untouched.
			adj = w * (0.5 + winRate)
		}
		raw[kind] = adj
		sum += adj
	}

	out := make(models.StrategyWeights, len(raw))
	if sum <= 0 {
		out = base.Clone()
	} else {
		floored := 0.0
		free := 0.0
		for kind, w := range raw {
			n := w / sum
			if n < t.cfg.WeightFloor {
				out[kind] = t.cfg.WeightFloor
				floored += t.cfg.WeightFloor
			} else {
				out[kind] = n
				free += n
			}
		}
		// Scale the unfloored weights so the total stays 1.
		if free > 0 && floored > 0 {
			scale := (1 - floored) / free
			for kind, w := range out {
				if w > t.cfg.WeightFloor {
					out[kind] = w * scale
				}
			}
		}
	}

	t.strategyW = out
	return out.Clone()
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.cfg.Window)
	i := 0
	for i < len(t.trades) && t.trades[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.trades = append(t.trades[:0], t.trades[i:]...)
	}
}

// sharpe computes the annualized Sharpe ratio over per-trade net returns,
// treating trades as daily observations.
func sharpe(returns []float64, riskFree float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	if variance == 0 {
		return 0
	}
	daily := riskFree / tradingDaysPerYear
	return (mean - daily) / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// worstDrawdown reports the deepest per-bot equity drawdown in the window.
// Records are grouped by bot so one bot's capital never masks another's losses.
func worstDrawdown(recs []models.TradeRecord) float64 {
	byBot := make(map[string][]models.TradeRecord)
	for _, r := range recs {
		byBot[r.BotID] = append(byBot[r.BotID], r)
	}
	worst := 0.0
	for _, series := range byBot {
		if dd := maxDrawdown(series); dd > worst {
			worst = dd
		}
	}
	return worst
}

// maxDrawdown is the worst peak-to-trough decline of the equity curve,
// normalized by the peak. The curve is seeded with the capital backing the
// first trade, so a window that only loses still reads a real drawdown.
// Records without a capital mark fall back to the cumulative PnL curve.
func maxDrawdown(recs []models.TradeRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	equity := 0.0
	if recs[0].Capital > 0 {
		equity = recs[0].Capital - recs[0].Net()
		if equity < 0 {
			equity = 0
		}
	}
	peak := equity
	maxDD := 0.0
	for _, r := range recs {
		if r.Capital > 0 {
			equity = r.Capital
		} else {
			equity += r.Net()
		}
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
