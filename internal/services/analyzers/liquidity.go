package analyzers

import (
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// Liquidity scores available depth against the configured floor. The sign
// convention matters downstream: a non-negative score means depth at or above
// the floor, which gates market-making and arbitrage eligibility.
type Liquidity struct {
	cfg   Config
	floor float64
}

func NewLiquidity(cfg Config, floor float64) *Liquidity {
	if floor <= 0 {
		floor = 10_000
	}
	return &Liquidity{cfg: cfg, floor: floor}
}

func (a *Liquidity) Kind() models.AnalyzerKind { return models.AnalyzerLiquidity }

func (a *Liquidity) Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal {
	if w == nil || w.Stale(now, a.cfg.MaxSnapshotAge) {
		return noInput(a.Kind(), now)
	}
	snap := w.Latest()
	if snap == nil {
		return noInput(a.Kind(), now)
	}

	depth := snap.PoolLiquidity
	if depth <= 0 {
		// Fall back to visible book depth in quote terms.
		for _, l := range snap.Bids {
			depth += l.Price * l.Size
		}
		for _, l := range snap.Asks {
			depth += l.Price * l.Size
		}
	}
	if depth <= 0 {
		return noInput(a.Kind(), now)
	}

	// Zero exactly at the floor, saturating at ±1.
	score := clamp11((depth - a.floor) / a.floor)

	confidence := 0.5
	if spread := snap.Spread(); spread > 0 {
		// Tight books are better evidence of real depth.
		confidence = clamp01(1 - spread*20)
	}

	return signal(a.Kind(), score, confidence, now)
}
