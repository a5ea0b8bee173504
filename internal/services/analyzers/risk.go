package analyzers

import (
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// riskVolScale maps realized volatility onto the score range: vol at or above
// this level reads as maximum danger.
const riskVolScale = 0.1

// Risk scores market danger from realized volatility. It inverts the usual
// sign convention: +1 is perfectly safe, -1 maximally risky, so the aggregator
// can derive a risk fraction without special-casing this analyzer.
type Risk struct {
	cfg Config
}

func NewRisk(cfg Config) *Risk { return &Risk{cfg: cfg} }

func (a *Risk) Kind() models.AnalyzerKind { return models.AnalyzerRisk }

func (a *Risk) Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal {
	if w == nil || w.Stale(now, a.cfg.MaxSnapshotAge) {
		return noInput(a.Kind(), now)
	}
	prices := w.Prices()
	if len(prices) < a.cfg.ShortWindow+1 {
		return noInput(a.Kind(), now)
	}

	rets := features.LogReturns(prices)
	vol := features.RealizedVolatility(rets, a.cfg.ShortWindow)

	danger := clamp01(vol / riskVolScale)
	score := 1 - 2*danger

	confidence := clamp01(float64(len(rets)) / float64(2*a.cfg.ShortWindow))

	return signal(a.Kind(), score, confidence, now)
}
