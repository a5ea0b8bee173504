package analyzers

import (
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// Fundamental scores the 24h volume trend: growing turnover relative to the
// window average reads bullish, shrinking turnover bearish.
type Fundamental struct {
	cfg Config
}

func NewFundamental(cfg Config) *Fundamental { return &Fundamental{cfg: cfg} }

func (a *Fundamental) Kind() models.AnalyzerKind { return models.AnalyzerFundamental }

func (a *Fundamental) Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal {
	if w == nil || w.Stale(now, a.cfg.MaxSnapshotAge) {
		return noInput(a.Kind(), now)
	}
	vols := w.Volumes()
	if len(vols) < 10 {
		return noInput(a.Kind(), now)
	}
	avg := features.SMA(vols, len(vols))
	if avg <= 0 {
		return noInput(a.Kind(), now)
	}
	latest := vols[len(vols)-1]

	// Relative deviation from the window average, saturated at ±50%.
	score := clamp11((latest/avg - 1) * 2)

	// Longer windows support the average better.
	confidence := clamp01(float64(len(vols)) / 60)

	return signal(a.Kind(), score, confidence, now)
}
