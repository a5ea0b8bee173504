package usecase

import (
	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// AggregatorConfig holds the regime classification thresholds.
type AggregatorConfig struct {
	VolatileThreshold    float64 // short-window realized vol above this reads volatile
	PersistenceThreshold float64 // |directional persistence| above this reads trending
	SlopeThreshold       float64 // |normalized trend slope| above this reads trending
	VolWindow            int     // bars for the short-window volatility estimate
}

// DefaultAggregatorConfig returns the baseline thresholds.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		VolatileThreshold:    0.05,
		PersistenceThreshold: 0.6,
		SlopeThreshold:       0.005,
		VolWindow:            20,
	}
}

// Aggregator joins per-analyzer signals into one composite signal plus a
// regime classification. It never fails: zero active analyzers produce the
// neutral signal (score 0, confidence 0, regime ranging).
type Aggregator struct {
	cfg AggregatorConfig
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.VolatileThreshold <= 0 {
		cfg.VolatileThreshold = 0.05
	}
	if cfg.PersistenceThreshold <= 0 {
		cfg.PersistenceThreshold = 0.6
	}
	if cfg.SlopeThreshold <= 0 {
		cfg.SlopeThreshold = 0.005
	}
	if cfg.VolWindow <= 1 {
		cfg.VolWindow = 20
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate combines the active (confidence > 0) signals under the given
// weights, renormalized to sum to 1 over the active subset. The risk signal is
// excluded from the composite; it is mapped to a [0,1] risk fraction instead.
func (g *Aggregator) Aggregate(signals []models.AnalysisSignal, weights models.AnalyzerWeights, w *features.SnapshotWindow) models.AggregatedSignal {
	out := models.AggregatedSignal{Regime: models.RegimeRanging, RiskScore: 0.5}

	var weightSum, score, confidence float64
	active := 0
	for _, sig := range signals {
		if sig.Kind == models.AnalyzerRisk {
			if sig.Confidence > 0 {
				// Risk scores +1 safe to -1 dangerous; fold into [0,1].
				out.RiskScore = (1 - sig.Score) / 2
			}
			continue
		}
		wgt := weights[sig.Kind]
		if sig.Confidence <= 0 || wgt <= 0 {
			continue
		}
		weightSum += wgt
		score += wgt * sig.Score
		confidence += wgt * sig.Confidence
		active++
	}

	if w != nil {
		prices := w.Prices()
		rets := features.LogReturns(prices)
		out.Volatility = features.RealizedVolatility(rets, minInt(g.cfg.VolWindow, len(rets)))
		if active > 0 {
			out.Regime = g.classify(out.Volatility, features.DirectionalPersistence(rets), features.TrendSlope(prices))
		}
	}

	if active == 0 || weightSum <= 0 {
		return out
	}

	out.Score = score / weightSum
	out.Confidence = confidence / weightSum
	return out
}

// classify reads trending from either signal: step-by-step persistence or a
// steady per-step drift, which catches trends that zig-zag on the way up.
func (g *Aggregator) classify(vol, persistence, slope float64) models.Regime {
	switch {
	case vol > g.cfg.VolatileThreshold:
		return models.RegimeVolatile
	case persistence > g.cfg.PersistenceThreshold || persistence < -g.cfg.PersistenceThreshold:
		return models.RegimeTrending
	case slope > g.cfg.SlopeThreshold || slope < -g.cfg.SlopeThreshold:
		return models.RegimeTrending
	default:
		return models.RegimeRanging
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
