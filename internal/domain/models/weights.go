package models

// AnalyzerWeights maps analyzer kinds to their aggregation weight. The risk
// analyzer carries no weight: its output feeds the risk gate, not the
// composite score. Weights are an explicit value passed into each cycle and
// adjusted only by the performance tracker.
type AnalyzerWeights map[AnalyzerKind]float64

// DefaultAnalyzerWeights returns the baseline analyzer weighting.
func DefaultAnalyzerWeights() AnalyzerWeights {
	return AnalyzerWeights{
		AnalyzerTechnical:   0.4,
		AnalyzerFundamental: 0.3,
		AnalyzerSentiment:   0.2,
		AnalyzerLiquidity:   0.1,
	}
}

// Clone returns an independent copy.
func (w AnalyzerWeights) Clone() AnalyzerWeights {
	out := make(AnalyzerWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// StrategyWeights bias strategy selection when suitability scores are close.
type StrategyWeights map[StrategyKind]float64

// DefaultStrategyWeights returns the baseline strategy weighting.
func DefaultStrategyWeights() StrategyWeights {
	return StrategyWeights{
		StrategyMarketMaking:       0.4,
		StrategyArbitrage:          0.3,
		StrategyLiquidityProvision: 0.3,
	}
}

// Clone returns an independent copy.
func (w StrategyWeights) Clone() StrategyWeights {
	out := make(StrategyWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
