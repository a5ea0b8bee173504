package models

import "time"

// AnalyzerKind identifies one analyzer category.
type AnalyzerKind string

const (
	AnalyzerTechnical   AnalyzerKind = "technical"
	AnalyzerFundamental AnalyzerKind = "fundamental"
	AnalyzerSentiment   AnalyzerKind = "sentiment"
	AnalyzerLiquidity   AnalyzerKind = "liquidity"
	AnalyzerRisk        AnalyzerKind = "risk"
)

// AnalysisSignal is the output of one analyzer for one cycle.
// Score is clamped to [-1,1] and Confidence to [0,1] at the analyzer boundary;
// Confidence 0 means the analyzer had no usable input and must be excluded
// from aggregation.
type AnalysisSignal struct {
	Kind       AnalyzerKind
	Score      float64
	Confidence float64
	At         time.Time
}

// Clamp forces the signal into its valid ranges.
func (s AnalysisSignal) Clamp() AnalysisSignal {
	if s.Score > 1 {
		s.Score = 1
	} else if s.Score < -1 {
		s.Score = -1
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	} else if s.Confidence < 0 {
		s.Confidence = 0
	}
	return s
}

// Regime is the rule-based market condition classification.
type Regime string

const (
	RegimeTrending Regime = "trending"
	RegimeRanging  Regime = "ranging"
	RegimeVolatile Regime = "volatile"
)

// AggregatedSignal is the composite of all active analyzer signals.
type AggregatedSignal struct {
	Score      float64 // [-1,1]
	Confidence float64 // [0,1]
	Regime     Regime
	Volatility float64 // short-window realized volatility
	RiskScore  float64 // from the risk analyzer, [0,1]
}
