package analyzers

import (
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// Analyzer maps a snapshot window to a signed score and a confidence.
// Analyzers are pure: stale or missing input yields confidence 0, never an
// error, so a single dead input can never fail a decision cycle.
type Analyzer interface {
	Kind() models.AnalyzerKind
	Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal
}

// Config holds parameters shared by all analyzers.
type Config struct {
	MaxSnapshotAge time.Duration // input older than this counts as stale
	ShortWindow    int           // bars for short-horizon volatility
}

// DefaultConfig returns analyzer defaults.
func DefaultConfig() Config {
	return Config{
		MaxSnapshotAge: 2 * time.Minute,
		ShortWindow:    20,
	}
}

// DefaultSet builds the full analyzer set with shared config.
func DefaultSet(cfg Config) []Analyzer {
	return []Analyzer{
		NewTechnical(cfg),
		NewFundamental(cfg),
		NewSentiment(cfg),
		NewLiquidity(cfg, 10_000),
		NewRisk(cfg),
	}
}

// signal builds a clamped AnalysisSignal.
func signal(kind models.AnalyzerKind, score, confidence float64, at time.Time) models.AnalysisSignal {
	return models.AnalysisSignal{Kind: kind, Score: score, Confidence: confidence, At: at}.Clamp()
}

// noInput is the degraded signal for stale or absent data.
func noInput(kind models.AnalyzerKind, at time.Time) models.AnalysisSignal {
	return models.AnalysisSignal{Kind: kind, At: at}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp11(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
