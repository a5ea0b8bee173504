package analyzers

import (
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

// sentimentDepthLevels bounds how deep into the book the imbalance looks.
const sentimentDepthLevels = 5

// Sentiment reads crowd positioning from the top-of-book imbalance: bid-heavy
// books score positive, ask-heavy books negative.
type Sentiment struct {
	cfg Config
}

func NewSentiment(cfg Config) *Sentiment { return &Sentiment{cfg: cfg} }

func (a *Sentiment) Kind() models.AnalyzerKind { return models.AnalyzerSentiment }

func (a *Sentiment) Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal {
	if w == nil || w.Stale(now, a.cfg.MaxSnapshotAge) {
		return noInput(a.Kind(), now)
	}
	snap := w.Latest()
	if snap == nil || (len(snap.Bids) == 0 && len(snap.Asks) == 0) {
		return noInput(a.Kind(), now)
	}

	bidDepth := sideDepth(snap.Bids)
	askDepth := sideDepth(snap.Asks)
	total := bidDepth + askDepth
	if total <= 0 {
		return noInput(a.Kind(), now)
	}

	score := (bidDepth - askDepth) / total

	// Confidence grows with how many levels each side actually quotes.
	levels := len(snap.Bids) + len(snap.Asks)
	confidence := clamp01(float64(levels) / (2 * sentimentDepthLevels))

	return signal(a.Kind(), score, confidence, now)
}

func sideDepth(levels []models.PriceLevel) float64 {
	depth := 0.0
	for i, l := range levels {
		if i >= sentimentDepthLevels {
			break
		}
		depth += l.Size
	}
	return depth
}
