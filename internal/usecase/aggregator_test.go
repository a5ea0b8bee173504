package usecase

import (
	"math"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

func sig(kind models.AnalyzerKind, score, conf float64) models.AnalysisSignal {
	return models.AnalysisSignal{Kind: kind, Score: score, Confidence: conf, At: time.Now()}
}

func TestAggregateCompositeScore(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	signals := []models.AnalysisSignal{
		sig(models.AnalyzerTechnical, 0.6, 0.9),
		sig(models.AnalyzerFundamental, 0.2, 0.5),
		sig(models.AnalyzerSentiment, -0.1, 0.8),
		sig(models.AnalyzerLiquidity, 0.4, 0.6),
	}

	out := agg.Aggregate(signals, models.DefaultAnalyzerWeights(), nil)
	if math.Abs(out.Score-0.32) > 1e-9 {
		t.Fatalf("composite score = %f, want 0.32", out.Score)
	}
	if math.Abs(out.Confidence-0.73) > 1e-9 {
		t.Fatalf("composite confidence = %f, want 0.73", out.Confidence)
	}
}

func TestAggregateRenormalizesOverActiveSubset(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	signals := []models.AnalysisSignal{
		sig(models.AnalyzerTechnical, 0.6, 0.9),
		sig(models.AnalyzerFundamental, 0.2, 0), // stale input, excluded
		sig(models.AnalyzerSentiment, -0.1, 0.8),
		sig(models.AnalyzerLiquidity, 0.4, 0.6),
	}

	out := agg.Aggregate(signals, models.DefaultAnalyzerWeights(), nil)
	want := (0.4*0.6 + 0.2*-0.1 + 0.1*0.4) / 0.7
	if math.Abs(out.Score-want) > 1e-9 {
		t.Fatalf("renormalized score = %f, want %f", out.Score, want)
	}
}

func TestAggregateZeroActiveYieldsNeutral(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	signals := []models.AnalysisSignal{
		sig(models.AnalyzerTechnical, 0.9, 0),
		sig(models.AnalyzerFundamental, 0.9, 0),
	}

	out := agg.Aggregate(signals, models.DefaultAnalyzerWeights(), nil)
	if out.Score != 0 || out.Confidence != 0 {
		t.Fatalf("expected neutral signal, got score=%f conf=%f", out.Score, out.Confidence)
	}
	if out.Regime != models.RegimeRanging {
		t.Fatalf("expected ranging regime, got %s", out.Regime)
	}
}

func TestAggregateRiskSignalFeedsRiskScore(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	signals := []models.AnalysisSignal{
		sig(models.AnalyzerTechnical, 0.5, 0.5),
		sig(models.AnalyzerRisk, -1, 0.8), // maximum danger
	}

	out := agg.Aggregate(signals, models.DefaultAnalyzerWeights(), nil)
	if out.RiskScore != 1 {
		t.Fatalf("risk score = %f, want 1", out.RiskScore)
	}
	// The risk analyzer must not move the composite.
	if math.Abs(out.Score-0.5) > 1e-9 {
		t.Fatalf("composite score = %f, want 0.5", out.Score)
	}
}

func TestAggregateRegimeClassification(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	now := time.Now()

	mk := func(price func(i int) float64) *features.SnapshotWindow {
		w := features.NewSnapshotWindow(64)
		for i := 0; i < 40; i++ {
			p := price(i)
			w.Push(&models.MarketSnapshot{
				Timestamp: now,
				Bids:      []models.PriceLevel{{Price: p * 0.999, Size: 10}},
				Asks:      []models.PriceLevel{{Price: p * 1.001, Size: 10}},
				LastPrice: p,
			})
		}
		return w
	}
	signals := []models.AnalysisSignal{sig(models.AnalyzerTechnical, 0.1, 0.5)}
	weights := models.DefaultAnalyzerWeights()

	up := agg.Aggregate(signals, weights, mk(func(i int) float64 { return 100 + float64(i) }))
	if up.Regime != models.RegimeTrending {
		t.Fatalf("steady climb should read trending, got %s", up.Regime)
	}

	wild := agg.Aggregate(signals, weights, mk(func(i int) float64 {
		if i%2 == 0 {
			return 100
		}
		return 115
	}))
	if wild.Regime != models.RegimeVolatile {
		t.Fatalf("large swings should read volatile, got %s", wild.Regime)
	}

	flat := agg.Aggregate(signals, weights, mk(func(i int) float64 { return 100 }))
	if flat.Regime != models.RegimeRanging {
		t.Fatalf("flat series should read ranging, got %s", flat.Regime)
	}
}

func TestAggregateClassifiesDriftWithoutPersistence(t *testing.T) {
	agg := NewAggregator(DefaultAggregatorConfig())
	now := time.Now()

	// Two steps up, one step down, netting +1 per step: the per-step
	// directions alternate too much for the persistence check, but the
	// least-squares drift is unmistakable.
	w := features.NewSnapshotWindow(64)
	price := 100.0
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			price += 3
		} else {
			price -= 1
		}
		w.Push(&models.MarketSnapshot{
			Timestamp: now,
			Bids:      []models.PriceLevel{{Price: price * 0.999, Size: 10}},
			Asks:      []models.PriceLevel{{Price: price * 1.001, Size: 10}},
			LastPrice: price,
		})
	}

	signals := []models.AnalysisSignal{sig(models.AnalyzerTechnical, 0.1, 0.5)}
	out := agg.Aggregate(signals, models.DefaultAnalyzerWeights(), w)
	if out.Regime != models.RegimeTrending {
		t.Fatalf("zig-zag drift should read trending, got %s", out.Regime)
	}
}
