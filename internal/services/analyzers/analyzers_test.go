package analyzers

import (
	"math"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

func fillWindow(n int, price func(i int) float64, liquidity float64, now time.Time) *features.SnapshotWindow {
	w := features.NewSnapshotWindow(n + 10)
	for i := 0; i < n; i++ {
		p := price(i)
		w.Push(&models.MarketSnapshot{
			Venue:         "orca",
			Pair:          "SOL/USDC",
			Timestamp:     now.Add(-time.Duration(n-i) * time.Second),
			Bids:          []models.PriceLevel{{Price: p * 0.999, Size: 50}},
			Asks:          []models.PriceLevel{{Price: p * 1.001, Size: 50}},
			LastPrice:     p,
			Volume24h:     1_000_000 + float64(i)*1000,
			PoolLiquidity: liquidity,
		})
	}
	return w
}

func TestAnalyzersRespectScoreAndConfidenceRanges(t *testing.T) {
	now := time.Now()
	w := fillWindow(80, func(i int) float64 { return 100 + math.Sin(float64(i)/5)*3 }, 50_000, now)

	for _, a := range DefaultSet(DefaultConfig()) {
		sig := a.Analyze(now, w)
		if sig.Kind != a.Kind() {
			t.Fatalf("%s: kind mismatch: %s", a.Kind(), sig.Kind)
		}
		if sig.Score < -1 || sig.Score > 1 {
			t.Fatalf("%s: score out of range: %f", a.Kind(), sig.Score)
		}
		if sig.Confidence < 0 || sig.Confidence > 1 {
			t.Fatalf("%s: confidence out of range: %f", a.Kind(), sig.Confidence)
		}
	}
}

func TestAnalyzersStaleWindowYieldsZeroConfidence(t *testing.T) {
	now := time.Now()
	w := fillWindow(80, func(i int) float64 { return 100 }, 50_000, now.Add(-time.Hour))

	for _, a := range DefaultSet(DefaultConfig()) {
		sig := a.Analyze(now, w)
		if sig.Confidence != 0 {
			t.Fatalf("%s: stale window should yield confidence 0, got %f", a.Kind(), sig.Confidence)
		}
		if sig.Score != 0 {
			t.Fatalf("%s: stale window should yield score 0, got %f", a.Kind(), sig.Score)
		}
	}
}

func TestTechnicalUptrendScoresPositive(t *testing.T) {
	now := time.Now()
	w := fillWindow(80, func(i int) float64 { return 100 + float64(i)*0.5 }, 50_000, now)

	sig := NewTechnical(DefaultConfig()).Analyze(now, w)
	if sig.Score <= 0 {
		t.Fatalf("steady uptrend should score positive, got %f", sig.Score)
	}
}

func TestTechnicalShortSeriesYieldsNoInput(t *testing.T) {
	now := time.Now()
	w := fillWindow(30, func(i int) float64 { return 100 }, 50_000, now)

	sig := NewTechnical(DefaultConfig()).Analyze(now, w)
	if sig.Confidence != 0 || sig.Score != 0 {
		t.Fatalf("short series should degrade to zero signal, got score=%f conf=%f", sig.Score, sig.Confidence)
	}
}

func TestFundamentalVolumeSpikeScoresPositive(t *testing.T) {
	now := time.Now()
	w := features.NewSnapshotWindow(64)
	for i := 0; i < 30; i++ {
		vol := 1_000_000.0
		if i == 29 {
			vol = 2_000_000
		}
		w.Push(&models.MarketSnapshot{
			Timestamp: now,
			LastPrice: 100,
			Bids:      []models.PriceLevel{{Price: 99.9, Size: 10}},
			Asks:      []models.PriceLevel{{Price: 100.1, Size: 10}},
			Volume24h: vol,
		})
	}

	sig := NewFundamental(DefaultConfig()).Analyze(now, w)
	if sig.Score <= 0 {
		t.Fatalf("volume spike should score positive, got %f", sig.Score)
	}
}

func TestSentimentBidHeavyBookScoresPositive(t *testing.T) {
	now := time.Now()
	w := features.NewSnapshotWindow(8)
	w.Push(&models.MarketSnapshot{
		Timestamp: now,
		Bids:      []models.PriceLevel{{Price: 99.9, Size: 300}, {Price: 99.8, Size: 200}},
		Asks:      []models.PriceLevel{{Price: 100.1, Size: 50}},
		LastPrice: 100,
	})

	sig := NewSentiment(DefaultConfig()).Analyze(now, w)
	if sig.Score <= 0 {
		t.Fatalf("bid-heavy book should score positive, got %f", sig.Score)
	}
}

func TestLiquidityBelowFloorScoresNegative(t *testing.T) {
	now := time.Now()
	w := fillWindow(5, func(i int) float64 { return 100 }, 8_000, now)

	a := NewLiquidity(DefaultConfig(), 10_000)
	sig := a.Analyze(now, w)
	if sig.Score >= 0 {
		t.Fatalf("liquidity 8000 against floor 10000 should score negative, got %f", sig.Score)
	}
}

func TestLiquidityAtFloorScoresZero(t *testing.T) {
	now := time.Now()
	w := fillWindow(5, func(i int) float64 { return 100 }, 10_000, now)

	sig := NewLiquidity(DefaultConfig(), 10_000).Analyze(now, w)
	if sig.Score != 0 {
		t.Fatalf("liquidity exactly at floor should score 0, got %f", sig.Score)
	}
}

func TestRiskFlatSeriesReadsSafe(t *testing.T) {
	now := time.Now()
	w := fillWindow(80, func(i int) float64 { return 100 }, 50_000, now)

	sig := NewRisk(DefaultConfig()).Analyze(now, w)
	if sig.Score != 1 {
		t.Fatalf("flat series has zero volatility and should score +1, got %f", sig.Score)
	}
}

func TestRiskVolatileSeriesScoresLower(t *testing.T) {
	now := time.Now()
	flat := fillWindow(80, func(i int) float64 { return 100 }, 50_000, now)
	wild := fillWindow(80, func(i int) float64 {
		if i%2 == 0 {
			return 100
		}
		return 110
	}, 50_000, now)

	a := NewRisk(DefaultConfig())
	safe := a.Analyze(now, flat)
	risky := a.Analyze(now, wild)
	if risky.Score >= safe.Score {
		t.Fatalf("volatile series should score below flat: %f >= %f", risky.Score, safe.Score)
	}
}
