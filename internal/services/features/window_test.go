package features

import (
	"math"
	"testing"
	"time"

	"DexPilot/internal/domain/models"
)

func TestSnapshotWindowEvictsOldest(t *testing.T) {
	w := NewSnapshotWindow(3)
	for i := 1; i <= 5; i++ {
		w.Push(&models.MarketSnapshot{LastPrice: float64(i)})
	}
	if w.Len() != 3 {
		t.Fatalf("expected 3 snapshots, got %d", w.Len())
	}
	ps := w.Prices()
	if ps[0] != 3 || ps[2] != 5 {
		t.Fatalf("unexpected window contents %v", ps)
	}
}

func TestSnapshotWindowStale(t *testing.T) {
	w := NewSnapshotWindow(10)
	now := time.Now()
	if !w.Stale(now, time.Minute) {
		t.Fatalf("empty window must be stale")
	}
	w.Push(&models.MarketSnapshot{Timestamp: now.Add(-2 * time.Minute)})
	if !w.Stale(now, time.Minute) {
		t.Fatalf("expected stale after max age")
	}
	w.Push(&models.MarketSnapshot{Timestamp: now})
	if w.Stale(now, time.Minute) {
		t.Fatalf("fresh snapshot must not be stale")
	}
}

func TestLogReturns(t *testing.T) {
	rets := LogReturns([]float64{100, 110, 99})
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", rets[0])
	}
	if LogReturns([]float64{100}) != nil {
		t.Fatalf("expected nil for single price")
	}
}

func TestRealizedVolatilityFlatSeries(t *testing.T) {
	rets := []float64{0, 0, 0, 0, 0}
	if v := RealizedVolatility(rets, 5); v != 0 {
		t.Fatalf("flat series vol = %v, want 0", v)
	}
	if v := RealizedVolatility(rets, 10); v != 0 {
		t.Fatalf("short series must yield 0, got %v", v)
	}
}

func TestTrendSlopeDirection(t *testing.T) {
	up := TrendSlope([]float64{100, 101, 102, 103, 104})
	if up <= 0 {
		t.Fatalf("rising series slope = %v, want > 0", up)
	}
	down := TrendSlope([]float64{104, 103, 102, 101, 100})
	if down >= 0 {
		t.Fatalf("falling series slope = %v, want < 0", down)
	}
	if s := TrendSlope([]float64{100}); s != 0 {
		t.Fatalf("single point slope = %v, want 0", s)
	}
}

func TestDirectionalPersistence(t *testing.T) {
	if p := DirectionalPersistence([]float64{0.1, 0.2, 0.1}); p != 1 {
		t.Fatalf("all-up persistence = %v, want 1", p)
	}
	if p := DirectionalPersistence([]float64{0.1, -0.1}); p != 0 {
		t.Fatalf("balanced persistence = %v, want 0", p)
	}
}

func TestRSIBounds(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if r := RSI(rising, 14); r != 100 {
		t.Fatalf("monotonic rise RSI = %v, want 100", r)
	}
	if r := RSI([]float64{1, 2}, 14); r != 50 {
		t.Fatalf("insufficient data RSI = %v, want 50", r)
	}
}

func TestBollingerBandsOrdering(t *testing.T) {
	prices := []float64{10, 11, 9, 10, 12, 8, 10, 11, 9, 10, 12, 8, 10, 11, 9, 10, 12, 8, 10, 11}
	up, mid, lo := BollingerBands(prices, 20, 2)
	if !(up > mid && mid > lo) {
		t.Fatalf("band ordering violated: %v %v %v", up, mid, lo)
	}
}
