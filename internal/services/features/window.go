package features

import (
	"math"
	"sync"
	"time"

	"DexPilot/internal/domain/models"
)

// SnapshotWindow holds the recent snapshot history for one pair, bounded to a
// fixed capacity. It is safe for one writer (the feed consumer) and many
// readers (analyzers take a copy of the price series).
type SnapshotWindow struct {
	mu       sync.RWMutex
	capacity int
	snaps    []*models.MarketSnapshot
}

// NewSnapshotWindow creates a window holding up to capacity snapshots.
func NewSnapshotWindow(capacity int) *SnapshotWindow {
	if capacity <= 1 {
		capacity = 120
	}
	return &SnapshotWindow{capacity: capacity}
}

// Push appends a snapshot, evicting the oldest once at capacity.
func (w *SnapshotWindow) Push(s *models.MarketSnapshot) {
	if s == nil {
		return
	}
	w.mu.Lock()
	w.snaps = append(w.snaps, s)
	if len(w.snaps) > w.capacity {
		w.snaps = w.snaps[len(w.snaps)-w.capacity:]
	}
	w.mu.Unlock()
}

// Len returns the number of buffered snapshots.
func (w *SnapshotWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.snaps)
}

// Latest returns the most recent snapshot, or nil when empty.
func (w *SnapshotWindow) Latest() *models.MarketSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.snaps) == 0 {
		return nil
	}
	return w.snaps[len(w.snaps)-1]
}

// Prices returns a copy of the mid-price series, oldest first.
func (w *SnapshotWindow) Prices() []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]float64, 0, len(w.snaps))
	for _, s := range w.snaps {
		out = append(out, s.MidPrice())
	}
	return out
}

// Volumes returns a copy of the 24h volume series, oldest first.
func (w *SnapshotWindow) Volumes() []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]float64, 0, len(w.snaps))
	for _, s := range w.snaps {
		out = append(out, s.Volume24h)
	}
	return out
}

// Stale reports whether the latest snapshot is older than maxAge.
func (w *SnapshotWindow) Stale(now time.Time, maxAge time.Duration) bool {
	last := w.Latest()
	if last == nil {
		return true
	}
	return now.Sub(last.Timestamp) > maxAge
}

// LogReturns computes r_t = ln(P_t / P_{t-1}). Returns a slice of length
// len(prices)-1, or nil if insufficient data.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes the standard deviation of the last window
// returns. Returns 0 when there is not enough data.
func RealizedVolatility(returns []float64, window int) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for i := len(returns) - window; i < len(returns); i++ {
		r := returns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// TrendSlope fits a least-squares line through the price series and returns
// the per-step slope normalized by the mean price, so results are comparable
// across pairs with different price scales.
func TrendSlope(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range prices {
		x := float64(i)
		sumX += x
		sumY += p
		sumXY += x * p
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	mean := sumY / fn
	if mean == 0 {
		return 0
	}
	return slope / mean
}

// DirectionalPersistence returns the signed fraction of same-direction moves
// in [-1,1]: +1 every step up, -1 every step down, near 0 for choppy series.
func DirectionalPersistence(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	ups, downs := 0, 0
	for _, r := range returns {
		switch {
		case r > 0:
			ups++
		case r < 0:
			downs++
		}
	}
	return float64(ups-downs) / float64(len(returns))
}
