package analyzers

import (
	"math"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/services/features"
)

const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
	rsiPeriod      = 14
	bbPeriod       = 20
	bbStdDev       = 2.0
)

// Technical scores trend, momentum, and band position from the price series.
type Technical struct {
	cfg Config
}

func NewTechnical(cfg Config) *Technical { return &Technical{cfg: cfg} }

func (a *Technical) Kind() models.AnalyzerKind { return models.AnalyzerTechnical }

func (a *Technical) Analyze(now time.Time, w *features.SnapshotWindow) models.AnalysisSignal {
	if w == nil || w.Stale(now, a.cfg.MaxSnapshotAge) {
		return noInput(a.Kind(), now)
	}
	prices := w.Prices()
	if len(prices) < smaLongPeriod+1 {
		return noInput(a.Kind(), now)
	}

	price := prices[len(prices)-1]
	smaShort := features.SMA(prices, smaShortPeriod)
	smaLong := features.SMA(prices, smaLongPeriod)
	rsi := features.RSI(prices, rsiPeriod)
	bbUp, _, bbLo := features.BollingerBands(prices, bbPeriod, bbStdDev)

	// Trend: price above both averages and short above long is a full long
	// signal, the mirror image a full short.
	var trend float64
	switch {
	case price > smaShort && smaShort > smaLong:
		trend = 1
	case price < smaShort && smaShort < smaLong:
		trend = -1
	case price > smaShort:
		trend = 0.5
	case price < smaShort:
		trend = -0.5
	}

	// Momentum: RSI extremes are contrarian.
	var momentum float64
	if rsi > 70 {
		momentum = -1
	} else if rsi < 30 {
		momentum = 1
	}

	// Band position: closes outside the bands fade back in.
	var band float64
	if price > bbUp {
		band = -1
	} else if price < bbLo {
		band = 1
	}

	score := trend*0.4 + momentum*0.4 + band*0.2

	rets := features.LogReturns(prices)
	vol := features.RealizedVolatility(rets, min(a.cfg.ShortWindow, len(rets)))
	trendStrength := 0.0
	if smaLong > 0 {
		trendStrength = math.Abs(smaShort-smaLong) / smaLong
	}
	confidence := clamp01(0.4 + trendStrength*10 + (1-math.Abs(rsi-50)/50)*0.2 - vol*2)

	return signal(a.Kind(), score, confidence, now)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
