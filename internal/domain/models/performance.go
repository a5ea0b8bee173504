package models

import "time"

// TradeRecord is one realized trade in the rolling performance window.
// Capital is the bot's allocated capital after the trade applied; it anchors
// the equity curve so drawdown is measured against real capital, not just
// accumulated profit.
type TradeRecord struct {
	BotID    string
	Pair     string
	Strategy StrategyKind
	PnL      float64
	Fee      float64
	Capital  float64
	At       time.Time
}

// Net returns PnL after fees.
func (t TradeRecord) Net() float64 { return t.PnL - t.Fee }

// PerformanceReport is the rolling-window summary for one bot or the whole pool.
// SharpeRatio and WinRate are only populated once the window holds at least the
// configured minimum number of trades.
type PerformanceReport struct {
	BotID       string // empty for the global report
	Window      time.Duration
	Trades      int
	TotalPnL    float64
	WinRate     float64
	SharpeRatio float64
	MaxDrawdown float64
	Sufficient  bool // false when below the minimum trade count
	GeneratedAt time.Time
}
