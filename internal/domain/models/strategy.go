package models

import "time"

// StrategyKind is a closed set of strategy variants. Adding a strategy means
// adding a constant here and an evaluator for it, nothing else.
type StrategyKind string

const (
	StrategyMarketMaking       StrategyKind = "market_making"
	StrategyArbitrage          StrategyKind = "arbitrage"
	StrategyLiquidityProvision StrategyKind = "liquidity_provision"
	StrategyHold               StrategyKind = "hold"
)

// StrategyPriority orders variants for tie-breaking: lower wins.
func StrategyPriority(k StrategyKind) int {
	switch k {
	case StrategyMarketMaking:
		return 0
	case StrategyArbitrage:
		return 1
	case StrategyLiquidityProvision:
		return 2
	default:
		return 3
	}
}

// StrategyCandidate is one evaluated variant for one cycle.
type StrategyCandidate struct {
	Kind        StrategyKind
	Suitability float64 // [0,1]; 0 means never selectable
	Draft       Action
}

// Action is the immutable output of a completed decision cycle.
type Action struct {
	BotID              string
	Kind               StrategyKind
	Pair               string
	SpreadLow          float64
	SpreadHigh         float64
	OrderSize          float64
	MaxPosition        float64
	RebalanceThreshold float64
	StopLoss           float64
	TakeProfit         float64
	At                 time.Time
}

// IsHold reports whether the action carries no order intent.
func (a Action) IsHold() bool { return a.Kind == StrategyHold }

// RiskVerdict is the hard gate outcome. Reasons lists every violated
// constraint in evaluation order.
type RiskVerdict struct {
	Allowed bool
	Reasons []string
}
