package usecase

import (
	"time"

	"DexPilot/internal/domain/models"
)

// GeneratorConfig holds the numeric bounds for emitted actions.
type GeneratorConfig struct {
	MinSpread      float64 // floor for the quoted half-book spread
	MaxSpread      float64 // cap for the quoted spread
	RebalanceMM    float64 // position deviation trigger for market-making
	RebalanceLP    float64 // position deviation trigger for liquidity provision
	StopLossBase   float64 // stop-loss before the volatility add-on
	TakeProfitBase float64 // take-profit before the volatility add-on
}

// DefaultGeneratorConfig returns the baseline action bounds.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinSpread:      0.001,
		MaxSpread:      0.05,
		RebalanceMM:    0.2,
		RebalanceLP:    0.3,
		StopLossBase:   0.02,
		TakeProfitBase: 0.03,
	}
}

// Generator converts a selected strategy into concrete numeric parameters.
// Generation is deterministic: identical inputs always yield identical actions.
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.MinSpread <= 0 {
		cfg.MinSpread = 0.001
	}
	if cfg.MaxSpread <= cfg.MinSpread {
		cfg.MaxSpread = 0.05
	}
	if cfg.RebalanceMM <= 0 {
		cfg.RebalanceMM = 0.2
	}
	if cfg.RebalanceLP <= 0 {
		cfg.RebalanceLP = 0.3
	}
	if cfg.StopLossBase <= 0 {
		cfg.StopLossBase = 0.02
	}
	if cfg.TakeProfitBase <= 0 {
		cfg.TakeProfitBase = 0.03
	}
	return &Generator{cfg: cfg}
}

// Generate builds the action for the chosen strategy. The spread widens with
// realized volatility, order size shrinks as the position approaches its cap,
// and stop levels carry a volatility add-on.
func (g *Generator) Generate(kind models.StrategyKind, in EvalInput) models.Action {
	act := models.Action{
		BotID: in.BotID,
		Kind:  kind,
		Pair:  in.Pair,
		At:    in.Now,
	}
	if kind == models.StrategyHold {
		return act
	}

	maxPosition := in.Alloc.AllocatedCapital
	act.MaxPosition = maxPosition

	spread := clampF(2*in.Signal.Volatility, g.cfg.MinSpread, g.cfg.MaxSpread)
	act.SpreadLow = g.cfg.MinSpread
	act.SpreadHigh = spread

	if maxPosition > 0 {
		used := in.Alloc.CurrentPosition
		if used < 0 {
			used = -used
		}
		frac := 1 - used/maxPosition
		if frac < 0 {
			frac = 0
		}
		act.OrderSize = maxPosition * frac
	}

	// Above-neutral risk shrinks the order linearly, vanishing at the extreme.
	if rs := in.Signal.RiskScore; rs > 0.5 {
		act.OrderSize *= clampF(2*(1-rs), 0, 1)
	}

	switch kind {
	case models.StrategyLiquidityProvision:
		act.RebalanceThreshold = g.cfg.RebalanceLP
	default:
		act.RebalanceThreshold = g.cfg.RebalanceMM
	}

	act.StopLoss = g.cfg.StopLossBase + in.Signal.Volatility/2
	act.TakeProfit = g.cfg.TakeProfitBase + in.Signal.Volatility/2

	return act
}

// Hold builds the no-op action emitted when no strategy is selectable.
func (g *Generator) Hold(botID, pair string, now time.Time) models.Action {
	return models.Action{BotID: botID, Kind: models.StrategyHold, Pair: pair, At: now}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
