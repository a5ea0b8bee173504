package usecase

import (
	"time"

	"DexPilot/internal/domain/models"
)

// EvalInput is everything one strategy evaluation needs, captured once at
// cycle start so the whole evaluation reads a consistent view.
type EvalInput struct {
	BotID     string
	Pair      string
	Snapshot  *models.MarketSnapshot
	Signal    models.AggregatedSignal
	Liquidity models.AnalysisSignal // raw liquidity signal, pre-aggregation
	Alloc     models.BotAllocation
	Now       time.Time
}

// EvaluatorConfig holds the strategy suitability thresholds.
type EvaluatorConfig struct {
	Epsilon        float64 // weighted-suitability band treated as a tie
	MinProfit      float64 // minimum cross-venue edge for arbitrage
	MaxSlippage    float64 // slippage budget subtracted from the edge
	LiquidityFloor float64 // pool depth below which liquidity provision is off
}

// DefaultEvaluatorConfig returns the baseline thresholds.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Epsilon:        0.05,
		MinProfit:      0.002,
		MaxSlippage:    0.001,
		LiquidityFloor: 10_000,
	}
}

// Evaluator scores each strategy variant against the composite signal and the
// bot's allocation state, then picks the best weighted candidate. A variant
// with suitability 0 is never selected; when nothing qualifies the evaluation
// yields a hold action.
type Evaluator struct {
	cfg EvaluatorConfig
	gen *Generator
}

func NewEvaluator(cfg EvaluatorConfig, gen *Generator) *Evaluator {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.05
	}
	if cfg.MinProfit <= 0 {
		cfg.MinProfit = 0.002
	}
	if cfg.MaxSlippage < 0 {
		cfg.MaxSlippage = 0.001
	}
	if cfg.LiquidityFloor <= 0 {
		cfg.LiquidityFloor = 10_000
	}
	return &Evaluator{cfg: cfg, gen: gen}
}

// Evaluate scores all variants and returns the selected action plus the full
// candidate list for observability.
func (e *Evaluator) Evaluate(in EvalInput, weights models.StrategyWeights) (models.Action, []models.StrategyCandidate) {
	kinds := []models.StrategyKind{
		models.StrategyMarketMaking,
		models.StrategyArbitrage,
		models.StrategyLiquidityProvision,
	}

	candidates := make([]models.StrategyCandidate, 0, len(kinds))
	for _, kind := range kinds {
		s := e.suitability(kind, in)
		c := models.StrategyCandidate{Kind: kind, Suitability: s}
		if s > 0 {
			c.Draft = e.gen.Generate(kind, in)
		}
		candidates = append(candidates, c)
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		if c.Suitability <= 0 {
			continue
		}
		weighted := c.Suitability * weights[c.Kind]
		switch {
		case best < 0 || weighted > bestScore+e.cfg.Epsilon:
			best, bestScore = i, weighted
		case weighted > bestScore-e.cfg.Epsilon:
			// Within the tie band: priority order decides.
			if models.StrategyPriority(c.Kind) < models.StrategyPriority(candidates[best].Kind) {
				best = i
				if weighted > bestScore {
					bestScore = weighted
				}
			} else if weighted > bestScore {
				bestScore = weighted
			}
		}
	}

	if best < 0 {
		return e.gen.Hold(in.BotID, in.Pair, in.Now), candidates
	}
	return candidates[best].Draft, candidates
}

func (e *Evaluator) suitability(kind models.StrategyKind, in EvalInput) float64 {
	switch kind {
	case models.StrategyMarketMaking:
		return e.marketMaking(in)
	case models.StrategyArbitrage:
		return e.arbitrage(in)
	case models.StrategyLiquidityProvision:
		return e.liquidityProvision(in)
	default:
		return 0
	}
}

// marketMaking favors ranging markets with healthy depth.
func (e *Evaluator) marketMaking(in EvalInput) float64 {
	var base float64
	switch in.Signal.Regime {
	case models.RegimeRanging:
		base = 0.8
	case models.RegimeTrending:
		base = 0.4
	case models.RegimeVolatile:
		base = 0.2
	}
	if in.Liquidity.Confidence > 0 && in.Liquidity.Score < 0 {
		base *= 0.25
	}
	return clamp01F(base * (0.5 + in.Signal.Confidence/2))
}

// arbitrage requires an observed cross-venue discrepancy whose edge survives
// the slippage budget, and enough depth to cross it.
func (e *Evaluator) arbitrage(in EvalInput) float64 {
	if in.Snapshot == nil {
		return 0
	}
	if in.Liquidity.Confidence > 0 && in.Liquidity.Score < 0 {
		return 0
	}
	disc := in.Snapshot.PriceDiscrepancy
	if disc < 0 {
		disc = -disc
	}
	edge := disc - e.cfg.MaxSlippage
	if edge < e.cfg.MinProfit {
		return 0
	}
	// Saturates at five times the minimum edge.
	return clamp01F(edge / (5 * e.cfg.MinProfit))
}

// liquidityProvision is hard-gated at zero below the pool floor, then scales
// with the depth surplus.
func (e *Evaluator) liquidityProvision(in EvalInput) float64 {
	if in.Snapshot == nil || in.Snapshot.PoolLiquidity < e.cfg.LiquidityFloor {
		return 0
	}
	gap := (in.Snapshot.PoolLiquidity - e.cfg.LiquidityFloor) / e.cfg.LiquidityFloor
	return clamp01F(0.2 + gap/2)
}

func clamp01F(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
