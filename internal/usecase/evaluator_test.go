package usecase

import (
	"testing"
	"time"

	"DexPilot/internal/domain/models"
)

func evalInput(liq float64, regime models.Regime) EvalInput {
	return EvalInput{
		BotID: "bot-1",
		Pair:  "SOL/USDC",
		Snapshot: &models.MarketSnapshot{
			Pair:          "SOL/USDC",
			PoolLiquidity: liq,
			Bids:          []models.PriceLevel{{Price: 99.9, Size: 100}},
			Asks:          []models.PriceLevel{{Price: 100.1, Size: 100}},
		},
		Signal:    models.AggregatedSignal{Score: 0.3, Confidence: 0.8, Regime: regime, Volatility: 0.01},
		Liquidity: models.AnalysisSignal{Kind: models.AnalyzerLiquidity, Score: 0.5, Confidence: 0.7},
		Alloc:     models.BotAllocation{BotID: "bot-1", Pair: "SOL/USDC", AllocatedCapital: 5000, Status: models.BotActive},
		Now:       time.Unix(1700000000, 0).UTC(),
	}
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(DefaultEvaluatorConfig(), NewGenerator(DefaultGeneratorConfig()))
}

func TestEvaluateLiquidityProvisionGatedBelowFloor(t *testing.T) {
	e := newTestEvaluator()
	in := evalInput(8_000, models.RegimeRanging)

	action, candidates := e.Evaluate(in, models.DefaultStrategyWeights())
	for _, c := range candidates {
		if c.Kind == models.StrategyLiquidityProvision && c.Suitability != 0 {
			t.Fatalf("pool liquidity 8000 below floor 10000 must gate LP to 0, got %f", c.Suitability)
		}
	}
	if action.Kind == models.StrategyLiquidityProvision {
		t.Fatal("liquidity provision selected despite zero suitability")
	}
}

func TestEvaluateRangingMarketPicksMarketMaking(t *testing.T) {
	e := newTestEvaluator()
	in := evalInput(50_000, models.RegimeRanging)

	action, _ := e.Evaluate(in, models.DefaultStrategyWeights())
	if action.Kind != models.StrategyMarketMaking {
		t.Fatalf("expected market making in a ranging market, got %s", action.Kind)
	}
	if action.SpreadHigh < action.SpreadLow {
		t.Fatalf("spread bounds inverted: %f < %f", action.SpreadHigh, action.SpreadLow)
	}
}

func TestEvaluateArbitrageRequiresEdgeAboveSlippage(t *testing.T) {
	e := newTestEvaluator()

	in := evalInput(50_000, models.RegimeTrending)
	in.Snapshot.PriceDiscrepancy = 0.0025 // edge 0.0015 after slippage, below min profit
	_, candidates := e.Evaluate(in, models.DefaultStrategyWeights())
	for _, c := range candidates {
		if c.Kind == models.StrategyArbitrage && c.Suitability != 0 {
			t.Fatalf("edge below min profit must gate arbitrage to 0, got %f", c.Suitability)
		}
	}

	in.Snapshot.PriceDiscrepancy = 0.01 // edge 0.009, well above min profit
	_, candidates = e.Evaluate(in, models.DefaultStrategyWeights())
	found := false
	for _, c := range candidates {
		if c.Kind == models.StrategyArbitrage {
			found = c.Suitability > 0
		}
	}
	if !found {
		t.Fatal("large discrepancy should make arbitrage suitable")
	}
}

func TestEvaluatePriorityBreaksNearTies(t *testing.T) {
	e := newTestEvaluator()
	in := evalInput(30_000, models.RegimeRanging)
	in.Signal.Confidence = 1.0

	// MM suitability 0.8, LP 1.0. With these weights the weighted scores are
	// 0.288 and 0.3: inside the tie band, so market-making wins on priority.
	weights := models.StrategyWeights{
		models.StrategyMarketMaking:       0.36,
		models.StrategyArbitrage:          0.3,
		models.StrategyLiquidityProvision: 0.3,
	}
	action, _ := e.Evaluate(in, weights)
	if action.Kind != models.StrategyMarketMaking {
		t.Fatalf("near-tie should resolve by priority to market making, got %s", action.Kind)
	}
}

func TestEvaluateNothingSuitableYieldsHold(t *testing.T) {
	e := newTestEvaluator()
	in := evalInput(8_000, models.Regime(""))
	in.Liquidity = models.AnalysisSignal{Kind: models.AnalyzerLiquidity, Score: -0.5, Confidence: 0.7}

	action, _ := e.Evaluate(in, models.DefaultStrategyWeights())
	if !action.IsHold() {
		t.Fatalf("expected hold, got %s", action.Kind)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEvaluator()
	in := evalInput(50_000, models.RegimeRanging)

	a1, _ := e.Evaluate(in, models.DefaultStrategyWeights())
	a2, _ := e.Evaluate(in, models.DefaultStrategyWeights())
	if a1 != a2 {
		t.Fatalf("identical inputs produced different actions: %+v vs %+v", a1, a2)
	}
}
