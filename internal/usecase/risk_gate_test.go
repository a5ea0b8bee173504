package usecase

import (
	"strings"
	"testing"

	"DexPilot/internal/domain/models"
)

func gateInput() GateInput {
	return GateInput{
		Action: models.Action{
			BotID:       "bot-1",
			Kind:        models.StrategyMarketMaking,
			OrderSize:   1000,
			MaxPosition: 5000,
		},
		Alloc: models.BotAllocation{
			BotID:            "bot-1",
			AllocatedCapital: 5000,
			CurrentPosition:  1000,
		},
		Drawdown:      0.02,
		PoolLiquidity: 50_000,
	}
}

func TestGateAllowsHealthyState(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	verdict, tripped := g.Check(gateInput())
	if !verdict.Allowed {
		t.Fatalf("healthy state denied: %v", verdict.Reasons)
	}
	if tripped {
		t.Fatal("breaker tripped on an allowed check")
	}
}

func TestGateDeniesExcessDrawdown(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	in := gateInput()
	in.Drawdown = 0.12

	verdict, _ := g.Check(in)
	if verdict.Allowed {
		t.Fatal("drawdown 0.12 against max 0.1 must be denied")
	}
	if len(verdict.Reasons) == 0 || !strings.Contains(verdict.Reasons[0], "drawdown") {
		t.Fatalf("expected drawdown reason first, got %v", verdict.Reasons)
	}
}

func TestGateDeniesRegardlessOfSignalStrength(t *testing.T) {
	// The gate never sees the composite signal; only state matters.
	g := NewRiskGate(DefaultRiskLimits())
	in := gateInput()
	in.PoolLiquidity = 5_000

	verdict, _ := g.Check(in)
	if verdict.Allowed {
		t.Fatal("liquidity below floor must be denied")
	}
}

func TestGateDeniesExcessLeverage(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	in := gateInput()
	in.Alloc.CurrentPosition = 4500
	in.Action.OrderSize = 2000

	verdict, _ := g.Check(in)
	if verdict.Allowed {
		t.Fatal("exposure 6500 over allocation 5000 must be denied")
	}
}

func TestGateListsAllViolations(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	in := gateInput()
	in.Drawdown = 0.5
	in.PoolLiquidity = 100
	in.Alloc.CurrentPosition = 9000

	verdict, _ := g.Check(in)
	if len(verdict.Reasons) < 3 {
		t.Fatalf("expected every violated constraint listed, got %v", verdict.Reasons)
	}
}

func TestBreakerTripsAfterConsecutiveDenials(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	in := gateInput()
	in.Drawdown = 0.2

	for i := 1; i <= 2; i++ {
		if _, tripped := g.Check(in); tripped {
			t.Fatalf("breaker tripped early on denial %d", i)
		}
	}
	if _, tripped := g.Check(in); !tripped {
		t.Fatal("breaker should trip on the third consecutive denial")
	}
}

func TestBreakerStreakResetsOnAllowedCheck(t *testing.T) {
	g := NewRiskGate(DefaultRiskLimits())
	denied := gateInput()
	denied.Drawdown = 0.2

	g.Check(denied)
	g.Check(denied)
	g.Check(gateInput()) // allowed, resets the streak

	g.Check(denied)
	if _, tripped := g.Check(denied); tripped {
		t.Fatal("streak should have reset after an allowed check")
	}
}
