package usecase

import (
	"fmt"
	"sync"

	"DexPilot/internal/domain/models"
)

// RiskLimits are the hard constraints checked before any action is emitted.
type RiskLimits struct {
	MaxDrawdown      float64 // rolling drawdown ceiling over the performance window
	MaxLeverage      float64 // exposure over allocated capital
	MinLiquidity     float64 // pool depth floor
	BreakerThreshold int     // consecutive denials before the breaker trips
}

// DefaultRiskLimits returns the baseline limits.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxDrawdown:      0.1,
		MaxLeverage:      1.0,
		MinLiquidity:     10_000,
		BreakerThreshold: 3,
	}
}

// GateInput is the state one gate check evaluates against.
type GateInput struct {
	Action        models.Action
	Alloc         models.BotAllocation
	Drawdown      float64 // rolling drawdown for this bot
	PoolLiquidity float64
}

// RiskGate applies the hard constraints independent of signal quality and
// tracks consecutive denials per bot for the circuit breaker. Safe for
// concurrent use across bot cycles.
type RiskGate struct {
	limits RiskLimits

	mu      sync.Mutex
	denials map[string]int
}

func NewRiskGate(limits RiskLimits) *RiskGate {
	if limits.MaxDrawdown <= 0 {
		limits.MaxDrawdown = 0.1
	}
	if limits.MaxLeverage <= 0 {
		limits.MaxLeverage = 1.0
	}
	if limits.MinLiquidity <= 0 {
		limits.MinLiquidity = 10_000
	}
	if limits.BreakerThreshold <= 0 {
		limits.BreakerThreshold = 3
	}
	return &RiskGate{limits: limits, denials: make(map[string]int)}
}

// Check evaluates every constraint and returns the verdict plus whether this
// denial tripped the circuit breaker. Every violated constraint is listed, in
// evaluation order, so a denial log is self-explanatory.
func (g *RiskGate) Check(in GateInput) (models.RiskVerdict, bool) {
	var reasons []string

	if in.Drawdown > g.limits.MaxDrawdown {
		reasons = append(reasons, fmt.Sprintf("drawdown %.4f exceeds max %.4f", in.Drawdown, g.limits.MaxDrawdown))
	}

	if in.Alloc.AllocatedCapital > 0 {
		exposure := in.Alloc.CurrentPosition
		if exposure < 0 {
			exposure = -exposure
		}
		exposure += in.Action.OrderSize
		leverage := exposure / in.Alloc.AllocatedCapital
		if leverage > g.limits.MaxLeverage {
			reasons = append(reasons, fmt.Sprintf("leverage %.4f exceeds max %.4f", leverage, g.limits.MaxLeverage))
		}
	}

	if in.PoolLiquidity < g.limits.MinLiquidity {
		reasons = append(reasons, fmt.Sprintf("liquidity %.2f below minimum %.2f", in.PoolLiquidity, g.limits.MinLiquidity))
	}

	if in.Action.MaxPosition > 0 {
		pos := in.Alloc.CurrentPosition
		if pos < 0 {
			pos = -pos
		}
		if pos+in.Action.OrderSize > in.Action.MaxPosition {
			reasons = append(reasons, fmt.Sprintf("position %.2f would exceed cap %.2f", pos+in.Action.OrderSize, in.Action.MaxPosition))
		}
	}

	if len(reasons) == 0 {
		g.reset(in.Action.BotID)
		return models.RiskVerdict{Allowed: true}, false
	}
	return models.RiskVerdict{Allowed: false, Reasons: reasons}, g.deny(in.Action.BotID)
}

// Reset clears the denial streak, used when an operator resumes a bot.
func (g *RiskGate) Reset(botID string) { g.reset(botID) }

func (g *RiskGate) reset(botID string) {
	g.mu.Lock()
	delete(g.denials, botID)
	g.mu.Unlock()
}

func (g *RiskGate) deny(botID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.denials[botID]++
	if g.denials[botID] >= g.limits.BreakerThreshold {
		delete(g.denials, botID)
		return true
	}
	return false
}
