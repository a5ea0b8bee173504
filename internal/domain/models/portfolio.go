package models

import "time"

// BotStatus is the bot lifecycle state.
type BotStatus string

const (
	BotCreated BotStatus = "created"
	BotActive  BotStatus = "active"
	BotPaused  BotStatus = "paused"
	BotStopped BotStatus = "stopped"
	BotRemoved BotStatus = "removed"
)

// RunsCycles reports whether a bot in this status executes decision cycles.
func (s BotStatus) RunsCycles() bool { return s == BotActive }

// BotConfig is the validated creation request produced by the (external)
// bot-creation flow.
type BotConfig struct {
	Pair           string
	Venue          string
	Allocation     float64
	UpdateInterval time.Duration
}

// BotAllocation is one bot's slice of the master portfolio.
type BotAllocation struct {
	BotID            string
	Pair             string
	Venue            string
	AllocatedCapital float64
	CurrentPosition  float64
	RealizedPnL      float64
	UnrealizedPnL    float64
	Status           BotStatus
	UpdateInterval   time.Duration
	CreatedAt        time.Time
}

// PortfolioSnapshot is an immutable, consistent copy of the master portfolio,
// taken atomically at cycle start. Allocations are copies, safe to read without
// coordination.
type PortfolioSnapshot struct {
	TotalBalance   float64
	AvailableFunds float64
	Allocations    map[string]BotAllocation
	TakenAt        time.Time
}

// Allocation returns the allocation for botID, if present.
func (p *PortfolioSnapshot) Allocation(botID string) (BotAllocation, bool) {
	a, ok := p.Allocations[botID]
	return a, ok
}
