package models

import "time"

// PriceLevel is one order book level.
type PriceLevel struct {
	Price float64
	Size  float64
}

// MarketSnapshot is the per-cycle view of one venue/pair. Ephemeral: produced by
// the feed, consumed by one decision cycle, then discarded.
type MarketSnapshot struct {
	Venue            string
	Pair             string
	Timestamp        time.Time
	Bids             []PriceLevel // best first
	Asks             []PriceLevel // best first
	LastPrice        float64
	Volume24h        float64
	PoolLiquidity    float64
	PriceDiscrepancy float64 // cross-venue mispricing estimate, signed fraction
}

// BestBid returns the top bid price, or 0 if the book side is empty.
func (s *MarketSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the top ask price, or 0 if the book side is empty.
func (s *MarketSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// MidPrice returns the book midpoint, falling back to the last trade price.
func (s *MarketSnapshot) MidPrice() float64 {
	bid, ask := s.BestBid(), s.BestAsk()
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}
	return s.LastPrice
}

// Spread returns the relative bid/ask spread, or 0 when the book is one-sided.
func (s *MarketSnapshot) Spread() float64 {
	bid, ask := s.BestBid(), s.BestAsk()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	mid := (bid + ask) / 2
	return (ask - bid) / mid
}

// Fill is an execution report from the execution collaborator.
type Fill struct {
	BotID    string
	Pair     string
	Strategy StrategyKind // strategy of the action this fill confirms
	Price    float64
	Quantity float64 // signed: buys positive, sells negative
	Fee      float64
	PnL      float64 // realized PnL contribution
	Mark     float64 // mark-to-market unrealized PnL reported with the fill
	Capital  float64 // bot's allocated capital after this fill applied
	At       time.Time
	Success  bool
}
