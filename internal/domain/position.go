package domain

import "time"

// PositionStatus is the lifecycle state of a position. Closed is terminal.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitTimeout      ExitReason = "TIMEOUT"
	ExitManual       ExitReason = "MANUAL"
	ExitRedeemed     ExitReason = "REDEEMED"
)

// Position is an open or closed stake on one side of a market.
// Prices are always expressed in the position's own side: for NO positions
// EntryPrice is the NO price (1 - yesPrice), and monitoring feeds side prices.
type Position struct {
	ID         string // uuid
	Strategy   string
	MarketID   string
	Question   string
	Side       Side
	EntryPrice float64
	Shares     float64
	Cost       float64 // EntryPrice * Shares
	Target     float64 // take-profit price
	StopPrice  float64 // stop-loss price
	PeakPrice  float64 // best side price seen since entry, for trailing stops
	Confidence float64
	Trigger    string // headline that produced the entry
	OpenedAt   time.Time
	Status     PositionStatus

	// Set once, when the position closes.
	ExitPrice  float64
	ExitReason ExitReason
	ClosedAt   time.Time
	PnL        float64
}

// SidePrice converts a YES price into this position's side price.
func (p Position) SidePrice(yesPrice float64) float64 {
	if p.Side == SideNo {
		return 1 - yesPrice
	}
	return yesPrice
}

// ValueAt returns the mark-to-market value at a side price.
func (p Position) ValueAt(sidePrice float64) float64 {
	return sidePrice * p.Shares
}

// UnrealizedAt returns the unrealized PnL at a side price.
func (p Position) UnrealizedAt(sidePrice float64) float64 {
	return p.ValueAt(sidePrice) - p.Cost
}

// AgeHours returns how long the position has been open, in hours.
func (p Position) AgeHours(now time.Time) float64 {
	return now.Sub(p.OpenedAt).Hours()
}

// IsOpen reports whether the position can still be closed.
func (p Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// TradeRecord is one row of the immutable trade audit log.
// Opens and closes each append exactly one record.
type TradeRecord struct {
	PositionID string
	Strategy   string
	MarketID   string
	Side       Side
	Action     string // "OPEN" | "CLOSE" | "REDEEM"
	Price      float64
	Shares     float64
	PnL        float64 // zero for opens
	Reason     string  // exit reason for closes
	Timestamp  time.Time
}
