package domain

import "time"

// OrderRequest is sent to an order executor to enter or exit a position.
type OrderRequest struct {
	MarketID string
	TokenID  string
	Side     Side
	Action   string // "BUY" | "SELL"
	Price    float64
	Shares   float64
	NegRisk  bool
}

// Execution is the executor's answer: the fill actually obtained.
type Execution struct {
	OrderID     string
	FilledPrice float64
	Shares      float64
	Cost        float64
	ExecutedAt  time.Time
}
