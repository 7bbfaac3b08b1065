package executor

// paper.go — simulated fills for paper trading.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Paper fills every order instantly at the requested price.
// It tracks a virtual balance so the same guards apply as in live mode.
type Paper struct {
	mu      sync.Mutex
	balance float64
}

// NewPaper creates a paper executor with the given starting balance.
func NewPaper(balance float64) *Paper {
	return &Paper{balance: balance}
}

// Execute simulates a fill at the requested price.
func (p *Paper) Execute(ctx context.Context, req domain.OrderRequest) (domain.Execution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cost := req.Price * req.Shares
	if req.Action == "BUY" {
		p.balance -= cost
	} else {
		p.balance += cost
	}

	return domain.Execution{
		OrderID:     uuid.NewString(),
		FilledPrice: req.Price,
		Shares:      req.Shares,
		Cost:        cost,
		ExecutedAt:  time.Now().UTC(),
	}, nil
}

// Balance returns the remaining virtual balance.
func (p *Paper) Balance(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}
