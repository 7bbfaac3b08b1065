package ports

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// OrderExecutor fills buy/sell orders. The paper implementation simulates
// fills at the current price; the live one submits limit orders to the CLOB.
type OrderExecutor interface {
	// Execute fills the order and returns the obtained execution.
	// Live implementations retry transient failures with backoff before
	// giving up; a returned error means the order definitively failed.
	Execute(ctx context.Context, req domain.OrderRequest) (domain.Execution, error)

	// Balance returns the available USDC balance.
	Balance(ctx context.Context) (float64, error)
}
