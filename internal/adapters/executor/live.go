package executor

// live.go — real order execution through the Polymarket CLOB.
//
// Orders are priced at the touch (best ask for buys, best bid for sells) so
// limit orders fill immediately. A market whose spread is wider than
// maxSpread is treated as dead and the order is skipped.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyclaw/internal/domain"
)

const (
	// Widest acceptable distance between our reference price and the touch.
	maxSpread = 0.10
	// Bump applied to the reference price when the book is unavailable.
	blindPriceBump = 0.02
)

// clobClient is the slice of the Polymarket client the live executor needs.
type clobClient interface {
	FetchBook(ctx context.Context, tokenID string) (polymarket.Book, error)
	PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (string, error)
	CollateralBalance(ctx context.Context) (float64, error)
}

// Live submits limit orders to the CLOB.
type Live struct {
	client clobClient
	log    *slog.Logger
}

// NewLive creates a live executor backed by an authenticated CLOB client.
func NewLive(client clobClient, log *slog.Logger) *Live {
	return &Live{client: client, log: log}
}

// Execute prices the order at the touch and submits it as a GTC limit order.
func (l *Live) Execute(ctx context.Context, req domain.OrderRequest) (domain.Execution, error) {
	price, err := l.priceAtTouch(ctx, req)
	if err != nil {
		return domain.Execution{}, err
	}
	req.Price = price

	orderID, err := l.client.PlaceLimitOrder(ctx, req)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("executor.Live: %w", err)
	}

	cost := req.Price * req.Shares
	l.log.Info("live order placed",
		"order_id", orderID,
		"market", req.MarketID,
		"side", req.Side,
		"action", req.Action,
		"price", req.Price,
		"shares", req.Shares,
		"cost", cost,
	)

	return domain.Execution{
		OrderID:     orderID,
		FilledPrice: req.Price,
		Shares:      req.Shares,
		Cost:        cost,
		ExecutedAt:  time.Now().UTC(),
	}, nil
}

// Balance returns the available USDC.e collateral on the CLOB.
func (l *Live) Balance(ctx context.Context) (float64, error) {
	return l.client.CollateralBalance(ctx)
}

// priceAtTouch replaces the reference price with the touch of the book.
// When the book can't be fetched, falls back to the reference price plus a
// small bump so the order still crosses.
func (l *Live) priceAtTouch(ctx context.Context, req domain.OrderRequest) (float64, error) {
	book, err := l.client.FetchBook(ctx, req.TokenID)
	if err != nil {
		l.log.Warn("book fetch failed, pricing blind", "token", req.TokenID, "err", err)
		if req.Action == "SELL" {
			return clampTick(req.Price - blindPriceBump), nil
		}
		return clampTick(req.Price + blindPriceBump), nil
	}

	if req.Action == "SELL" {
		if book.BestBid <= 0 {
			return 0, fmt.Errorf("executor.Live: no bids for token %s", req.TokenID)
		}
		if req.Price-book.BestBid > maxSpread {
			return 0, fmt.Errorf("executor.Live: spread too wide (mid=%.3f bid=%.3f)", req.Price, book.BestBid)
		}
		return book.BestBid, nil
	}

	if book.BestAsk <= 0 {
		return 0, fmt.Errorf("executor.Live: no asks for token %s", req.TokenID)
	}
	if book.BestAsk-req.Price > maxSpread {
		return 0, fmt.Errorf("executor.Live: spread too wide (mid=%.3f ask=%.3f)", req.Price, book.BestAsk)
	}
	return book.BestAsk, nil
}

// clampTick keeps a price inside the valid (0, 1) band.
func clampTick(price float64) float64 {
	if price < 0.001 {
		return 0.001
	}
	if price > 0.999 {
		return 0.999
	}
	return price
}
