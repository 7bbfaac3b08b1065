package polymarket

// orders.go — colocación de órdenes y balance en el CLOB.

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

const (
	orderPath   = "/order"
	balancePath = "/balance-allowance?asset_type=COLLATERAL"
)

// PlaceLimitOrder envía una orden límite GTC al CLOB.
// price y shares se redondean al tick de 0.001.
func (ac *AuthClient) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	body := clobOrder{
		TokenID:   req.TokenID,
		Price:     strconv.FormatFloat(req.Price, 'f', 3, 64),
		Size:      strconv.FormatFloat(req.Shares, 'f', 2, 64),
		Side:      req.Action,
		OrderType: "GTC",
		NegRisk:   req.NegRisk,
	}

	var resp clobOrderResponse
	if err := ac.doAuth(ctx, "POST", orderPath, body, &resp); err != nil {
		return "", fmt.Errorf("polymarket.PlaceLimitOrder: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("polymarket.PlaceLimitOrder: rejected: %s", resp.ErrorMsg)
	}
	return resp.OrderID, nil
}

// CollateralBalance devuelve el balance USDC.e disponible en el CLOB.
func (ac *AuthClient) CollateralBalance(ctx context.Context) (float64, error) {
	var resp clobBalanceResponse
	if err := ac.doAuth(ctx, "GET", balancePath, nil, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.CollateralBalance: %w", err)
	}

	raw, err := strconv.ParseInt(resp.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket.CollateralBalance: parse %q: %w", resp.Balance, err)
	}
	// USDC.e usa 6 decimales
	return float64(raw) / 1e6, nil
}
