package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageLimit   = 100
)

// Tres ordenamientos complementarios: alto volumen (mercados líquidos),
// recién creados (más probabilidad de estar mal priceados) y alta liquidez.
var gammaOrderings = []string{"volume", "startDate", "liquidity"}

// FetchActiveMarkets obtiene los mercados activos de Gamma combinando
// varios ordenamientos y deduplicando por id. Un ordenamiento que falla
// se salta; si fallan todos, devuelve error.
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	seen := make(map[string]bool)
	var raw []gammaMarket
	failed := 0

	for _, order := range gammaOrderings {
		url := fmt.Sprintf("%s%s?closed=false&limit=%d&order=%s&ascending=false",
			c.gammaBase, gammaMarketsPath, gammaPageLimit, order)

		var page []gammaMarket
		if err := c.get(ctx, c.gammaLimiter, url, &page); err != nil {
			slog.Warn("gamma page failed, skipping ordering", "order", order, "err", err)
			failed++
			continue
		}

		for _, gm := range page {
			if gm.ID == "" || seen[gm.ID] {
				continue
			}
			seen[gm.ID] = true
			raw = append(raw, gm)
		}
	}

	if failed == len(gammaOrderings) {
		return nil, fmt.Errorf("polymarket.FetchActiveMarkets: all gamma pages failed")
	}

	markets := make([]domain.Market, 0, len(raw))
	for _, gm := range raw {
		m, ok := mapGammaMarket(gm)
		if !ok {
			continue
		}
		markets = append(markets, m)
	}

	slog.Debug("gamma fetch complete", "raw", len(raw), "usable", len(markets))
	return markets, nil
}
