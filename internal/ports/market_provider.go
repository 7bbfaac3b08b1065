package ports

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// MarketProvider obtiene los mercados activos desde Gamma/CLOB.
type MarketProvider interface {
	// FetchActiveMarkets devuelve los mercados binarios activos con sus
	// precios actuales. Pagina automáticamente y deduplica por conditionID.
	FetchActiveMarkets(ctx context.Context) ([]domain.Market, error)
}
