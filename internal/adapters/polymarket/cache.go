package polymarket

// cache.go — cache TTL de mercados delante del fetch de Gamma.
//
// Una lectura dentro del TTL reutiliza el snapshot. Si el fetch falla con un
// snapshot viejo disponible, se reutiliza una sola vez; un segundo fallo
// consecutivo sí propaga el error.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
)

// MarketCache envuelve un MarketProvider con un cache TTL en memoria.
type MarketCache struct {
	mu        sync.Mutex
	provider  ports.MarketProvider
	ttl       time.Duration
	snapshot  []domain.Market
	fetchedAt time.Time
	staleUsed bool
	now       func() time.Time
}

// NewMarketCache crea un cache con el TTL dado delante del provider.
func NewMarketCache(provider ports.MarketProvider, ttl time.Duration) *MarketCache {
	return &MarketCache{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// FetchActiveMarkets devuelve el snapshot cacheado si está fresco, o
// refresca desde el provider.
func (mc *MarketCache) FetchActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.snapshot != nil && mc.now().Sub(mc.fetchedAt) < mc.ttl {
		return mc.snapshot, nil
	}

	markets, err := mc.provider.FetchActiveMarkets(ctx)
	if err != nil {
		if mc.snapshot != nil && !mc.staleUsed {
			mc.staleUsed = true
			slog.Warn("market fetch failed, reusing stale snapshot",
				"age", mc.now().Sub(mc.fetchedAt).Round(time.Second),
				"err", err,
			)
			return mc.snapshot, nil
		}
		return nil, fmt.Errorf("polymarket.MarketCache: %w", err)
	}

	mc.snapshot = markets
	mc.fetchedAt = mc.now()
	mc.staleUsed = false
	return markets, nil
}
