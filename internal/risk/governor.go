// Package risk contiene el governor que protege cada estrategia y el
// circuit breaker del pipeline.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
)

// RejectReason explica por qué el governor bloqueó una entrada.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectDailyLossLimit RejectReason = "daily_loss_limit"
	RejectMaxPositions   RejectReason = "max_open_positions"
	RejectCooldown       RejectReason = "cooldown"
)

// Governor aplica los límites de riesgo de una estrategia antes de abrir
// cualquier posición. Cada estrategia tiene el suyo; no comparten estado.
type Governor struct {
	strategy       domain.StrategyConfig
	dailyLossLimit float64
	cooldown       time.Duration
	store          ports.Storage
	log            *slog.Logger

	mu          sync.Mutex
	haltedUntil time.Time // entradas bloqueadas hasta el próximo día UTC
}

// NewGovernor crea el governor de una estrategia.
func NewGovernor(strat domain.StrategyConfig, dailyLossLimit float64, cooldown time.Duration, store ports.Storage, log *slog.Logger) *Governor {
	if log == nil {
		log = slog.Default()
	}
	return &Governor{
		strategy:       strat,
		dailyLossLimit: dailyLossLimit,
		cooldown:       cooldown,
		store:          store,
		log:            log.With("strategy", strat.Name),
	}
}

// CooldownKey construye la clave de cooldown de un mercado+lado.
func CooldownKey(strategy, marketID string, side domain.Side) string {
	return fmt.Sprintf("%s::%s::%s", strategy, marketID, side)
}

// Allow decide si una entrada puede abrirse. Devuelve la primera razón de
// rechazo que aplica, en orden: pérdida diaria, posiciones abiertas,
// cooldown del mercado+lado.
func (g *Governor) Allow(ctx context.Context, dec domain.EdgeDecision, openCount int, now time.Time) (RejectReason, error) {
	g.mu.Lock()
	halted := now.Before(g.haltedUntil)
	g.mu.Unlock()
	if halted {
		return RejectDailyLossLimit, nil
	}

	dayStart := now.UTC().Truncate(24 * time.Hour)
	realized, err := g.store.RealizedPnLSince(ctx, g.strategy.Name, dayStart)
	if err != nil {
		return RejectNone, fmt.Errorf("risk.Allow: pnl diario: %w", err)
	}
	if g.dailyLossLimit > 0 && realized <= -g.dailyLossLimit {
		// Bloquea hasta la próxima frontera de día UTC.
		g.mu.Lock()
		g.haltedUntil = dayStart.Add(24 * time.Hour)
		g.mu.Unlock()
		g.log.Warn("límite de pérdida diaria alcanzado, entradas bloqueadas",
			"realized", realized, "limit", g.dailyLossLimit, "until", g.haltedUntil)
		return RejectDailyLossLimit, nil
	}

	if g.strategy.MaxOpen > 0 && openCount >= g.strategy.MaxOpen {
		return RejectMaxPositions, nil
	}

	inCd, err := g.store.InCooldown(ctx, CooldownKey(g.strategy.Name, dec.MarketID, dec.Side), now)
	if err != nil {
		return RejectNone, fmt.Errorf("risk.Allow: cooldown: %w", err)
	}
	if inCd {
		return RejectCooldown, nil
	}

	return RejectNone, nil
}

// MarkEntered registra el cooldown de una entrada admitida: repetir la
// misma noticia no reabre el mismo mercado+lado durante la ventana.
func (g *Governor) MarkEntered(ctx context.Context, dec domain.EdgeDecision, now time.Time) error {
	key := CooldownKey(g.strategy.Name, dec.MarketID, dec.Side)
	if err := g.store.SetCooldown(ctx, key, now.Add(g.cooldown)); err != nil {
		return fmt.Errorf("risk.MarkEntered: %w", err)
	}
	return nil
}
