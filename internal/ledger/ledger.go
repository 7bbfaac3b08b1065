// Package ledger mantiene el conjunto de posiciones de una estrategia y
// aplica su máquina de estados de salida.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/sizing"
)

// Closure es el resultado de cerrar una posición en un tick de monitoreo.
type Closure struct {
	Position domain.Position
	Reason   domain.ExitReason
}

// Ledger posee en exclusiva las posiciones de una estrategia. Todas las
// mutaciones pasan por su mutex: solo un hilo toca el conjunto a la vez.
// Ninguna posición es visible desde el ledger de otra estrategia.
type Ledger struct {
	mu        sync.Mutex
	strategy  domain.StrategyConfig
	bankroll  float64
	realized  float64
	store     ports.Storage
	log       *slog.Logger
	positions map[string]*domain.Position // por id, solo abiertas
}

// New crea el ledger de una estrategia con su bankroll inicial.
func New(strat domain.StrategyConfig, bankroll float64, store ports.Storage, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		strategy:  strat,
		bankroll:  bankroll,
		store:     store,
		log:       log.With("strategy", strat.Name),
		positions: make(map[string]*domain.Position),
	}
}

// Restore carga las posiciones abiertas persistidas. Se llama una vez al
// arrancar, antes del primer ciclo.
func (l *Ledger) Restore(ctx context.Context) error {
	open, err := l.store.GetPositions(ctx, l.strategy.Name, domain.PositionOpen)
	if err != nil {
		return fmt.Errorf("ledger.Restore: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range open {
		p := open[i]
		l.positions[p.ID] = &p
	}
	l.log.Info("posiciones restauradas", "open", len(open))
	return nil
}

// Strategy devuelve la configuración de la estrategia del ledger.
func (l *Ledger) Strategy() domain.StrategyConfig { return l.strategy }

// Bankroll devuelve el bankroll actual (inicial + PnL realizado).
func (l *Ledger) Bankroll() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bankroll
}

// OpenCount devuelve el número de posiciones abiertas.
func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// Exposure devuelve el coste total de las posiciones abiertas.
func (l *Ledger) Exposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exposureLocked()
}

func (l *Ledger) exposureLocked() float64 {
	total := 0.0
	for _, p := range l.positions {
		total += p.Cost
	}
	return total
}

// HasOpen devuelve si ya existe una posición abierta en el mercado+lado.
func (l *Ledger) HasOpen(marketID string, side domain.Side) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.positions {
		if p.MarketID == marketID && p.Side == side {
			return true
		}
	}
	return false
}

// OpenPositions devuelve una copia de las posiciones abiertas.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// Open crea una posición a partir de una decisión admitida y su tamaño.
// Persiste la posición y añade la entrada OPEN al registro de trades.
func (l *Ledger) Open(ctx context.Context, dec domain.EdgeDecision, order sizing.Order, now time.Time) (domain.Position, error) {
	trigger := ""
	if len(dec.Triggers) > 0 {
		trigger = dec.Triggers[0]
	}
	p := domain.Position{
		ID:         uuid.NewString(),
		Strategy:   l.strategy.Name,
		MarketID:   dec.MarketID,
		Question:   dec.Question,
		Side:       dec.Side,
		EntryPrice: dec.EntryPrice,
		Shares:     order.Shares,
		Cost:       order.Cost,
		Target:     dec.EntryPrice * (1 + l.strategy.TPRatio),
		StopPrice:  dec.EntryPrice * l.strategy.SLRatio,
		PeakPrice:  dec.EntryPrice,
		Confidence: dec.Confidence,
		Trigger:    trigger,
		OpenedAt:   now,
		Status:     domain.PositionOpen,
	}

	if err := l.store.UpsertPosition(ctx, p); err != nil {
		return domain.Position{}, fmt.Errorf("ledger.Open: persist: %w", err)
	}
	if err := l.store.InsertTrade(ctx, domain.TradeRecord{
		PositionID: p.ID,
		Strategy:   p.Strategy,
		MarketID:   p.MarketID,
		Side:       p.Side,
		Action:     "OPEN",
		Price:      p.EntryPrice,
		Shares:     p.Shares,
		Timestamp:  now,
	}); err != nil {
		return domain.Position{}, fmt.Errorf("ledger.Open: trade log: %w", err)
	}

	l.mu.Lock()
	l.positions[p.ID] = &p
	l.mu.Unlock()

	l.log.Info("posición abierta",
		"market", p.MarketID,
		"side", p.Side,
		"entry", p.EntryPrice,
		"shares", p.Shares,
		"cost", p.Cost,
	)
	return p, nil
}

// Monitor evalúa las salidas de todas las posiciones abiertas contra un
// snapshot consistente de mercados: cada mercado se lee una sola vez por
// pasada, nunca a mitad de los checks TP/SL. Devuelve los cierres.
func (l *Ledger) Monitor(ctx context.Context, markets map[string]domain.Market, now time.Time) ([]Closure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var closures []Closure
	for _, p := range l.positions {
		m, ok := markets[p.MarketID]
		if !ok {
			continue
		}
		exit, price, closed := EvaluateExit(p, m, l.strategy, now)
		if !closed {
			// Persistir el peak actualizado: el trailing stop sobrevive reinicios.
			if err := l.store.UpsertPosition(ctx, *p); err != nil {
				l.log.Warn("no se pudo persistir el peak", "position", p.ID, "err", err)
			}
			continue
		}
		if err := l.closeLocked(ctx, p, exit, price, now); err != nil {
			// La posición sigue abierta; se reintenta en la próxima pasada.
			return closures, err
		}
		closures = append(closures, Closure{Position: *p, Reason: exit})
		delete(l.positions, p.ID)
	}
	return closures, nil
}

// Close cierra una posición manualmente al precio dado.
func (l *Ledger) Close(ctx context.Context, positionID string, price float64, now time.Time) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[positionID]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger.Close: posición %s no está abierta", positionID)
	}
	if err := l.closeLocked(ctx, p, domain.ExitManual, price, now); err != nil {
		return domain.Position{}, err
	}
	delete(l.positions, positionID)
	return *p, nil
}

// closeLocked aplica el cierre: una posición cerrada es terminal y no
// puede cerrarse dos veces. Cada cierre añade exactamente una entrada al
// registro de trades.
func (l *Ledger) closeLocked(ctx context.Context, p *domain.Position, reason domain.ExitReason, price float64, now time.Time) error {
	if p.Status == domain.PositionClosed {
		return fmt.Errorf("ledger: posición %s ya cerrada", p.ID)
	}
	closed := *p
	closed.Status = domain.PositionClosed
	closed.ExitPrice = price
	closed.ExitReason = reason
	closed.ClosedAt = now
	closed.PnL = (price - closed.EntryPrice) * closed.Shares

	// Persistir antes de mutar memoria: si el storage falla la posición
	// sigue abierta y sin tocar, y el cierre se reintenta sin duplicar el
	// PnL en el bankroll. UpsertPosition es idempotente, así que un fallo
	// entre las dos escrituras también es recuperable.
	if err := l.store.UpsertPosition(ctx, closed); err != nil {
		return fmt.Errorf("ledger: persist close: %w", err)
	}
	action := "CLOSE"
	if reason == domain.ExitRedeemed {
		action = "REDEEM"
	}
	if err := l.store.InsertTrade(ctx, domain.TradeRecord{
		PositionID: closed.ID,
		Strategy:   closed.Strategy,
		MarketID:   closed.MarketID,
		Side:       closed.Side,
		Action:     action,
		Price:      price,
		Shares:     closed.Shares,
		PnL:        closed.PnL,
		Reason:     string(reason),
		Timestamp:  now,
	}); err != nil {
		return fmt.Errorf("ledger: trade log: %w", err)
	}

	*p = closed
	l.realized += closed.PnL
	l.bankroll += closed.PnL

	l.log.Info("posición cerrada",
		"market", p.MarketID,
		"side", p.Side,
		"reason", reason,
		"exit", price,
		"pnl", p.PnL,
	)
	return nil
}

// RealizedPnL devuelve el PnL realizado acumulado en memoria.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realized
}

// Stats calcula las métricas de la estrategia para el leaderboard.
func (l *Ledger) Stats(ctx context.Context, markets map[string]domain.Market, initialBankroll float64) domain.StrategyStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := domain.StrategyStats{
		Strategy:      l.strategy.Name,
		OpenPositions: len(l.positions),
		RealizedPnL:   l.realized,
		Bankroll:      l.bankroll,
	}
	for _, p := range l.positions {
		st.Invested += p.Cost
		if m, ok := markets[p.MarketID]; ok {
			st.UnrealizedPnL += p.UnrealizedAt(p.SidePrice(m.YesPrice()))
		}
	}
	if initialBankroll > 0 {
		st.ROI = l.realized / initialBankroll
	}

	closed, err := l.store.GetPositions(ctx, l.strategy.Name, domain.PositionClosed)
	if err == nil {
		for _, p := range closed {
			if p.PnL > 0 {
				st.Wins++
			} else if p.PnL < 0 {
				st.Losses++
			}
		}
		if st.Wins+st.Losses > 0 {
			st.WinRate = float64(st.Wins) / float64(st.Wins+st.Losses)
		}
	}
	return st
}
