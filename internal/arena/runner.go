// Package arena ejecuta el mismo stream de señales a través de varias
// estrategias independientes y compara sus resultados.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/edge"
	"github.com/alejandrodnm/polyclaw/internal/ledger"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/risk"
	"github.com/alejandrodnm/polyclaw/internal/sizing"
)

// Runner ejecuta una estrategia con su propio ledger, governor y bankroll.
// Nada de su estado es visible para otros runners.
type Runner struct {
	strat    domain.StrategyConfig
	ledger   *ledger.Ledger
	governor *risk.Governor
	sizer    *sizing.Sizer
	calc     *edge.Calculator
	store    ports.Storage
	log      *slog.Logger

	initialBankroll float64

	// live es no-nil solo para la estrategia replicada en vivo.
	live         ports.OrderExecutor
	liveMaxOrder float64
}

// NewRunner crea el runner de una estrategia.
func NewRunner(strat domain.StrategyConfig, bankroll float64, calc *edge.Calculator, sizer *sizing.Sizer, gov *risk.Governor, led *ledger.Ledger, store ports.Storage, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		strat:           strat,
		ledger:          led,
		governor:        gov,
		sizer:           sizer,
		calc:            calc,
		store:           store,
		log:             log.With("strategy", strat.Name),
		initialBankroll: bankroll,
	}
}

// WithLiveMirror activa la réplica en vivo de las entradas admitidas.
func (r *Runner) WithLiveMirror(exec ports.OrderExecutor, maxOrder float64) *Runner {
	r.live = exec
	r.liveMaxOrder = maxOrder
	return r
}

// Name devuelve el nombre de la estrategia del runner.
func (r *Runner) Name() string { return r.strat.Name }

// IsLive devuelve si el runner replica a ejecución real.
func (r *Runner) IsLive() bool { return r.live != nil }

// Ledger expone el ledger del runner.
func (r *Runner) Ledger() *ledger.Ledger { return r.ledger }

// Process evalúa una señal puntuada para esta estrategia y abre posición
// si pasa filtros, governor y sizing. Devuelve la decisión de edge.
func (r *Runner) Process(ctx context.Context, scored domain.ScoredSignal, m domain.Market, now time.Time) (domain.EdgeDecision, error) {
	dec := r.calc.Evaluate(scored, m, r.strat, r.ledger.Bankroll(), now)
	if err := r.store.SaveDecision(ctx, dec, now); err != nil {
		r.log.Warn("no se pudo registrar la decisión", "market", dec.MarketID, "err", err)
	}
	if !dec.Admitted {
		return dec, nil
	}

	if scored.Confidence < r.strat.MinConfidence {
		return dec, nil
	}
	if r.ledger.HasOpen(dec.MarketID, dec.Side) {
		return dec, nil
	}

	reason, err := r.governor.Allow(ctx, dec, r.ledger.OpenCount(), now)
	if err != nil {
		return dec, fmt.Errorf("arena: governor: %w", err)
	}
	if reason != risk.RejectNone {
		r.log.Debug("entrada bloqueada por el governor", "market", dec.MarketID, "reason", reason)
		return dec, nil
	}

	order, sizeReject := r.sizer.Size(dec, r.strat, r.ledger.Bankroll(), r.ledger.Exposure(), r.ledger.OpenCount())
	if sizeReject != sizing.RejectNone {
		// Rechazo de sizing: se registra, no es un error.
		r.notify(ctx, domain.Notification{
			Action:   domain.ActionSignalFiltered,
			MarketID: dec.MarketID,
			Strategy: r.strat.Name,
			Message: fmt.Sprintf("[%s] %s | %s descartada: %s",
				r.strat.Name, domain.TruncateQuestion(dec.Question, dec.MarketID, 60), dec.Side, sizeReject),
			CreatedAt: now,
		})
		return dec, nil
	}

	pos, err := r.ledger.Open(ctx, dec, order, now)
	if err != nil {
		return dec, fmt.Errorf("arena: open: %w", err)
	}
	if err := r.governor.MarkEntered(ctx, dec, now); err != nil {
		r.log.Warn("no se pudo registrar el cooldown", "market", dec.MarketID, "err", err)
	}

	r.notify(ctx, domain.Notification{
		Action:   domain.ActionPositionOpen,
		MarketID: dec.MarketID,
		Strategy: r.strat.Name,
		Message: fmt.Sprintf("[%s] OPEN %s %s @ %.3f × %.0f shares (edge %.1f%%, conf %.0f%%)",
			r.strat.Name, dec.Side, domain.TruncateQuestion(dec.Question, dec.MarketID, 60),
			dec.EntryPrice, order.Shares, dec.Edge*100, dec.Confidence*100),
		CreatedAt: now,
	})

	if r.live != nil {
		r.mirrorLive(ctx, dec, pos, m, now)
	}
	return dec, nil
}

// mirrorLive replica una entrada paper en ejecución real, escalada al
// balance disponible. Un fallo del lado live nunca toca el estado paper.
func (r *Runner) mirrorLive(ctx context.Context, dec domain.EdgeDecision, pos domain.Position, m domain.Market, now time.Time) {
	balance, err := r.live.Balance(ctx)
	if err != nil {
		r.log.Warn("no se pudo leer el balance live", "err", err)
		return
	}

	cost := pos.Cost * (balance / r.initialBankroll)
	if r.liveMaxOrder > 0 && cost > r.liveMaxOrder {
		cost = r.liveMaxOrder
	}
	shares := float64(int(cost / pos.EntryPrice))
	if shares < sizing.MinShares {
		return
	}

	token := m.YesToken()
	if dec.Side == domain.SideNo {
		token = m.NoToken()
	}
	_, err = r.live.Execute(ctx, domain.OrderRequest{
		MarketID: dec.MarketID,
		TokenID:  token.TokenID,
		Side:     dec.Side,
		Action:   "BUY",
		Price:    pos.EntryPrice,
		Shares:   shares,
		NegRisk:  m.NegRisk,
	})
	if err != nil {
		r.log.Error("orden live fallida", "market", dec.MarketID, "err", err)
		r.notify(ctx, domain.Notification{
			Action:   domain.ActionOrderFailed,
			MarketID: dec.MarketID,
			Strategy: r.strat.Name,
			Message: fmt.Sprintf("[live] orden %s %s fallida: %v",
				dec.Side, domain.TruncateQuestion(dec.Question, dec.MarketID, 60), err),
			CreatedAt: now,
		})
	}
}

// MonitorTick evalúa las salidas de las posiciones abiertas contra el
// snapshot del ciclo. Cada cierre genera exactamente una notificación.
func (r *Runner) MonitorTick(ctx context.Context, markets map[string]domain.Market, now time.Time) ([]ledger.Closure, error) {
	closures, err := r.ledger.Monitor(ctx, markets, now)
	if err != nil {
		return closures, fmt.Errorf("arena: monitor %s: %w", r.strat.Name, err)
	}
	for _, c := range closures {
		action := domain.ActionPositionClose
		if c.Reason == domain.ExitRedeemed {
			action = domain.ActionRedeem
		}
		r.notify(ctx, domain.Notification{
			Action:   action,
			MarketID: c.Position.MarketID,
			Strategy: r.strat.Name,
			Message: fmt.Sprintf("[%s] %s %s @ %.3f → %.3f | PnL %+.2f",
				r.strat.Name, c.Reason, domain.TruncateQuestion(c.Position.Question, c.Position.MarketID, 60),
				c.Position.EntryPrice, c.Position.ExitPrice, c.Position.PnL),
			CreatedAt: now,
		})

		if r.live != nil && c.Reason != domain.ExitRedeemed {
			r.exitLive(ctx, c, markets, now)
		}
	}
	return closures, nil
}

// exitLive replica el cierre de una posición en el ejecutor real.
func (r *Runner) exitLive(ctx context.Context, c ledger.Closure, markets map[string]domain.Market, now time.Time) {
	m, ok := markets[c.Position.MarketID]
	if !ok {
		return
	}
	token := m.YesToken()
	if c.Position.Side == domain.SideNo {
		token = m.NoToken()
	}
	_, err := r.live.Execute(ctx, domain.OrderRequest{
		MarketID: c.Position.MarketID,
		TokenID:  token.TokenID,
		Side:     c.Position.Side,
		Action:   "SELL",
		Price:    c.Position.ExitPrice,
		Shares:   c.Position.Shares,
		NegRisk:  m.NegRisk,
	})
	if err != nil {
		r.log.Error("salida live fallida", "market", c.Position.MarketID, "err", err)
		r.notify(ctx, domain.Notification{
			Action:    domain.ActionOrderFailed,
			MarketID:  c.Position.MarketID,
			Strategy:  r.strat.Name,
			Message:   fmt.Sprintf("[live] venta %s fallida: %v", c.Position.MarketID, err),
			CreatedAt: now,
		})
	}
}

// Stats devuelve la fila del leaderboard de esta estrategia.
func (r *Runner) Stats(ctx context.Context, markets map[string]domain.Market) domain.StrategyStats {
	st := r.ledger.Stats(ctx, markets, r.initialBankroll)
	st.Live = r.live != nil
	return st
}

func (r *Runner) notify(ctx context.Context, n domain.Notification) {
	if err := r.store.AddNotification(ctx, n); err != nil {
		r.log.Warn("no se pudo guardar la notificación", "action", n.Action, "err", err)
	}
}
