package ledger

import (
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// timeoutMoveBand: una posición solo expira por timeout si el precio no se
// ha movido más de 2 céntimos desde la entrada (diferencia absoluta, no
// relativa). Si hay movimiento, la tesis sigue viva y deciden TP/SL/trailing.
const timeoutMoveBand = 0.02

// EvaluateExit evalúa la máquina de salidas de una posición contra un
// snapshot de mercado y actualiza su peak. El orden de los checks es fijo:
//
//  1. REDEEMED    — el mercado resolvió; se liquida al valor de settlement,
//     independiente del resto de condiciones.
//  2. TAKE_PROFIT — antes que stop-loss: si un gap de precio cruza ambos
//     umbrales en el mismo tick, gana el resultado favorable. El orden
//     es parte del contrato (backtests reproducibles).
//  3. STOP_LOSS
//  4. TRAILING_STOP — activo cuando el peak ha progresado lo suficiente
//     hacia el target; el trail nunca queda por debajo del stop.
//  5. TIMEOUT — edad cumplida y precio plano: la tesis no se materializó.
//
// Devuelve (razón, precio de salida, true) si la posición debe cerrarse.
func EvaluateExit(p *domain.Position, m domain.Market, strat domain.StrategyConfig, now time.Time) (domain.ExitReason, float64, bool) {
	if m.Resolved {
		return domain.ExitRedeemed, m.SettlementFor(p.Side), true
	}

	price := p.SidePrice(m.YesPrice())
	if price <= 0 {
		return "", 0, false
	}

	if price > p.PeakPrice {
		p.PeakPrice = price
	}

	if price >= p.Target {
		return domain.ExitTakeProfit, price, true
	}
	if price <= p.StopPrice {
		return domain.ExitStopLoss, price, true
	}

	if strat.Trailing {
		targetMove := p.Target - p.EntryPrice
		if targetMove > 0 {
			progress := (p.PeakPrice - p.EntryPrice) / targetMove
			if progress >= strat.TrailingAct {
				trail := p.PeakPrice * (1 - strat.TrailingDist)
				if trail < p.StopPrice {
					trail = p.StopPrice
				}
				if price <= trail {
					return domain.ExitTrailingStop, price, true
				}
			}
		}
	}

	if strat.TimeoutHours > 0 && p.AgeHours(now) >= strat.TimeoutHours {
		move := price - p.EntryPrice
		if move < 0 {
			move = -move
		}
		if move < timeoutMoveBand {
			return domain.ExitTimeout, price, true
		}
	}

	return "", 0, false
}
