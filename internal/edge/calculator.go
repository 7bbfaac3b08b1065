// Package edge calcula el edge neto de fees de un mercado y decide si la
// oportunidad pasa los filtros de admisión.
package edge

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/sizing"
)

// Umbrales de los filtros de admisión.
const (
	lotteryPrice    = 0.03  // por debajo, el mercado casi siempre tiene razón
	absurdEdge      = 0.40  // un edge mayor es error de señal, no oportunidad
	maxEntryPrice   = 0.999 // no queda edge negociable
	expiryFloorHrs  = 1.0
	shortExpiryHrs  = 6.0
	shortExpiryEdge = 0.05 // mercados a punto de expirar exigen más edge
	longExpiryHrs   = 720.0
	longExpiryShrnk = 0.7 // >30 días: encoge el edge un 30% hacia el precio
)

// Calculator evalúa oportunidades para una estrategia concreta.
type Calculator struct {
	feeRate    float64
	spreadCost float64
	sizer      *sizing.Sizer
	log        *slog.Logger
}

// NewCalculator crea un calculador con los parámetros de fees del venue.
func NewCalculator(feeRate, spreadCost float64, sizer *sizing.Sizer, log *slog.Logger) *Calculator {
	if log == nil {
		log = slog.Default()
	}
	return &Calculator{feeRate: feeRate, spreadCost: spreadCost, sizer: sizer, log: log}
}

// FeeFor devuelve el schedule de costes del mercado.
func (c *Calculator) FeeFor(m domain.Market) domain.FeeSchedule {
	return NewFeeSchedule(c.feeRate, c.spreadCost, m.FeeEnabled)
}

// Evaluate produce la decisión de edge de un mercado para una estrategia.
// Los filtros se evalúan en orden fijo y gana el primero que dispara, así
// la razón reportada es estable entre ejecuciones. Como mucho un lado
// resulta admitido; si ambos parecen atractivos (no debería pasar con la
// aritmética de fees correcta) gana el de mayor edge neto.
func (c *Calculator) Evaluate(scored domain.ScoredSignal, m domain.Market, strat domain.StrategyConfig, bankroll float64, now time.Time) domain.EdgeDecision {
	price := m.YesPrice()
	fee := c.FeeFor(m)

	// Calibración: la estimación se acerca al precio según el descuento de
	// la estrategia. El mercado agrega miles de participantes; el modelo
	// aporta señal pero no lo invalida.
	cal := domain.ClampProb(price + (scored.Probability-price)*strat.AIDiscount)

	minEdge := strat.MinEdge
	hoursLeft := -1.0
	if !m.EndDate.IsZero() {
		hoursLeft = m.HoursToResolutionAt(now)
		if hoursLeft < shortExpiryHrs && minEdge < shortExpiryEdge {
			minEdge = shortExpiryEdge
		}
		if hoursLeft > longExpiryHrs {
			cal = price + (cal-price)*longExpiryShrnk
		}
	}

	yesEdge := cal - price - fee(price)
	noEdge := price - cal - fee(1-price)

	dec := domain.EdgeDecision{
		MarketID:    m.ConditionID,
		Question:    m.Question,
		Confidence:  scored.Confidence,
		Triggers:    scored.Triggers,
		SignalCount: scored.SignalCount,
	}
	if yesEdge >= noEdge {
		dec.Side = domain.SideYes
		dec.EntryPrice = price
		dec.Probability = cal
		dec.RawEdge = cal - price
		dec.Fee = fee(price)
		dec.Edge = yesEdge
	} else {
		dec.Side = domain.SideNo
		dec.EntryPrice = 1 - price
		dec.Probability = 1 - cal
		dec.RawEdge = price - cal
		dec.Fee = fee(1 - price)
		dec.Edge = noEdge
	}
	dec.Reliability = reliability(scored)

	if reason := c.filter(dec, price, cal, hoursLeft, minEdge, strat, bankroll); reason != domain.FilterNone {
		dec.Admitted = false
		dec.Reason = reason
		return dec
	}
	dec.Admitted = true
	return dec
}

// filter aplica los filtros de admisión en orden. Devuelve la primera
// razón que dispara, o FilterNone si la oportunidad pasa todos.
func (c *Calculator) filter(dec domain.EdgeDecision, price, cal, hoursLeft, minEdge float64, strat domain.StrategyConfig, bankroll float64) domain.FilterReason {
	if dec.Edge < minEdge {
		return domain.FilterEdgeBelowMin
	}
	if dec.EntryPrice < lotteryPrice {
		return domain.FilterLotteryTicket
	}
	if dec.Edge > absurdEdge {
		return domain.FilterAbsurdEdge
	}
	if hoursLeft >= 0 && hoursLeft < expiryFloorHrs {
		return domain.FilterExpiringSoon
	}
	if price < 0.10 && cal > 0.35 {
		return domain.FilterExtremeLowPrice
	}
	if price > 0.90 && cal < 0.65 {
		return domain.FilterExtremeHighPrice
	}
	if dec.EntryPrice >= maxEntryPrice {
		return domain.FilterPriceTooHigh
	}
	if c.sizer.EstimateShares(dec.Probability, dec.EntryPrice, strat, bankroll) < sizing.MinShares {
		return domain.FilterTooFewShares
	}
	return domain.FilterNone
}

// reliability clasifica la calidad de la señal detrás de la decisión.
func reliability(s domain.ScoredSignal) domain.Reliability {
	switch {
	case s.SignalCount >= 3 && s.Confidence > 0.5:
		return domain.ReliabilityHigh
	case s.SignalCount >= 2:
		return domain.ReliabilityMedium
	}
	return domain.ReliabilityLow
}
