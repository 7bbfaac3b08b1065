// Package sizing convierte una decisión de edge admitida en un tamaño de
// orden según el criterio de Kelly de la estrategia.
package sizing

import (
	"math"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// MinShares es el tamaño mínimo de una orden en shares. Por debajo las
// comisiones y el redondeo se comen cualquier edge.
const MinShares = 5

// RejectReason explica por qué el sizer no produjo una orden.
// Es un rechazo normal del pipeline, no un error.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectTooFewShares RejectReason = "too_few_shares"
	RejectMaxPositions RejectReason = "max_open_positions"
	RejectNoEdge       RejectReason = "no_edge"
)

// Order es el tamaño calculado para una entrada.
type Order struct {
	Shares float64
	Cost   float64 // USD
	Kelly  float64 // fracción de bankroll antes de clamps USD
}

// Sizer aplica Kelly fraccional con los límites globales de tamaño.
type Sizer struct {
	MaxOrderSize float64
}

// New crea un sizer con el límite de orden dado.
func New(maxOrderSize float64) *Sizer {
	return &Sizer{MaxOrderSize: maxOrderSize}
}

// KellyFraction devuelve la fracción de bankroll a apostar: Kelly completo
// recortado al máximo por posición de la estrategia y escalado después por
// KellyFraction. El escalado va al final para que media Kelly sea
// exactamente la mitad de Kelly completo con los mismos inputs.
func (s *Sizer) KellyFraction(prob, entryPrice float64, strat domain.StrategyConfig) float64 {
	f := domain.KellyFullFraction(prob, entryPrice)
	if strat.MaxPositionPc > 0 && f > strat.MaxPositionPc {
		f = strat.MaxPositionPc
	}
	return f * strat.KellyFraction
}

// Size calcula la orden para una decisión admitida. Devuelve un rechazo
// (no un error) si el tamaño queda por debajo de 5 shares, si la
// estrategia está a tope de posiciones o si la exposición no deja hueco.
func (s *Sizer) Size(dec domain.EdgeDecision, strat domain.StrategyConfig, bankroll, openExposure float64, openCount int) (Order, RejectReason) {
	if strat.MaxOpen > 0 && openCount >= strat.MaxOpen {
		return Order{}, RejectMaxPositions
	}

	f := s.KellyFraction(dec.Probability, dec.EntryPrice, strat)
	if f <= 0 {
		return Order{}, RejectNoEdge
	}

	usd := f * bankroll
	if s.MaxOrderSize > 0 {
		usd = math.Min(usd, s.MaxOrderSize)
	}

	// La exposición total abierta nunca supera MaxExposure × bankroll.
	if strat.MaxExposure > 0 {
		room := strat.MaxExposure*bankroll - openExposure
		if room <= 0 {
			return Order{}, RejectTooFewShares
		}
		usd = math.Min(usd, room)
	}

	shares := math.Floor(usd / dec.EntryPrice)
	if shares < MinShares {
		return Order{}, RejectTooFewShares
	}

	return Order{
		Shares: shares,
		Cost:   shares * dec.EntryPrice,
		Kelly:  f,
	}, RejectNone
}

// EstimateShares devuelve las shares que produciría una entrada, sin
// aplicar límites de exposición ni de posiciones abiertas. Lo usa el
// calculador de edge para el filtro de tamaño mínimo.
func (s *Sizer) EstimateShares(prob, entryPrice float64, strat domain.StrategyConfig, bankroll float64) float64 {
	f := s.KellyFraction(prob, entryPrice, strat)
	if f <= 0 || entryPrice <= 0 {
		return 0
	}
	usd := f * bankroll
	if s.MaxOrderSize > 0 {
		usd = math.Min(usd, s.MaxOrderSize)
	}
	return math.Floor(usd / entryPrice)
}
