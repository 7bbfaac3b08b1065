package domain

import "time"

// Market representa un mercado de predicción binario en Polymarket.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	EndDate     time.Time // fecha de resolución, enriquecido desde Gamma
	Volume      float64   // volumen total en USDC
	Liquidity   float64
	FeeEnabled  bool // el mercado cobra fee sobre ganancias
	NegRisk     bool
	Tokens      [2]Token
	Active      bool
	Closed      bool

	// Resolución: solo válido cuando Resolved es true.
	Resolved      bool
	SettlementYes float64 // 1.0 si YES ganó, 0.0 si perdió
}

// Token es uno de los dos lados del mercado (YES/NO).
type Token struct {
	TokenID string
	Outcome string  // "Yes" | "No"
	Price   float64 // último precio mid del CLOB
}

// YesPrice devuelve el precio del token YES.
func (m Market) YesPrice() float64 {
	return m.YesToken().Price
}

// HoursToResolution devuelve las horas hasta que el mercado se resuelve.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m Market) HoursToResolution() float64 {
	return m.HoursToResolutionAt(time.Now())
}

// HoursToResolutionAt es HoursToResolution evaluado en un instante dado.
func (m Market) HoursToResolutionAt(now time.Time) float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := m.EndDate.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// YesToken devuelve el token YES del mercado.
func (m Market) YesToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "Yes" {
			return t
		}
	}
	return m.Tokens[0]
}

// NoToken devuelve el token NO del mercado.
func (m Market) NoToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "No" {
			return t
		}
	}
	return m.Tokens[1]
}

// SettlementFor devuelve el valor de liquidación por share para un lado.
func (m Market) SettlementFor(side Side) float64 {
	if !m.Resolved {
		return 0
	}
	if side == SideYes {
		return m.SettlementYes
	}
	return 1 - m.SettlementYes
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del conditionID como fallback.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
