package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
// Devuelve ok=false si el mercado no es usable (sin tokens, sin precios
// o sin condition id).
func mapGammaMarket(gm gammaMarket) (domain.Market, bool) {
	if gm.ConditionID == "" {
		return domain.Market{}, false
	}

	prices := parseStringFloats(gm.OutcomePrices)
	tokenIDs := parseStringList(gm.ClobTokenIDs)
	outcomes := parseStringList(gm.Outcomes)
	if len(prices) < 2 || len(tokenIDs) < 2 {
		return domain.Market{}, false
	}
	if len(outcomes) < 2 {
		outcomes = []string{"Yes", "No"}
	}

	m := domain.Market{
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		Slug:        gm.Slug,
		FeeEnabled:  gm.FeeType != "",
		NegRisk:     gm.NegRisk,
		Active:      gm.Active,
		Closed:      gm.Closed,
	}

	if v, err := gm.Volume.Float64(); err == nil {
		m.Volume = v
	}
	if v, err := gm.Liquidity.Float64(); err == nil {
		m.Liquidity = v
	}

	for i := 0; i < 2; i++ {
		m.Tokens[i] = domain.Token{
			TokenID: tokenIDs[i],
			Outcome: outcomes[i],
			Price:   prices[i],
		}
	}

	if gm.EndDate != "" {
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, gm.EndDate); err == nil {
				m.EndDate = t.UTC()
				break
			}
		}
	}

	// Un mercado está resuelto cuando el precio de un token llegó a extremo
	// o UMA lo marcó como resuelto. El lado ganador es el que quedó en 1.
	yes := m.Tokens[0].Price
	if gm.UMAResolution == "resolved" || (gm.Closed && (yes <= 0.001 || yes >= 0.999)) {
		m.Resolved = true
		if yes >= 0.5 {
			m.SettlementYes = 1
		}
	}

	return m, true
}

// parseStringFloats decodifica un array JSON anidado de precios,
// p.ej. `["0.35", "0.65"]`.
func parseStringFloats(s string) []float64 {
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, r := range raw {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// parseStringList decodifica un array JSON anidado de strings.
func parseStringList(s string) []string {
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	return raw
}
