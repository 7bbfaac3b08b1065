package domain

// Side es el lado de un mercado binario sobre el que se toma posición.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// FilterReason identifica por qué una oportunidad fue rechazada.
// El orden de evaluación es fijo: gana el primer filtro que dispara.
type FilterReason string

const (
	FilterNone             FilterReason = ""
	FilterEdgeBelowMin     FilterReason = "edge_below_threshold"
	FilterLotteryTicket    FilterReason = "lottery_ticket"
	FilterAbsurdEdge       FilterReason = "absurd_edge"
	FilterExpiringSoon     FilterReason = "expiring_<1h"
	FilterExtremeLowPrice  FilterReason = "extreme_low_price_mismatch"
	FilterExtremeHighPrice FilterReason = "extreme_high_price_mismatch"
	FilterPriceTooHigh     FilterReason = "price_too_high"
	FilterTooFewShares     FilterReason = "too_few_shares"
)

// filterLabels son las descripciones legibles para notificaciones y logs.
var filterLabels = map[FilterReason]string{
	FilterEdgeBelowMin:     "edge por debajo del mínimo",
	FilterLotteryTicket:    "precio de lotería (<3¢)",
	FilterAbsurdEdge:       "edge absurdo (>40%), señal no confiable",
	FilterExpiringSoon:     "mercado expira en menos de 1h",
	FilterExtremeLowPrice:  "precio extremo bajo, estimación demasiado lejos",
	FilterExtremeHighPrice: "precio extremo alto, estimación demasiado lejos",
	FilterPriceTooHigh:     "precio por encima de 99.9%",
	FilterTooFewShares:     "tamaño Kelly por debajo de 5 shares",
}

// Label devuelve la descripción legible de la razón de filtrado.
func (r FilterReason) Label() string {
	if l, ok := filterLabels[r]; ok {
		return l
	}
	return string(r)
}

// Reliability clasifica la calidad de la señal detrás de una decisión.
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// FeeSchedule devuelve el coste estimado por share de entrar a un precio dado.
// Es una función pura del precio: el calculador de edge no conoce el venue.
type FeeSchedule func(price float64) float64

// EdgeDecision es el resultado del cálculo de edge para un mercado.
// Como mucho un lado por mercado resulta admitido por ciclo.
type EdgeDecision struct {
	MarketID    string
	Question    string
	Side        Side
	EntryPrice  float64 // precio del lado elegido (1-yesPrice para NO)
	Probability float64 // estimación para el lado elegido
	Confidence  float64
	RawEdge     float64 // antes de fees
	Edge        float64 // neto de fees, el que decide admisión
	Fee         float64
	Reliability Reliability
	Admitted    bool
	Reason      FilterReason // válido solo cuando Admitted es false
	Triggers    []string
	SignalCount int
}
