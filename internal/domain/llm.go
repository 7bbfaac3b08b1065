package domain

// LLMEstimate es la estimación de probabilidad que devuelve el analizador
// LLM para un mercado. Es opcional: el pipeline funciona sin ella.
type LLMEstimate struct {
	MarketID    string
	Probability float64 // estimación cruda del modelo, sin descuento
	Confidence  float64
	Reasoning   string
	NewsTitle   string
}
