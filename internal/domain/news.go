package domain

import "time"

// NewsItem es una noticia o evento de mercado ya parseado por una fuente.
// El pipeline la trata como inmutable.
type NewsItem struct {
	Source    string // "Reuters", "AP", "Fed", ...
	Category  string // tipo de noticia: data_release, breaking_news, trending, ...
	Title     string
	Link      string
	Published time.Time
}

// Age devuelve la antigüedad de la noticia en horas en el instante dado.
func (n NewsItem) Age(now time.Time) float64 {
	if n.Published.IsZero() {
		return 0
	}
	h := now.Sub(n.Published).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Signal es una noticia ya emparejada con un mercado concreto.
// Direction indica hacia dónde empuja la probabilidad del lado YES.
type Signal struct {
	MarketID   string
	Source     string
	Category   string
	NewsTitle  string
	Direction  int     // +1 sube YES, -1 baja YES
	Magnitude  float64 // desplazamiento máximo sugerido, en puntos de probabilidad
	Importance int     // 1..5
	Breaking   bool
	MatchScore float64 // calidad del emparejamiento noticia-mercado [0,1]
	Published  time.Time
}

// ScoredSignal es la salida del agregador para un mercado: una estimación
// de probabilidad con su confianza. Si un mercado no tiene señales ni
// estimación del LLM, simplemente no se produce ScoredSignal.
type ScoredSignal struct {
	MarketID    string
	Probability float64 // estimación del lado YES, ya recortada a [0.02, 0.98]
	Confidence  float64 // [0,1]
	Direction   int     // signo del desplazamiento agregado
	SignalCount int
	Sources     []string
	Triggers    []string // titulares que originaron la señal, para auditoría
	FromLLM     bool     // true si la estimación incorpora al LLM
}
