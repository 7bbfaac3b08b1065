// Package signal convierte las señales de noticias de un ciclo en una
// estimación de probabilidad por mercado.
package signal

import (
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Credibilidad por fuente (escala 0-1). Fuentes desconocidas usan 0.3.
var sourceCredibility = map[string]float64{
	// Tier 1: agencias de cable / datos oficiales
	"Reuters": 1.0, "AP": 1.0, "Bloomberg": 1.0,
	// Tier 2: medios cripto de calidad
	"CoinDesk": 0.6, "The Block": 0.6,
	"BlockBeats": 0.8, "PANews": 0.7,
	// Tier 3: agregadores / sentimiento
	"CryptoNews": 0.3, "CoinGecko-Trending": 0.2, "Fear&Greed": 0.3,
	// Tier 4: datos on-chain (factual, mucha señal)
	"BTC-Whale": 0.85, "ETH-Gas": 0.7, "BTC-Fees": 0.6,
	"DeFi-TVL": 0.8, "Exchange-Flow": 0.9,
	// Tier 5: deportes
	"ESPN": 0.85, "ESPN-NBA": 0.85, "ESPN-NFL": 0.85,
	"ESPN-Soccer": 0.80, "ESPN-MLB": 0.80,
	// Tier 6: anomalías de precio (algo ESTÁ pasando)
	"Price-Alert": 0.95, "Volume-Spike": 0.80,
}

// Confianza base por fuente, para el término de confianza del agregado.
var sourceConfidence = map[string]float64{
	"Reuters": 0.90, "AP": 0.90, "Bloomberg": 0.85,
	"BTC-Whale": 0.80, "Exchange-Flow": 0.85, "DeFi-TVL": 0.75,
	"BTC-Fees": 0.65, "ETH-Gas": 0.65,
	"ESPN": 0.80, "ESPN-NBA": 0.80, "ESPN-NFL": 0.80,
	"ESPN-Soccer": 0.75, "ESPN-MLB": 0.75,
	"Price-Alert": 0.90, "Volume-Spike": 0.75,
	"CoinDesk": 0.60, "The Block": 0.60, "BlockBeats": 0.65, "PANews": 0.60,
	"CryptoNews": 0.40, "CoinGecko-Trending": 0.30, "Fear&Greed": 0.35,
}

// Importancia (1-5) → desplazamiento máximo de probabilidad.
var importanceShift = map[int]float64{
	1: 0.02,
	2: 0.04,
	3: 0.07,
	4: 0.12,
	5: 0.18, // breaking mayor (decisión de la Fed, guerra, ...)
}

// Config controla el decay de frescura, el dampening por volumen y el blend
// con el LLM. Los half-lives son por categoría de noticia y configurables.
type Config struct {
	Halflives        map[string]float64 // categoría → half-life en horas
	DefaultHalflife  float64
	FreshnessFloor   float64
	BreakingBoost    float64
	HighVolumeUSD    float64 // por encima: dampening fuerte
	MidVolumeUSD     float64
	HighVolumeFactor float64
	MidVolumeFactor  float64
	MaxConfidence    float64
}

// DefaultConfig devuelve la configuración calibrada del agregador.
func DefaultConfig() Config {
	return Config{
		Halflives: map[string]float64{
			"data_release":       0.5, // CPI/GDP/earnings → descontado en 30 min
			"official_statement": 2.0,
			"breaking_news":      1.0,
			"analysis":           6.0,
			"trending":           12.0,
			"onchain":            2.0,
		},
		DefaultHalflife:  4.0,
		FreshnessFloor:   0.05,
		BreakingBoost:    1.5,
		HighVolumeUSD:    1_000_000,
		MidVolumeUSD:     100_000,
		HighVolumeFactor: 0.4,
		MidVolumeFactor:  0.65,
		MaxConfidence:    0.92,
	}
}

// Aggregator produce como mucho un ScoredSignal por mercado y ciclo.
type Aggregator struct {
	cfg Config
	log *slog.Logger
	now func() time.Time
}

// New crea un agregador con la configuración dada.
func New(cfg Config, log *slog.Logger) *Aggregator {
	if cfg.DefaultHalflife <= 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{cfg: cfg, log: log, now: time.Now}
}

// WithClock fija el reloj del agregador. Solo para tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Credibility devuelve el peso de credibilidad de una fuente.
func Credibility(source string) float64 {
	if w, ok := sourceCredibility[source]; ok {
		return w
	}
	return 0.3
}

// baseConfidence devuelve la confianza base de una fuente.
func baseConfidence(source string) float64 {
	if c, ok := sourceConfidence[source]; ok {
		return c
	}
	return 0.5
}

// MagnitudeFor devuelve el desplazamiento máximo para una importancia dada.
func MagnitudeFor(importance int, breaking bool, boost float64) float64 {
	m, ok := importanceShift[importance]
	if !ok {
		m = 0.04
	}
	if breaking {
		m *= boost
	}
	return m
}

// Freshness devuelve el multiplicador de frescura [floor, 1] de una señal.
// Decay exponencial con half-life por categoría: 2^(-edad/halflife).
func (a *Aggregator) Freshness(sig domain.Signal, now time.Time) float64 {
	if sig.Published.IsZero() {
		return 0.5 // edad desconocida → moderado
	}
	age := now.Sub(sig.Published).Hours()
	if age < 0 {
		age = 0
	}
	half, ok := a.cfg.Halflives[sig.Category]
	if !ok {
		half = a.cfg.DefaultHalflife
	}
	f := math.Pow(2, -age/half)
	return domain.Clamp(f, a.cfg.FreshnessFloor, 1.0)
}

// RawShift calcula el desplazamiento agregado antes del dampening por
// volumen: Σ dirección × magnitud × credibilidad × match × frescura.
// Señales opuestas se cancelan parcialmente; alineadas se refuerzan.
func (a *Aggregator) RawShift(sigs []domain.Signal, now time.Time) float64 {
	total := 0.0
	for _, s := range sigs {
		total += a.contribution(s, now)
	}
	return total
}

func (a *Aggregator) contribution(s domain.Signal, now time.Time) float64 {
	mag := s.Magnitude
	if mag == 0 {
		mag = MagnitudeFor(s.Importance, s.Breaking, a.cfg.BreakingBoost)
	}
	match := s.MatchScore
	if match <= 0 || match > 1 {
		match = 1
	}
	return float64(s.Direction) * mag * Credibility(s.Source) * match * a.Freshness(s, now)
}

// dampen reduce el desplazamiento en mercados muy líquidos: ya están
// eficientemente priceados y una noticia los mueve menos.
func (a *Aggregator) dampen(shift, volume float64) float64 {
	switch {
	case volume > a.cfg.HighVolumeUSD:
		return shift * a.cfg.HighVolumeFactor
	case volume > a.cfg.MidVolumeUSD:
		return shift * a.cfg.MidVolumeFactor
	}
	return shift
}

// Aggregate produce el ScoredSignal de un mercado: estimación rule-based a
// partir de las señales, mezclada con la estimación del LLM si existe.
// Sin señales y sin LLM no hay salida (ausencia, no un registro con
// confianza cero).
func (a *Aggregator) Aggregate(m domain.Market, sigs []domain.Signal, llm *domain.LLMEstimate) (domain.ScoredSignal, bool) {
	if len(sigs) == 0 && llm == nil {
		return domain.ScoredSignal{}, false
	}

	now := a.now()
	price := m.YesPrice()

	ruleProb := price
	ruleConf := 0.0
	if len(sigs) > 0 {
		shift := a.dampen(a.RawShift(sigs, now), m.Volume)
		ruleProb = domain.ClampProb(price + shift)
		ruleConf = a.confidence(sigs, now)
	}

	prob, conf := ruleProb, ruleConf
	fromLLM := false
	if llm != nil && llm.Confidence > 0 {
		fromLLM = true
		if ruleConf > 0 {
			// Blend ponderado por confianza, nunca un override.
			w := ruleConf + llm.Confidence
			prob = (ruleProb*ruleConf + llm.Probability*llm.Confidence) / w
		} else {
			prob = llm.Probability
		}
		conf = math.Max(ruleConf, llm.Confidence)
		prob = domain.ClampProb(prob)
	}

	out := domain.ScoredSignal{
		MarketID:    m.ConditionID,
		Probability: prob,
		Confidence:  domain.Clamp(conf, 0, 1),
		SignalCount: len(sigs),
		FromLLM:     fromLLM,
	}
	if prob > price {
		out.Direction = 1
	} else if prob < price {
		out.Direction = -1
	}

	seen := map[string]bool{}
	for _, s := range sigs {
		if !seen[s.Source] {
			seen[s.Source] = true
			out.Sources = append(out.Sources, s.Source)
		}
		out.Triggers = append(out.Triggers, s.NewsTitle)
	}
	if llm != nil && llm.NewsTitle != "" {
		out.Triggers = append(out.Triggers, llm.NewsTitle)
	}

	a.log.Debug("señal agregada",
		"market", m.ConditionID,
		"price", price,
		"prob", out.Probability,
		"conf", out.Confidence,
		"signals", len(sigs),
		"llm", fromLLM,
	)
	return out, true
}

// confidence combina credibilidad media, calidad de match, frescura de la
// mejor señal, diversidad de fuentes y número de señales; después penaliza
// la varianza entre fuentes: señales que no se ponen de acuerdo en la
// dirección bajan la confianza.
func (a *Aggregator) confidence(sigs []domain.Signal, now time.Time) float64 {
	n := float64(len(sigs))

	var sumConf, sumMatch, bestFresh float64
	seen := map[string]bool{}
	for _, s := range sigs {
		sumConf += baseConfidence(s.Source)
		match := s.MatchScore
		if match <= 0 || match > 1 {
			match = 1
		}
		sumMatch += match
		if f := a.Freshness(s, now); f > bestFresh {
			bestFresh = f
		}
		seen[s.Source] = true
	}
	diversity := math.Min(1.0, float64(len(seen))/3.0)

	base := sumConf/n*0.30 +
		sumMatch/n*0.20 +
		bestFresh*0.25 +
		diversity*0.15 +
		math.Min(1.0, n/3.0)*0.10

	return math.Min(a.cfg.MaxConfidence, base*a.consistency(sigs, now))
}

// consistency mide cuánto se alinean las señales. Devuelve 1 cuando todas
// empujan en la misma dirección y baja hacia 0.6 cuando se cancelan.
func (a *Aggregator) consistency(sigs []domain.Signal, now time.Time) float64 {
	if len(sigs) < 2 {
		return 1
	}
	var net, gross float64
	for _, s := range sigs {
		c := a.contribution(s, now)
		net += c
		gross += math.Abs(c)
	}
	if gross == 0 {
		return 1
	}
	agreement := math.Abs(net) / gross
	return 0.6 + 0.4*agreement
}
