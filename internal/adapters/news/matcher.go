package news

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// entity es un término reconocible tanto en titulares como en preguntas de
// mercado. Los específicos (bitcoin, trump) anclan el match; los genéricos
// (inflation, war) solo acompañan.
type entity struct {
	name     string
	keywords []string
	category string
	specific bool
}

var entities = []entity{
	{"bitcoin", []string{"bitcoin", "btc"}, "crypto", true},
	{"ethereum", []string{"ethereum", "eth "}, "crypto", true},
	{"solana", []string{"solana", "sol "}, "crypto", true},
	{"xrp", []string{"xrp", "ripple"}, "crypto", true},
	{"dogecoin", []string{"dogecoin", "doge"}, "crypto", true},
	{"binance", []string{"binance"}, "crypto", true},
	{"etf", []string{"etf"}, "economics", false},
	{"trump", []string{"trump", "donald trump"}, "politics", true},
	{"biden", []string{"biden", "joe biden"}, "politics", true},
	{"elon musk", []string{"elon musk", "musk"}, "tech", true},
	{"fed", []string{"federal reserve", "fomc", "powell", "rate cut", "rate hike"}, "economics", false},
	{"sec", []string{"sec ", "securities and exchange", "gensler"}, "economics", false},
	{"inflation", []string{"inflation", "cpi", "consumer price"}, "economics", false},
	{"recession", []string{"recession", "gdp contraction"}, "economics", false},
	{"tariff", []string{"tariff", "trade war"}, "economics", false},
	{"ukraine", []string{"ukraine", "kyiv", "zelenskyy"}, "geopolitics", true},
	{"russia", []string{"russia", "putin", "kremlin"}, "geopolitics", true},
	{"china", []string{"china", "beijing", "xi jinping"}, "geopolitics", true},
	{"war", []string{"war ", "invasion", "ceasefire"}, "geopolitics", false},
}

var positiveWords = map[string]bool{
	"surge": true, "rise": true, "gain": true, "bull": true, "bullish": true,
	"up": true, "high": true, "approve": true, "pass": true, "win": true,
	"adopt": true, "launch": true, "boost": true, "rally": true, "record": true,
	"growth": true, "accept": true, "support": true, "success": true,
	"breakthrough": true, "agreement": true, "soar": true, "spike": true,
	"upgrade": true, "strong": true, "beat": true, "outperform": true,
}

var negativeWords = map[string]bool{
	"crash": true, "fall": true, "drop": true, "bear": true, "bearish": true,
	"down": true, "low": true, "reject": true, "fail": true, "lose": true,
	"ban": true, "halt": true, "plunge": true, "decline": true,
	"recession": true, "collapse": true, "oppose": true, "block": true,
	"delay": true, "concern": true, "fear": true, "risk": true,
	"warning": true, "slump": true, "cut": true, "weak": true, "miss": true,
	"crisis": true, "default": true, "panic": true, "selloff": true,
	"dump": true,
}

var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"barely": true, "hardly": true, "unlikely": true,
}

// Mercados cuya pregunta en YES apuesta a la baja ("dip below", "crash").
var bearishQuestionWords = []string{
	"dip", "fall", "drop", "below", "under", "crash", "decline", "lose",
}

var breakingMarkers = []string{
	"breaking", "just in", "urgent", "alert", "developing",
	"exclusive", "flash", "confirmed",
}

var importanceKeywords = map[int][]string{
	5: {"fed ", "fomc", "rate decision", "rate cut", "rate hike", "war ", "invasion", "default"},
	4: {"regulation", "ban", "approve", "etf", "indictment", "sanction", "crash"},
	3: {"earnings", "report", "announce", "launch", "partnership"},
	2: {"trending", "rumor", "speculation", "opinion"},
}

var sourceTier = map[string]int{
	"Reuters": 5, "AP": 5, "Bloomberg": 5,
	"CoinDesk": 3, "The Block": 3, "PANews": 3,
	"CNBC": 3, "MarketWatch": 3,
}

// Importancia (1-5) → desplazamiento máximo sugerido.
var importanceMagnitude = map[int]float64{
	1: 0.02, 2: 0.04, 3: 0.07, 4: 0.12, 5: 0.18,
}

// KeywordMatcher es un ports.SignalMatcher por entidades y sentimiento.
// Sin fuzzy matching: solo substring sobre entidades conocidas, con gate
// de categoría entre noticia y mercado.
type KeywordMatcher struct {
	maxMarketsPerItem int
	log               *slog.Logger
}

// NewKeywordMatcher crea el matcher con el límite de mercados por noticia.
func NewKeywordMatcher(log *slog.Logger) *KeywordMatcher {
	if log == nil {
		log = slog.Default()
	}
	return &KeywordMatcher{maxMarketsPerItem: 5, log: log}
}

// Match empareja cada noticia con los mercados que comparten entidades.
// Noticias sin entidades reconocidas o sin sentimiento direccional no
// producen señales.
func (km *KeywordMatcher) Match(_ context.Context, news []domain.NewsItem, markets []domain.Market) ([]domain.Signal, error) {
	type marketMeta struct {
		m          domain.Market
		entities   map[string]bool
		category   string
		yesIsBear  bool
		hasSpecEnt bool
	}

	metas := make([]marketMeta, 0, len(markets))
	for _, m := range markets {
		q := strings.ToLower(m.Question)
		ents, cat, hasSpecific := extractEntities(q)
		if len(ents) == 0 {
			continue
		}
		metas = append(metas, marketMeta{
			m:          m,
			entities:   ents,
			category:   cat,
			yesIsBear:  containsAny(q, bearishQuestionWords),
			hasSpecEnt: hasSpecific,
		})
	}

	var signals []domain.Signal
	for _, item := range news {
		title := strings.ToLower(item.Title)
		ents, cat, _ := extractEntities(title)
		if len(ents) == 0 {
			continue
		}
		sentiment := scoreSentiment(title)
		if sentiment == 0 {
			continue
		}
		importance := scoreImportance(title, item.Source)
		breaking := containsAny(title, breakingMarkers)

		type candidate struct {
			meta  marketMeta
			score float64
		}
		var cands []candidate
		for _, meta := range metas {
			if cat != "" && meta.category != "" && cat != meta.category {
				continue
			}
			shared, sharedSpecific := overlap(ents, meta.entities)
			if shared == 0 || !sharedSpecific && !meta.hasSpecEnt {
				continue
			}
			score := 0.6 + 0.1*float64(shared)
			if sharedSpecific {
				score += 0.2
			}
			if score > 1 {
				score = 1
			}
			cands = append(cands, candidate{meta: meta, score: score})
		}

		sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
		if len(cands) > km.maxMarketsPerItem {
			cands = cands[:km.maxMarketsPerItem]
		}

		for _, c := range cands {
			direction := 1
			if sentiment < 0 {
				direction = -1
			}
			// en mercados bajistas una noticia negativa empuja YES al alza
			if c.meta.yesIsBear {
				direction = -direction
			}
			signals = append(signals, domain.Signal{
				MarketID:   c.meta.m.ConditionID,
				Source:     item.Source,
				Category:   signalCategory(item.Category, breaking),
				NewsTitle:  item.Title,
				Direction:  direction,
				Magnitude:  importanceMagnitude[importance],
				Importance: importance,
				Breaking:   breaking,
				MatchScore: c.score,
				Published:  publishedOr(item.Published, time.Now().UTC()),
			})
		}
	}

	km.log.Debug("matching complete", "news", len(news), "signals", len(signals))
	return signals, nil
}

// extractEntities devuelve las entidades presentes en el texto, la categoría
// dominante y si alguna entidad es específica.
func extractEntities(text string) (map[string]bool, string, bool) {
	found := map[string]bool{}
	catVotes := map[string]int{}
	catOrder := map[string]int{}
	hasSpecific := false
	for i, e := range entities {
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				found[e.name] = true
				catVotes[e.category]++
				if _, seen := catOrder[e.category]; !seen {
					catOrder[e.category] = i
				}
				if e.specific {
					hasSpecific = true
				}
				break
			}
		}
	}

	// empate de votos: gana la categoría de la entidad más temprana en la
	// tabla, para que el resultado sea determinista
	best, bestVotes := "", 0
	for cat, votes := range catVotes {
		if votes > bestVotes || (votes == bestVotes && best != "" && catOrder[cat] < catOrder[best]) {
			best, bestVotes = cat, votes
		}
	}
	return found, best, hasSpecific
}

var wordRe = regexp.MustCompile(`\w+`)

// scoreSentiment puntúa el titular en [-1, 1] con manejo de negación en las
// tres palabras anteriores.
func scoreSentiment(text string) float64 {
	words := wordRe.FindAllString(text, -1)
	score, total := 0.0, 0
	for i, w := range words {
		pos, neg := positiveWords[w], negativeWords[w]
		if !pos && !neg {
			continue
		}
		negated := false
		for j := max(0, i-3); j < i; j++ {
			if negationWords[words[j]] {
				negated = true
				break
			}
		}
		v := 1.0
		if neg {
			v = -1.0
		}
		if negated {
			v = -v
		}
		score += v
		total++
	}
	if total == 0 {
		return 0
	}
	s := score / float64(total)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return s
}

func scoreImportance(title, source string) int {
	base := sourceTier[source]
	if base == 0 {
		base = 1
	}
	kw := 1
	for level, keywords := range importanceKeywords {
		if containsAny(title, keywords) && level > kw {
			kw = level
		}
	}
	v := (base + kw) / 2
	if v < 1 {
		v = 1
	}
	if v > 5 {
		v = 5
	}
	return v
}

func signalCategory(feedCategory string, breaking bool) string {
	if breaking {
		return "breaking_news"
	}
	if feedCategory == "" {
		return "trending"
	}
	return feedCategory
}

func overlap(a, b map[string]bool) (int, bool) {
	shared, specific := 0, false
	for name := range a {
		if !b[name] {
			continue
		}
		shared++
		for _, e := range entities {
			if e.name == name && e.specific {
				specific = true
			}
		}
	}
	return shared, specific
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func publishedOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}
