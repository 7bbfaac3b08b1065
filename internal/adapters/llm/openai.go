package llm

// openai.go — analizador de noticias contra un endpoint compatible con la
// API de chat de OpenAI. Es completamente opcional: cualquier fallo degrada
// el pipeline a las estimaciones rule-based.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

const (
	maxNewsInPrompt    = 15
	maxMarketsInPrompt = 20
)

// Analyzer implementa ports.LLMAnalyzer contra un endpoint chat/completions.
type Analyzer struct {
	client *resty.Client
	model  string
	log    *slog.Logger
}

// New crea un Analyzer. baseURL apunta a la raíz de la API (p.ej.
// https://api.openai.com/v1).
func New(baseURL, apiKey, model string, log *slog.Logger) *Analyzer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(45 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &Analyzer{client: client, model: model, log: log}
}

// --- request/response DTOs ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// llmSignal es una señal individual dentro del JSON que devuelve el modelo.
type llmSignal struct {
	MarketIndex int     `json:"market_index"`
	MarketID    string  `json:"market_id"`
	Probability float64 `json:"estimated_probability"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	NewsTitle   string  `json:"news_title"`
}

type llmPayload struct {
	Signals []llmSignal `json:"signals"`
}

// Analyze envía las noticias y mercados al modelo y devuelve las
// estimaciones que conectan ambos.
func (a *Analyzer) Analyze(ctx context.Context, news []domain.NewsItem, markets []domain.Market) ([]domain.LLMEstimate, error) {
	if len(news) == 0 || len(markets) == 0 {
		return nil, nil
	}

	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(news, markets)},
		},
		Temperature: 0.2,
	}

	var out chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("llm.Analyze: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("llm.Analyze: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != nil {
		return nil, fmt.Errorf("llm.Analyze: api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("llm.Analyze: empty response")
	}

	payload, err := extractJSON(out.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("llm.Analyze: %w", err)
	}

	estimates := mapSignals(payload.Signals, markets)
	a.log.Debug("llm analysis complete", "signals", len(payload.Signals), "usable", len(estimates))
	return estimates, nil
}

// buildPrompt arma el prompt con las noticias y mercados numerados.
func buildPrompt(news []domain.NewsItem, markets []domain.Market) string {
	var b strings.Builder

	b.WriteString("You are an expert prediction market analyst. Analyze how breaking news affects market prices.\n\nCURRENT NEWS:\n")
	for i, n := range news {
		if i >= maxNewsInPrompt {
			break
		}
		fmt.Fprintf(&b, "  [%d] %s (source: %s)\n", i, n.Title, n.Source)
	}

	b.WriteString("\nACTIVE MARKETS:\n")
	for i, m := range markets {
		if i >= maxMarketsInPrompt {
			break
		}
		fmt.Fprintf(&b, "  [%d] %s | id: %s | YES: %.1f%% | vol: $%.0f\n",
			i, m.Question, m.ConditionID, m.YesPrice()*100, m.Volume)
	}

	b.WriteString(`
For each news item that MEANINGFULLY affects any market, output a signal.
Rules:
- Only flag STRONG, DIRECT connections (not vague or tangential)
- estimated_probability is what YES should be worth (0.01-0.99)
- confidence is how sure you are (0.5-1.0)
- Skip news that doesn't clearly affect any listed market

Answer with JSON only:
{"signals": [{"market_index": 5, "market_id": "0x...", "estimated_probability": 0.75, "confidence": 0.8, "reasoning": "...", "news_title": "..."}]}
If no signals: {"signals": []}`)

	return b.String()
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON saca el payload JSON del texto del modelo, tolerando que
// venga envuelto en un bloque de código.
func extractJSON(text string) (llmPayload, error) {
	candidate := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		// Último intento: desde la primera llave hasta la última
		start := strings.Index(candidate, "{")
		end := strings.LastIndex(candidate, "}")
		if start < 0 || end <= start {
			return llmPayload{}, fmt.Errorf("parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &payload); err != nil {
			return llmPayload{}, fmt.Errorf("parse response: %w", err)
		}
	}
	return payload, nil
}

// mapSignals convierte las señales del modelo a domain.LLMEstimate.
// Prefiere market_id sobre el índice: el índice deriva si el snapshot de
// mercados cambió entre prompt y respuesta.
func mapSignals(signals []llmSignal, markets []domain.Market) []domain.LLMEstimate {
	byID := make(map[string]bool, len(markets))
	for _, m := range markets {
		byID[m.ConditionID] = true
	}

	var estimates []domain.LLMEstimate
	for _, s := range signals {
		marketID := s.MarketID
		if !byID[marketID] {
			if s.MarketIndex < 0 || s.MarketIndex >= len(markets) {
				continue
			}
			marketID = markets[s.MarketIndex].ConditionID
		}

		estimates = append(estimates, domain.LLMEstimate{
			MarketID:    marketID,
			Probability: domain.ClampProb(s.Probability),
			Confidence:  domain.Clamp(s.Confidence, 0.5, 1.0),
			Reasoning:   s.Reasoning,
			NewsTitle:   s.NewsTitle,
		})
	}
	return estimates
}
