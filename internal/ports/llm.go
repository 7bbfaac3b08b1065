package ports

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// LLMAnalyzer produce estimaciones de probabilidad a partir de noticias.
// Es opcional: si falla o no está configurado, el pipeline sigue con las
// estimaciones rule-based.
type LLMAnalyzer interface {
	Analyze(ctx context.Context, news []domain.NewsItem, markets []domain.Market) ([]domain.LLMEstimate, error)
}
