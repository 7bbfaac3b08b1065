package ports

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// NewsProvider es una fuente de noticias ya parseadas. Cada fuente puede
// fallar de forma independiente: un fallo cuenta como contribución vacía
// para ese ciclo, nunca tumba el ciclo entero.
type NewsProvider interface {
	// Name identifica la fuente en logs y señales.
	Name() string

	// Fetch devuelve las noticias recientes de la fuente.
	Fetch(ctx context.Context) ([]domain.NewsItem, error)
}

// SignalMatcher empareja noticias con mercados concretos y les asigna
// dirección, importancia y calidad de match. La taxonomía de keywords y
// el scoring de similitud viven fuera del core.
type SignalMatcher interface {
	Match(ctx context.Context, news []domain.NewsItem, markets []domain.Market) ([]domain.Signal, error)
}
