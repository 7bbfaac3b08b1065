package ports

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// NotifySignals muestra las decisiones de edge admitidas del ciclo.
	// En la implementación de consola, imprime una tabla formateada.
	NotifySignals(ctx context.Context, decisions []domain.EdgeDecision) error

	// NotifyPositions muestra las posiciones abiertas de una estrategia.
	NotifyPositions(ctx context.Context, strategy string, positions []domain.Position) error

	// NotifyLeaderboard muestra la clasificación del arena.
	NotifyLeaderboard(ctx context.Context, stats []domain.StrategyStats) error

	// NotifyEvent publica una notificación puntual (cierre, redención, halt).
	NotifyEvent(ctx context.Context, n domain.Notification) error
}
