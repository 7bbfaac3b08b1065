package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Storage persiste posiciones, trades, señales y notificaciones.
type Storage interface {
	// UpsertPosition inserta o actualiza una posición por su id.
	UpsertPosition(ctx context.Context, p domain.Position) error

	// GetPositions devuelve las posiciones de una estrategia, opcionalmente
	// filtradas por estado. status vacío devuelve todas.
	GetPositions(ctx context.Context, strategy string, status domain.PositionStatus) ([]domain.Position, error)

	// InsertTrade añade una entrada inmutable al registro de trades.
	InsertTrade(ctx context.Context, t domain.TradeRecord) error

	// RealizedPnLSince suma el PnL realizado de una estrategia desde el
	// instante dado. Lo usa el governor para el límite de pérdida diaria.
	RealizedPnLSince(ctx context.Context, strategy string, since time.Time) (float64, error)

	// SaveDecision registra una decisión de edge (admitida o filtrada)
	// para calibración posterior.
	SaveDecision(ctx context.Context, d domain.EdgeDecision, at time.Time) error

	// SetCooldown marca un mercado+lado como alertado.
	SetCooldown(ctx context.Context, key string, until time.Time) error

	// InCooldown devuelve si el mercado+lado sigue en ventana de cooldown.
	InCooldown(ctx context.Context, key string, now time.Time) (bool, error)

	// AddNotification añade un evento al registro. Solo el flag Consumed
	// se muta después.
	AddNotification(ctx context.Context, n domain.Notification) error

	// PendingNotifications devuelve las notificaciones no consumidas.
	PendingNotifications(ctx context.Context) ([]domain.Notification, error)

	// ConsumeNotifications marca las notificaciones dadas como entregadas.
	ConsumeNotifications(ctx context.Context, ids []int64) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
