package notify

import (
	"context"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
)

// Multi reparte cada notificación a varios notificadores en orden.
// Devuelve el primer error, pero sigue entregando al resto.
type Multi struct {
	targets []ports.Notifier
}

// NewMulti crea un notificador compuesto.
func NewMulti(targets ...ports.Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) NotifySignals(ctx context.Context, decisions []domain.EdgeDecision) error {
	var firstErr error
	for _, t := range m.targets {
		if err := t.NotifySignals(ctx, decisions); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) NotifyPositions(ctx context.Context, strategy string, positions []domain.Position) error {
	var firstErr error
	for _, t := range m.targets {
		if err := t.NotifyPositions(ctx, strategy, positions); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) NotifyLeaderboard(ctx context.Context, stats []domain.StrategyStats) error {
	var firstErr error
	for _, t := range m.targets {
		if err := t.NotifyLeaderboard(ctx, stats); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) NotifyEvent(ctx context.Context, n domain.Notification) error {
	var firstErr error
	for _, t := range m.targets {
		if err := t.NotifyEvent(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
