package notify

// webhook.go — notificaciones push a un webhook de Discord.
//
// Es best-effort: un webhook caído nunca bloquea ni falla el ciclo.
// Solo se empujan eventos puntuales y el leaderboard; las tablas por
// ciclo quedan en consola.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Webhook implementa ports.Notifier contra un webhook de Discord.
type Webhook struct {
	client *resty.Client
	url    string
	log    *slog.Logger
}

// NewWebhook crea un notificador webhook.
func NewWebhook(url string, log *slog.Logger) *Webhook {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(1)
	return &Webhook{client: client, url: url, log: log}
}

// NotifySignals empuja un resumen compacto de las señales admitidas.
func (w *Webhook) NotifySignals(ctx context.Context, decisions []domain.EdgeDecision) error {
	var lines []string
	for _, d := range decisions {
		if !d.Admitted {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s** %s @ %.3f (edge %+.3f, conf %.2f)",
			d.Side, truncate(d.Question, 60), d.EntryPrice, d.Edge, d.Confidence))
	}
	if len(lines) == 0 {
		return nil
	}
	w.send(ctx, "📡 Signals\n"+strings.Join(lines, "\n"))
	return nil
}

// NotifyPositions no empuja nada: el detalle de posiciones es solo consola.
func (w *Webhook) NotifyPositions(context.Context, string, []domain.Position) error {
	return nil
}

// NotifyLeaderboard empuja la clasificación resumida.
func (w *Webhook) NotifyLeaderboard(ctx context.Context, stats []domain.StrategyStats) error {
	if len(stats) == 0 {
		return nil
	}
	var lines []string
	for i, s := range stats {
		name := s.Strategy
		if s.Live {
			name += " 🔴"
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %+.2f realized, $%.2f bankroll",
			i+1, name, s.RealizedPnL, s.Bankroll))
	}
	w.send(ctx, "🏆 Arena\n"+strings.Join(lines, "\n"))
	return nil
}

// NotifyEvent empuja una notificación puntual.
func (w *Webhook) NotifyEvent(ctx context.Context, n domain.Notification) error {
	prefix := map[domain.NotificationAction]string{
		domain.ActionPositionOpen:  "🟢",
		domain.ActionPositionClose: "🔵",
		domain.ActionRedeem:        "💰",
		domain.ActionOrderFailed:   "⚠️",
		domain.ActionHalt:          "🛑",
	}[n.Action]
	if prefix == "" {
		prefix = "ℹ️"
	}
	w.send(ctx, fmt.Sprintf("%s %s %s", prefix, n.Action, n.Message))
	return nil
}

// send hace el POST al webhook. Los fallos se loguean y se descartan.
func (w *Webhook) send(ctx context.Context, content string) {
	// Discord corta mensajes por encima de 2000 caracteres
	if len(content) > 1900 {
		content = content[:1900] + "…"
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"content": content}).
		Post(w.url)
	if err != nil {
		w.log.Warn("webhook delivery failed", "err", err)
		return
	}
	if resp.IsError() {
		w.log.Warn("webhook rejected", "status", resp.StatusCode())
	}
}
