package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// Console implementa ports.Notifier escribiendo tablas a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifySignals imprime las decisiones de edge del ciclo.
func (c *Console) NotifySignals(_ context.Context, decisions []domain.EdgeDecision) error {
	now := time.Now().Format("15:04:05")
	if len(decisions) == 0 {
		fmt.Fprintf(c.out, "[%s] no tradeable signals this cycle\n", now)
		return nil
	}

	admitted := 0
	for _, d := range decisions {
		if d.Admitted {
			admitted++
		}
	}
	fmt.Fprintf(c.out, "\n[%s] %d signals — %d admitted\n", now, len(decisions), admitted)

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Price", "Est", "Conf", "Edge", "Rel", "Status")

	for _, d := range decisions {
		status := "OPEN"
		if !d.Admitted {
			status = string(d.Reason)
		}
		table.Append(
			truncate(d.Question, 38),
			string(d.Side),
			fmt.Sprintf("%.3f", d.EntryPrice),
			fmt.Sprintf("%.3f", d.Probability),
			fmt.Sprintf("%.2f", d.Confidence),
			fmt.Sprintf("%+.3f", d.Edge),
			string(d.Reliability),
			status,
		)
	}
	table.Render()
	return nil
}

// NotifyPositions imprime las posiciones abiertas de una estrategia.
func (c *Console) NotifyPositions(_ context.Context, strategy string, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s — %d open\n", strategy, len(positions))

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Entry", "Peak", "Target", "Stop", "Shares", "Cost", "Age")

	now := time.Now().UTC()
	for _, p := range positions {
		table.Append(
			truncate(p.Question, 34),
			string(p.Side),
			fmt.Sprintf("%.3f", p.EntryPrice),
			fmt.Sprintf("%.3f", p.PeakPrice),
			fmt.Sprintf("%.3f", p.Target),
			fmt.Sprintf("%.3f", p.StopPrice),
			fmt.Sprintf("%.0f", p.Shares),
			fmt.Sprintf("$%.2f", p.Cost),
			fmt.Sprintf("%.1fh", p.AgeHours(now)),
		)
	}
	table.Render()
	return nil
}

// NotifyLeaderboard imprime la clasificación del arena.
func (c *Console) NotifyLeaderboard(_ context.Context, stats []domain.StrategyStats) error {
	if len(stats) == 0 {
		return nil
	}

	fmt.Fprintf(c.out, "\n=== ARENA LEADERBOARD ===\n")

	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Open", "Invested", "Realized", "Unrealized", "Bankroll", "ROI", "Win rate")

	for _, s := range stats {
		name := s.Strategy
		if s.Live {
			name += " [LIVE]"
		}
		table.Append(
			name,
			fmt.Sprintf("%d", s.OpenPositions),
			fmt.Sprintf("$%.2f", s.Invested),
			fmt.Sprintf("%+.2f", s.RealizedPnL),
			fmt.Sprintf("%+.2f", s.UnrealizedPnL),
			fmt.Sprintf("$%.2f", s.Bankroll),
			fmt.Sprintf("%+.1f%%", s.ROI*100),
			winRateLabel(s),
		)
	}
	table.Render()
	return nil
}

// NotifyEvent imprime una notificación puntual.
func (c *Console) NotifyEvent(_ context.Context, n domain.Notification) error {
	ts := n.CreatedAt.Format("15:04:05")
	if n.Strategy != "" {
		fmt.Fprintf(c.out, "[%s] %s %s: %s\n", ts, n.Action, n.Strategy, n.Message)
		return nil
	}
	fmt.Fprintf(c.out, "[%s] %s: %s\n", ts, n.Action, n.Message)
	return nil
}

// --- helpers ---

func winRateLabel(s domain.StrategyStats) string {
	closed := s.Wins + s.Losses
	if closed == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%% (%d/%d)", s.WinRate*100, s.Wins, closed)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
