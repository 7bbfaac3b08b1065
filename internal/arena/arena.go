package arena

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/edge"
	"github.com/alejandrodnm/polyclaw/internal/ledger"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/risk"
	"github.com/alejandrodnm/polyclaw/internal/sizing"
)

// Options configura la construcción del arena.
type Options struct {
	Strategies     []domain.StrategyConfig
	Bankroll       float64 // bankroll paper inicial por estrategia
	DailyLossLimit float64
	Cooldown       time.Duration
	MaxOrderSize   float64
	FeeRate        float64
	SpreadCost     float64

	// LiveStrategy es la única estrategia replicada en vivo. Vacío o sin
	// executor deja todo en paper.
	LiveStrategy string
	LiveExecutor ports.OrderExecutor
}

// Arena mantiene un runner por estrategia. Todos consumen el mismo stream
// de señales; ninguno comparte estado con otro.
type Arena struct {
	runners []*Runner
	log     *slog.Logger
}

// New construye el arena con un runner aislado por estrategia: cada uno
// con su propio sizer, governor y ledger.
func New(opts Options, store ports.Storage, log *slog.Logger) *Arena {
	if log == nil {
		log = slog.Default()
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = domain.DefaultStrategies()
	}

	a := &Arena{log: log}
	for _, strat := range strategies {
		sizer := sizing.New(opts.MaxOrderSize)
		calc := edge.NewCalculator(opts.FeeRate, opts.SpreadCost, sizer, log)
		gov := risk.NewGovernor(strat, opts.DailyLossLimit, opts.Cooldown, store, log)
		led := ledger.New(strat, opts.Bankroll, store, log)
		r := NewRunner(strat, opts.Bankroll, calc, sizer, gov, led, store, log)
		if opts.LiveExecutor != nil && strat.Name == opts.LiveStrategy {
			r = r.WithLiveMirror(opts.LiveExecutor, opts.MaxOrderSize)
		}
		a.runners = append(a.runners, r)
	}
	return a
}

// Restore carga las posiciones abiertas de todos los runners.
func (a *Arena) Restore(ctx context.Context) error {
	for _, r := range a.runners {
		if err := r.Ledger().Restore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Runners devuelve los runners del arena.
func (a *Arena) Runners() []*Runner { return a.runners }

// Process pasa una señal puntuada por todas las estrategias. Devuelve la
// decisión de la estrategia live (o la primera) para notificaciones.
func (a *Arena) Process(ctx context.Context, scored domain.ScoredSignal, m domain.Market, now time.Time) (domain.EdgeDecision, error) {
	var ref domain.EdgeDecision
	for i, r := range a.runners {
		dec, err := r.Process(ctx, scored, m, now)
		if err != nil {
			return ref, err
		}
		if i == 0 || r.IsLive() {
			ref = dec
		}
	}
	return ref, nil
}

// Monitor ejecuta la pasada de salidas de todos los runners contra el
// mismo snapshot de mercados.
func (a *Arena) Monitor(ctx context.Context, markets map[string]domain.Market, now time.Time) (int, error) {
	closed := 0
	for _, r := range a.runners {
		closures, err := r.MonitorTick(ctx, markets, now)
		if err != nil {
			return closed, err
		}
		closed += len(closures)
	}
	return closed, nil
}

// Leaderboard devuelve las métricas de todas las estrategias ordenadas
// por PnL realizado descendente.
func (a *Arena) Leaderboard(ctx context.Context, markets map[string]domain.Market) []domain.StrategyStats {
	stats := make([]domain.StrategyStats, 0, len(a.runners))
	for _, r := range a.runners {
		stats = append(stats, r.Stats(ctx, markets))
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].RealizedPnL > stats[j].RealizedPnL
	})
	return stats
}
