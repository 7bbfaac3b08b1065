package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyclaw/internal/arena"
	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/risk"
	"github.com/alejandrodnm/polyclaw/internal/signal"
)

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval     time.Duration
	SourceTimeout    time.Duration
	Workers          int
	MaxAlertsPerHour int
	AlertCooldown    time.Duration
	Once             bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval:     5 * time.Minute,
		SourceTimeout:    20 * time.Second,
		Workers:          8,
		MaxAlertsPerHour: 5,
		AlertCooldown:    4 * time.Hour,
	}
}

// Scanner es el orquestador principal: noticias → señales → arena.
type Scanner struct {
	cfg      Config
	sources  []ports.NewsProvider
	matcher  ports.SignalMatcher
	markets  ports.MarketProvider
	llm      ports.LLMAnalyzer // opcional, puede ser nil
	agg      *signal.Aggregator
	arena    *arena.Arena
	store    ports.Storage
	notifier ports.Notifier
	breaker  *risk.Breaker
	log      *slog.Logger
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(
	cfg Config,
	sources []ports.NewsProvider,
	matcher ports.SignalMatcher,
	markets ports.MarketProvider,
	llm ports.LLMAnalyzer,
	agg *signal.Aggregator,
	ar *arena.Arena,
	store ports.Storage,
	notifier ports.Notifier,
	breaker *risk.Breaker,
	log *slog.Logger,
) *Scanner {
	return &Scanner{
		cfg:      cfg,
		sources:  sources,
		matcher:  matcher,
		markets:  markets,
		llm:      llm,
		agg:      agg,
		arena:    ar,
		store:    store,
		notifier: notifier,
		breaker:  breaker,
		log:      log,
	}
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele o el
// circuit breaker pare el pipeline. La cancelación solo se honra entre
// ciclos: un ciclo en vuelo siempre termina.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"sources", len(s.sources),
		"once", s.cfg.Once,
	)
	s.breaker.Reset()

	if err := s.runCycle(ctx); err != nil {
		s.log.Error("scan cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
		if s.recordFailure(ctx, err) {
			return fmt.Errorf("scanner.Run: circuit breaker tripped: %w", err)
		}
	}

	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.log.Error("scan cycle failed", "err", err)
				if s.recordFailure(ctx, err) {
					return fmt.Errorf("scanner.Run: circuit breaker tripped: %w", err)
				}
			}
		}
	}
}

// recordFailure registra un fallo de ciclo en el breaker. Devuelve true si
// el breaker acaba de dispararse; en ese caso el pipeline se para y queda
// esperando un reinicio externo.
func (s *Scanner) recordFailure(ctx context.Context, err error) bool {
	if !s.breaker.RecordFailure() {
		return false
	}
	n := domain.Notification{
		Action:    domain.ActionHalt,
		Message:   fmt.Sprintf("pipeline halted after %d consecutive failures: %v", s.breaker.Failures(), err),
		CreatedAt: time.Now().UTC(),
	}
	if addErr := s.store.AddNotification(ctx, n); addErr != nil {
		s.log.Warn("could not record halt notification", "err", addErr)
	}
	s.flushNotifications(ctx)
	return true
}

// runCycle ejecuta un ciclo completo: fetch, scoring, arena y notificaciones.
func (s *Scanner) runCycle(ctx context.Context) error {
	start := time.Now()
	now := start.UTC()

	markets, err := s.markets.FetchActiveMarkets(ctx)
	if err != nil {
		return fmt.Errorf("scanner.runCycle: fetch markets: %w", err)
	}
	byID := marketIndex(markets)

	news := s.fetchNews(ctx)

	var signals []domain.Signal
	if len(news) > 0 {
		signals, err = s.matcher.Match(ctx, news, markets)
		if err != nil {
			s.log.Warn("matcher failed, continuing without rule signals", "err", err)
			signals = nil
		}
	}

	estimates := s.fetchLLM(ctx, news, markets)

	scored := scoreConcurrent(s.agg, markets, groupSignals(signals), estimates, s.cfg.Workers, s.log)

	decisions := s.processAlerts(ctx, scored, byID, now)

	closed, err := s.arena.Monitor(ctx, byID, now)
	if err != nil {
		s.log.Warn("monitor pass had errors", "err", err)
	}

	s.present(ctx, decisions, byID)
	s.flushNotifications(ctx)

	s.breaker.RecordSuccess()
	s.log.Info("scan cycle complete",
		"markets", len(markets),
		"news", len(news),
		"signals", len(signals),
		"scored", len(scored),
		"decisions", len(decisions),
		"closed", closed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// RunOnce ejecuta exactamente un ciclo y devuelve las decisiones del ciclo.
func (s *Scanner) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

// fetchNews consulta todas las fuentes en paralelo con timeout individual.
// Una fuente caída aporta cero noticias, nunca tumba el ciclo.
func (s *Scanner) fetchNews(ctx context.Context) []domain.NewsItem {
	var mu sync.Mutex
	var all []domain.NewsItem

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, s.cfg.SourceTimeout)
			defer cancel()

			items, err := src.Fetch(sctx)
			if err != nil {
				s.log.Warn("news source failed", "source", src.Name(), "err", err)
				return nil
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return all
}

// fetchLLM consulta el analizador LLM si está configurado. Cualquier fallo
// degrada a rule-based.
func (s *Scanner) fetchLLM(ctx context.Context, news []domain.NewsItem, markets []domain.Market) map[string]domain.LLMEstimate {
	if s.llm == nil || len(news) == 0 {
		return nil
	}

	estimates, err := s.llm.Analyze(ctx, news, markets)
	if err != nil {
		s.log.Warn("llm analysis failed, rule-based only", "err", err)
		return nil
	}

	byMarket := make(map[string]domain.LLMEstimate, len(estimates))
	for _, e := range estimates {
		// Si el LLM emite varias señales para el mismo mercado, gana la de
		// mayor confianza.
		if prev, ok := byMarket[e.MarketID]; !ok || e.Confidence > prev.Confidence {
			byMarket[e.MarketID] = e
		}
	}
	return byMarket
}

// processAlerts aplica el presupuesto de alertas y el cooldown de mercado,
// y pasa las candidatas supervivientes por el arena. Devuelve las
// decisiones de referencia del ciclo.
func (s *Scanner) processAlerts(ctx context.Context, scored []domain.ScoredSignal, byID map[string]domain.Market, now time.Time) []domain.EdgeDecision {
	// Mayor desplazamiento estimado primero: si hay que recortar por
	// presupuesto, sobreviven las señales más fuertes.
	sort.Slice(scored, func(i, j int) bool {
		return estShift(scored[i], byID) > estShift(scored[j], byID)
	})

	var decisions []domain.EdgeDecision
	fresh := 0

	for _, sc := range scored {
		m, ok := byID[sc.MarketID]
		if !ok {
			continue
		}

		key := alertKey(sc.MarketID, sc.Direction)
		inCooldown, err := s.store.InCooldown(ctx, key, now)
		if err != nil {
			s.log.Warn("cooldown check failed", "market", sc.MarketID, "err", err)
		}
		if inCooldown {
			s.log.Debug("signal in cooldown", "market", sc.MarketID)
			s.recordFiltered(ctx, sc, m, now, "market+direction alerted recently")
			continue
		}

		if fresh >= s.cfg.MaxAlertsPerHour {
			s.log.Debug("alert budget exhausted", "market", sc.MarketID)
			continue
		}
		fresh++

		if err := s.store.SetCooldown(ctx, key, now.Add(s.cfg.AlertCooldown)); err != nil {
			s.log.Warn("could not set alert cooldown", "market", sc.MarketID, "err", err)
		}

		dec, err := s.arena.Process(ctx, sc, m, now)
		if err != nil {
			s.log.Warn("arena process failed", "market", sc.MarketID, "err", err)
			continue
		}
		decisions = append(decisions, dec)
	}

	return decisions
}

// recordFiltered deja constancia de una señal descartada por cooldown.
func (s *Scanner) recordFiltered(ctx context.Context, sc domain.ScoredSignal, m domain.Market, now time.Time, why string) {
	n := domain.Notification{
		Action:    domain.ActionSignalFiltered,
		MarketID:  sc.MarketID,
		Message:   fmt.Sprintf("%s: %s", domain.TruncateQuestion(m.Question, m.ConditionID, 60), why),
		CreatedAt: now,
	}
	if err := s.store.AddNotification(ctx, n); err != nil {
		s.log.Warn("could not record filtered signal", "err", err)
	}
}

// present imprime las tablas del ciclo: decisiones, posiciones live y leaderboard.
func (s *Scanner) present(ctx context.Context, decisions []domain.EdgeDecision, byID map[string]domain.Market) {
	if err := s.notifier.NotifySignals(ctx, decisions); err != nil {
		s.log.Warn("notifier error", "err", err)
	}

	for _, r := range s.arena.Runners() {
		if !r.IsLive() {
			continue
		}
		if err := s.notifier.NotifyPositions(ctx, r.Name(), r.Ledger().OpenPositions()); err != nil {
			s.log.Warn("notifier error", "err", err)
		}
	}

	if err := s.notifier.NotifyLeaderboard(ctx, s.arena.Leaderboard(ctx, byID)); err != nil {
		s.log.Warn("notifier error", "err", err)
	}
}

// flushNotifications entrega las notificaciones pendientes y las marca
// como consumidas solo si la entrega no falló.
func (s *Scanner) flushNotifications(ctx context.Context) {
	pending, err := s.store.PendingNotifications(ctx)
	if err != nil {
		s.log.Warn("could not read pending notifications", "err", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	ids := make([]int64, 0, len(pending))
	for _, n := range pending {
		if err := s.notifier.NotifyEvent(ctx, n); err != nil {
			s.log.Warn("notification delivery failed", "id", n.ID, "err", err)
			continue
		}
		ids = append(ids, n.ID)
	}

	if err := s.store.ConsumeNotifications(ctx, ids); err != nil {
		s.log.Warn("could not consume notifications", "err", err)
	}
}

// --- helpers ---

func marketIndex(markets []domain.Market) map[string]domain.Market {
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ConditionID] = m
	}
	return byID
}

// groupSignals agrupa las señales del matcher por mercado.
func groupSignals(signals []domain.Signal) map[string][]domain.Signal {
	grouped := make(map[string][]domain.Signal)
	for _, sig := range signals {
		grouped[sig.MarketID] = append(grouped[sig.MarketID], sig)
	}
	return grouped
}

// estShift aproxima la fuerza de una señal como distancia al precio actual.
func estShift(sc domain.ScoredSignal, byID map[string]domain.Market) float64 {
	m, ok := byID[sc.MarketID]
	if !ok {
		return 0
	}
	d := sc.Probability - m.YesPrice()
	if d < 0 {
		return -d
	}
	return d
}

// alertKey construye la clave de cooldown a nivel de scanner.
// Es independiente del cooldown por estrategia del governor.
func alertKey(marketID string, direction int) string {
	if direction < 0 {
		return "alert::" + marketID + "::DOWN"
	}
	return "alert::" + marketID + "::UP"
}
