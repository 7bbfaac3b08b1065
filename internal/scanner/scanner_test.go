package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyclaw/internal/arena"
	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/ports"
	"github.com/alejandrodnm/polyclaw/internal/risk"
	"github.com/alejandrodnm/polyclaw/internal/signal"
)

// memStore es un ports.Storage en memoria para los tests del scanner.
type memStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	trades    []domain.TradeRecord
	notifs    []domain.Notification
	cooldowns map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		positions: map[string]domain.Position{},
		cooldowns: map[string]time.Time{},
	}
}

func (s *memStore) UpsertPosition(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return nil
}

func (s *memStore) GetPositions(_ context.Context, strategy string, status domain.PositionStatus) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.Strategy == strategy && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) InsertTrade(_ context.Context, t domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *memStore) RealizedPnLSince(_ context.Context, strategy string, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, t := range s.trades {
		if t.Strategy == strategy && t.Action != "OPEN" && !t.Timestamp.Before(since) {
			total += t.PnL
		}
	}
	return total, nil
}

func (s *memStore) SaveDecision(context.Context, domain.EdgeDecision, time.Time) error { return nil }

func (s *memStore) SetCooldown(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[key] = until
	return nil
}

func (s *memStore) InCooldown(_ context.Context, key string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.cooldowns[key]
	return ok && now.Before(until), nil
}

func (s *memStore) AddNotification(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = int64(len(s.notifs) + 1)
	s.notifs = append(s.notifs, n)
	return nil
}

func (s *memStore) PendingNotifications(context.Context) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifs {
		if !n.Consumed {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) ConsumeNotifications(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		for i := range s.notifs {
			if s.notifs[i].ID == id {
				s.notifs[i].Consumed = true
			}
		}
	}
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) actions(action domain.NotificationAction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifs {
		if n.Action == action {
			count++
		}
	}
	return count
}

// fakeSource es una fuente de noticias programable.
type fakeSource struct {
	name  string
	items []domain.NewsItem
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]domain.NewsItem, error) {
	return f.items, f.err
}

// fakeMatcher devuelve siempre las mismas señales.
type fakeMatcher struct {
	signals []domain.Signal
	err     error
	got     []domain.NewsItem
}

func (f *fakeMatcher) Match(_ context.Context, news []domain.NewsItem, _ []domain.Market) ([]domain.Signal, error) {
	f.got = news
	return f.signals, f.err
}

// fakeMarkets sirve un snapshot fijo de mercados.
type fakeMarkets struct {
	markets []domain.Market
	err     error
	calls   int
}

func (f *fakeMarkets) FetchActiveMarkets(context.Context) ([]domain.Market, error) {
	f.calls++
	return f.markets, f.err
}

// fakeNotifier acumula todo lo que el scanner le entrega.
type fakeNotifier struct {
	mu           sync.Mutex
	decisions    [][]domain.EdgeDecision
	events       []domain.Notification
	leaderboards int
	eventErr     error
}

func (f *fakeNotifier) NotifySignals(_ context.Context, decisions []domain.EdgeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, decisions)
	return nil
}

func (f *fakeNotifier) NotifyPositions(context.Context, string, []domain.Position) error { return nil }

func (f *fakeNotifier) NotifyLeaderboard(context.Context, []domain.StrategyStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaderboards++
	return nil
}

func (f *fakeNotifier) NotifyEvent(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, n)
	return nil
}

func (f *fakeNotifier) eventActions(action domain.NotificationAction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.events {
		if n.Action == action {
			count++
		}
	}
	return count
}

func testMarket(id string, yesPrice float64) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    "¿Sube BTC hoy?",
		EndDate:     time.Now().Add(48 * time.Hour),
		Tokens: [2]domain.Token{
			{Outcome: "Yes", Price: yesPrice, TokenID: id + "-yes"},
			{Outcome: "No", Price: 1 - yesPrice, TokenID: id + "-no"},
		},
	}
}

func breakingSignal(marketID string) domain.Signal {
	return domain.Signal{
		MarketID:   marketID,
		Source:     "Reuters",
		Category:   "breaking_news",
		NewsTitle:  "BTC rompe máximos históricos",
		Direction:  1,
		Magnitude:  0.15,
		Importance: 5,
		Breaking:   true,
		MatchScore: 1.0,
		Published:  time.Now(),
	}
}

type harness struct {
	scanner  *Scanner
	store    *memStore
	markets  *fakeMarkets
	notifier *fakeNotifier
	breaker  *risk.Breaker
}

func newHarness(t *testing.T, cfg Config, markets *fakeMarkets, matcher *fakeMatcher, sources []*fakeSource) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	notifier := &fakeNotifier{}
	breaker := risk.NewBreaker(10, log)

	ar := arena.New(arena.Options{
		Bankroll:       200,
		DailyLossLimit: 30,
		Cooldown:       4 * time.Hour,
		MaxOrderSize:   15,
	}, store, log)

	var srcs []ports.NewsProvider
	for _, s := range sources {
		srcs = append(srcs, s)
	}

	sc := New(cfg, srcs, matcher, markets, nil,
		signal.New(signal.DefaultConfig(), log), ar, store, notifier, breaker, log)

	return &harness{scanner: sc, store: store, markets: markets, notifier: notifier, breaker: breaker}
}

func defaultTestConfig() Config {
	cfg := DefaultConfig()
	cfg.SourceTimeout = time.Second
	cfg.Workers = 2
	return cfg
}

func TestScanner_CycleProducesDecisions(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	matcher := &fakeMatcher{signals: []domain.Signal{breakingSignal("m1")}}
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{{Source: "Reuters", Title: "BTC", Published: time.Now()}}}

	h := newHarness(t, defaultTestConfig(), markets, matcher, []*fakeSource{src})
	require.NoError(t, h.scanner.RunOnce(ctx))

	require.Len(t, h.notifier.decisions, 1)
	assert.Len(t, h.notifier.decisions[0], 1, "una candidata produce una decisión de referencia")
	assert.Equal(t, 1, h.notifier.leaderboards)

	h.store.mu.Lock()
	_, ok := h.store.cooldowns["alert::m1::UP"]
	h.store.mu.Unlock()
	assert.True(t, ok, "toda candidata procesada entra en cooldown de alerta")
}

func TestScanner_SourceFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	matcher := &fakeMatcher{signals: []domain.Signal{breakingSignal("m1")}}
	good := &fakeSource{name: "good", items: []domain.NewsItem{{Source: "Reuters", Title: "BTC", Published: time.Now()}}}
	bad := &fakeSource{name: "bad", err: errors.New("feed caído")}

	h := newHarness(t, defaultTestConfig(), markets, matcher, []*fakeSource{good, bad})
	require.NoError(t, h.scanner.RunOnce(ctx))

	assert.Len(t, matcher.got, 1, "solo llegan las noticias de la fuente sana")
	require.Len(t, h.notifier.decisions, 1)
	assert.NotEmpty(t, h.notifier.decisions[0])
}

func TestScanner_MarketFetchFailureFailsCycle(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{err: errors.New("gamma no responde")}
	h := newHarness(t, defaultTestConfig(), markets, &fakeMatcher{}, nil)

	err := h.scanner.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch markets")
}

func TestScanner_CooldownSuppressesRepeatAlerts(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	matcher := &fakeMatcher{signals: []domain.Signal{breakingSignal("m1")}}
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{{Source: "Reuters", Title: "BTC", Published: time.Now()}}}

	h := newHarness(t, defaultTestConfig(), markets, matcher, []*fakeSource{src})

	require.NoError(t, h.scanner.RunOnce(ctx))
	require.Len(t, h.notifier.decisions, 1)
	require.Len(t, h.notifier.decisions[0], 1)

	// misma noticia en el siguiente ciclo: cooldown activo
	require.NoError(t, h.scanner.RunOnce(ctx))
	require.Len(t, h.notifier.decisions, 2)
	assert.Empty(t, h.notifier.decisions[1], "la repetición no genera nueva alerta")
	assert.Equal(t, 1, h.store.actions(domain.ActionSignalFiltered))
}

func TestScanner_AlertBudgetCapsFreshAlerts(t *testing.T) {
	ctx := context.Background()

	var mkts []domain.Market
	var sigs []domain.Signal
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		mkts = append(mkts, testMarket(id, 0.40))
		sigs = append(sigs, breakingSignal(id))
	}
	markets := &fakeMarkets{markets: mkts}
	matcher := &fakeMatcher{signals: sigs}
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{{Source: "Reuters", Title: "BTC", Published: time.Now()}}}

	cfg := defaultTestConfig()
	cfg.MaxAlertsPerHour = 2
	h := newHarness(t, cfg, markets, matcher, []*fakeSource{src})

	require.NoError(t, h.scanner.RunOnce(ctx))
	require.Len(t, h.notifier.decisions, 1)
	assert.Len(t, h.notifier.decisions[0], 2, "el presupuesto recorta a las dos más fuertes")

	h.store.mu.Lock()
	alertCooldowns := 0
	for key := range h.store.cooldowns {
		if strings.HasPrefix(key, "alert::") {
			alertCooldowns++
		}
	}
	h.store.mu.Unlock()
	assert.Equal(t, 2, alertCooldowns, "las recortadas no consumen cooldown")
}

func TestScanner_PendingNotificationsFlushedOnce(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	h := newHarness(t, defaultTestConfig(), markets, &fakeMatcher{}, nil)

	require.NoError(t, h.store.AddNotification(ctx, domain.Notification{
		Action:    domain.ActionRedeem,
		Message:   "mercado resuelto",
		CreatedAt: time.Now(),
	}))

	require.NoError(t, h.scanner.RunOnce(ctx))
	assert.Equal(t, 1, h.notifier.eventActions(domain.ActionRedeem))

	// el siguiente ciclo no la vuelve a entregar
	require.NoError(t, h.scanner.RunOnce(ctx))
	assert.Equal(t, 1, h.notifier.eventActions(domain.ActionRedeem))
}

func TestScanner_FailedDeliveryStaysPending(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	h := newHarness(t, defaultTestConfig(), markets, &fakeMatcher{}, nil)
	h.notifier.eventErr = errors.New("webhook caído")

	require.NoError(t, h.store.AddNotification(ctx, domain.Notification{
		Action:    domain.ActionRedeem,
		Message:   "mercado resuelto",
		CreatedAt: time.Now(),
	}))

	require.NoError(t, h.scanner.RunOnce(ctx))

	// sin consumir: queda pendiente para el siguiente ciclo
	pending, err := h.store.PendingNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	h.notifier.eventErr = nil
	require.NoError(t, h.scanner.RunOnce(ctx))
	assert.Equal(t, 1, h.notifier.eventActions(domain.ActionRedeem))
}

func TestScanner_BreakerTripsAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	notifier := &fakeNotifier{}
	breaker := risk.NewBreaker(1, log)
	markets := &fakeMarkets{err: errors.New("gamma no responde")}

	ar := arena.New(arena.Options{Bankroll: 200, DailyLossLimit: 30, Cooldown: 4 * time.Hour, MaxOrderSize: 15}, store, log)

	cfg := defaultTestConfig()
	cfg.ScanInterval = 10 * time.Millisecond
	sc := New(cfg, nil, &fakeMatcher{}, markets, nil,
		signal.New(signal.DefaultConfig(), log), ar, store, notifier, breaker, log)

	err := sc.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.True(t, breaker.Halted())
	assert.Equal(t, 1, notifier.eventActions(domain.ActionHalt), "el halt se notifica antes de parar")
}

func TestScanner_OnceModeReturnsFirstCycleError(t *testing.T) {
	ctx := context.Background()
	markets := &fakeMarkets{err: errors.New("gamma no responde")}
	cfg := defaultTestConfig()
	cfg.Once = true
	h := newHarness(t, cfg, markets, &fakeMatcher{}, nil)

	require.Error(t, h.scanner.Run(ctx))
	assert.False(t, h.breaker.Halted(), "en modo once el breaker no acumula")
}

func TestScanner_RunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	markets := &fakeMarkets{markets: []domain.Market{testMarket("m1", 0.40)}}
	cfg := defaultTestConfig()
	cfg.ScanInterval = 5 * time.Millisecond
	h := newHarness(t, cfg, markets, &fakeMatcher{}, nil)

	done := make(chan error, 1)
	go func() { done <- h.scanner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("el scanner no paró tras cancelar el contexto")
	}

	assert.GreaterOrEqual(t, markets.calls, 1)
}

func TestGroupSignals(t *testing.T) {
	grouped := groupSignals([]domain.Signal{
		breakingSignal("m1"),
		breakingSignal("m2"),
		breakingSignal("m1"),
	})
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["m1"], 2)
	assert.Len(t, grouped["m2"], 1)
}
