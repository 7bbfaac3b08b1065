package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

// pnlStore implementa las partes de ports.Storage que usa el governor.
type pnlStore struct {
	realized  float64
	cooldowns map[string]time.Time
}

func newPnlStore() *pnlStore {
	return &pnlStore{cooldowns: map[string]time.Time{}}
}

func (s *pnlStore) UpsertPosition(context.Context, domain.Position) error { return nil }
func (s *pnlStore) GetPositions(context.Context, string, domain.PositionStatus) ([]domain.Position, error) {
	return nil, nil
}
func (s *pnlStore) InsertTrade(context.Context, domain.TradeRecord) error { return nil }
func (s *pnlStore) RealizedPnLSince(context.Context, string, time.Time) (float64, error) {
	return s.realized, nil
}
func (s *pnlStore) SaveDecision(context.Context, domain.EdgeDecision, time.Time) error { return nil }
func (s *pnlStore) SetCooldown(_ context.Context, key string, until time.Time) error {
	s.cooldowns[key] = until
	return nil
}
func (s *pnlStore) InCooldown(_ context.Context, key string, now time.Time) (bool, error) {
	until, ok := s.cooldowns[key]
	return ok && now.Before(until), nil
}
func (s *pnlStore) AddNotification(context.Context, domain.Notification) error { return nil }
func (s *pnlStore) PendingNotifications(context.Context) ([]domain.Notification, error) {
	return nil, nil
}
func (s *pnlStore) ConsumeNotifications(context.Context, []int64) error { return nil }
func (s *pnlStore) Close() error                                        { return nil }

func baselineStrategy() domain.StrategyConfig {
	s, _ := domain.StrategyByName("baseline")
	return s
}

func testDecision() domain.EdgeDecision {
	return domain.EdgeDecision{MarketID: "m1", Side: domain.SideYes, Admitted: true}
}

func TestGovernor_AllowsNormalEntry(t *testing.T) {
	g := NewGovernor(baselineStrategy(), 30, 4*time.Hour, newPnlStore(), nil)
	reason, err := g.Allow(context.Background(), testDecision(), 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RejectNone, reason)
}

func TestGovernor_DailyLossLimitHaltsEntries(t *testing.T) {
	store := newPnlStore()
	store.realized = -35 // límite 30
	g := NewGovernor(baselineStrategy(), 30, 4*time.Hour, store, nil)

	now := time.Now()
	reason, err := g.Allow(context.Background(), testDecision(), 0, now)
	require.NoError(t, err)
	assert.Equal(t, RejectDailyLossLimit, reason)

	// aunque el PnL se recupere, sigue bloqueado el resto del día UTC
	store.realized = 0
	reason, _ = g.Allow(context.Background(), testDecision(), 0, now.Add(time.Minute))
	assert.Equal(t, RejectDailyLossLimit, reason)

	// al día UTC siguiente vuelve a aceptar
	nextDay := now.UTC().Truncate(24 * time.Hour).Add(25 * time.Hour)
	reason, _ = g.Allow(context.Background(), testDecision(), 0, nextDay)
	assert.Equal(t, RejectNone, reason)
}

func TestGovernor_MaxOpenPositions(t *testing.T) {
	g := NewGovernor(baselineStrategy(), 30, 4*time.Hour, newPnlStore(), nil)
	reason, err := g.Allow(context.Background(), testDecision(), 8, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RejectMaxPositions, reason)
}

func TestGovernor_CooldownBlocksSameMarketSide(t *testing.T) {
	store := newPnlStore()
	g := NewGovernor(baselineStrategy(), 30, 4*time.Hour, store, nil)
	now := time.Now()

	require.NoError(t, g.MarkEntered(context.Background(), testDecision(), now))

	reason, err := g.Allow(context.Background(), testDecision(), 0, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, RejectCooldown, reason)

	// el otro lado del mismo mercado no está en cooldown
	other := testDecision()
	other.Side = domain.SideNo
	reason, _ = g.Allow(context.Background(), other, 0, now.Add(time.Hour))
	assert.Equal(t, RejectNone, reason)

	// pasada la ventana de 4h vuelve a aceptar
	reason, _ = g.Allow(context.Background(), testDecision(), 0, now.Add(5*time.Hour))
	assert.Equal(t, RejectNone, reason)
}

// --- Breaker ---

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, nil)
	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.True(t, b.Halted())
}

func TestBreaker_SuccessResetsCounterBelowThreshold(t *testing.T) {
	b := NewBreaker(3, nil)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.Failures())
	assert.False(t, b.RecordFailure())
	assert.False(t, b.Halted())
}

func TestBreaker_ResetClearsHalt(t *testing.T) {
	b := NewBreaker(1, nil)
	b.RecordFailure()
	assert.True(t, b.Halted())
	b.Reset()
	assert.False(t, b.Halted())
	assert.Equal(t, 0, b.Failures())
}
