package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

func strat(kelly float64) domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:          "test",
		KellyFraction: kelly,
		MaxPositionPc: 0.50,
		MaxExposure:   1.0,
		MaxOpen:       10,
	}
}

func decision(prob, entry float64) domain.EdgeDecision {
	return domain.EdgeDecision{
		MarketID:    "m1",
		Side:        domain.SideYes,
		EntryPrice:  entry,
		Probability: prob,
		Admitted:    true,
	}
}

func TestKellyFraction_HalfIsExactlyHalfOfFull(t *testing.T) {
	s := New(0)
	full := s.KellyFraction(0.60, 0.50, strat(1.0))
	half := s.KellyFraction(0.60, 0.50, strat(0.5))
	assert.Equal(t, full/2, half)
	assert.Greater(t, full, 0.0)
}

func TestKellyFraction_CapAppliedBeforeScale(t *testing.T) {
	// f* = 0.20 pero MaxPositionPc = 0.10 → full = 0.10, half = 0.05
	cfg := strat(1.0)
	cfg.MaxPositionPc = 0.10
	s := New(0)
	assert.InDelta(t, 0.10, s.KellyFraction(0.60, 0.50, cfg), 0.0001)
	cfg.KellyFraction = 0.5
	assert.InDelta(t, 0.05, s.KellyFraction(0.60, 0.50, cfg), 0.0001)
}

func TestKellyFraction_NeverNegative(t *testing.T) {
	s := New(0)
	assert.Equal(t, 0.0, s.KellyFraction(0.40, 0.50, strat(1.0)))
}

func TestSize_Basic(t *testing.T) {
	s := New(1000)
	// f* = 0.20, kelly 0.5 → 0.10 × 200 = $20 → 40 shares a 0.50
	got, reason := s.Size(decision(0.60, 0.50), strat(0.5), 200, 0, 0)
	assert.Equal(t, RejectNone, reason)
	assert.Equal(t, 40.0, got.Shares)
	assert.Equal(t, 20.0, got.Cost)
}

func TestSize_ClampsToMaxOrderSize(t *testing.T) {
	s := New(15)
	got, reason := s.Size(decision(0.60, 0.50), strat(1.0), 10_000, 0, 0)
	assert.Equal(t, RejectNone, reason)
	assert.LessOrEqual(t, got.Cost, 15.0)
}

func TestSize_RejectsTooFewShares(t *testing.T) {
	s := New(1000)
	_, reason := s.Size(decision(0.60, 0.50), strat(0.5), 10, 0, 0)
	assert.Equal(t, RejectTooFewShares, reason)
}

func TestSize_RejectsAtMaxOpenPositions(t *testing.T) {
	cfg := strat(0.5)
	cfg.MaxOpen = 3
	s := New(1000)
	_, reason := s.Size(decision(0.60, 0.50), cfg, 200, 0, 3)
	assert.Equal(t, RejectMaxPositions, reason)
}

func TestSize_ExposureLimit(t *testing.T) {
	cfg := strat(1.0)
	cfg.MaxExposure = 0.50
	s := New(1000)
	// bankroll 200 → techo de exposición $100, ya hay $95 abiertos → hueco $5
	got, reason := s.Size(decision(0.60, 0.50), cfg, 200, 95, 0)
	assert.Equal(t, RejectNone, reason)
	assert.LessOrEqual(t, got.Cost, 5.0)
}

func TestSize_ExposureExhausted(t *testing.T) {
	cfg := strat(1.0)
	cfg.MaxExposure = 0.50
	s := New(1000)
	_, reason := s.Size(decision(0.60, 0.50), cfg, 200, 100, 0)
	assert.Equal(t, RejectTooFewShares, reason)
}

func TestSize_NoEdge(t *testing.T) {
	s := New(1000)
	_, reason := s.Size(decision(0.45, 0.50), strat(0.5), 200, 0, 0)
	assert.Equal(t, RejectNoEdge, reason)
}
