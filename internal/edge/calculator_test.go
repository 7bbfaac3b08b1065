package edge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/sizing"
)

func zeroFeeCalc() *Calculator {
	return NewCalculator(0, 0, sizing.New(100), nil)
}

// strat sin descuento: la probabilidad del ScoredSignal ya está calibrada.
func passthroughStrategy() domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:          "test",
		KellyFraction: 1.0,
		AIDiscount:    1.0,
		MinEdge:       0.02,
		MaxPositionPc: 1.0,
	}
}

func marketAt(yesPrice float64) domain.Market {
	return domain.Market{
		ConditionID: "m1",
		EndDate:     time.Now().Add(48 * time.Hour),
		Tokens: [2]domain.Token{
			{Outcome: "Yes", Price: yesPrice},
			{Outcome: "No", Price: 1 - yesPrice},
		},
	}
}

func scored(prob, conf float64) domain.ScoredSignal {
	return domain.ScoredSignal{MarketID: "m1", Probability: prob, Confidence: conf, SignalCount: 2}
}

// --- FeeSchedule ---

func TestFeeSchedule_FeeFreeMarket(t *testing.T) {
	fee := NewFeeSchedule(0.0175, 0.003, false)
	// solo spread: 0.003×2×0.5×0.5 = 0.0015
	assert.InDelta(t, 0.0015, fee(0.5), 0.0001)
}

func TestFeeSchedule_SportsFeeMarket(t *testing.T) {
	fee := NewFeeSchedule(0.0175, 0.003, true)
	// 0.0175×0.25 + 0.0015 = 0.005875
	assert.InDelta(t, 0.005875, fee(0.5), 0.0001)
}

func TestFeeSchedule_MonotoneInRate(t *testing.T) {
	low := NewFeeSchedule(0.01, 0.003, true)
	high := NewFeeSchedule(0.03, 0.003, true)
	assert.Less(t, low(0.5), high(0.5))
}

// --- Evaluate: admisión ---

func TestEvaluate_AdmitsYesSide(t *testing.T) {
	// precio 0.40, probabilidad calibrada 0.58, sin fees → edge 0.18 YES
	dec := zeroFeeCalc().Evaluate(scored(0.58, 0.7), marketAt(0.40), passthroughStrategy(), 1000, time.Now())
	assert.True(t, dec.Admitted)
	assert.Equal(t, domain.SideYes, dec.Side)
	assert.InDelta(t, 0.18, dec.Edge, 0.0001)
	assert.InDelta(t, 0.40, dec.EntryPrice, 0.0001)
}

func TestEvaluate_AdmitsNoSide(t *testing.T) {
	dec := zeroFeeCalc().Evaluate(scored(0.30, 0.7), marketAt(0.48), passthroughStrategy(), 1000, time.Now())
	assert.True(t, dec.Admitted)
	assert.Equal(t, domain.SideNo, dec.Side)
	assert.InDelta(t, 0.52, dec.EntryPrice, 0.0001)
	assert.InDelta(t, 0.18, dec.Edge, 0.0001)
}

func TestEvaluate_FeesReduceEdge(t *testing.T) {
	noFees := zeroFeeCalc().Evaluate(scored(0.58, 0.7), marketAt(0.40), passthroughStrategy(), 1000, time.Now())
	withFees := NewCalculator(0.0175, 0.003, sizing.New(100), nil).
		Evaluate(scored(0.58, 0.7), marketAt(0.40), passthroughStrategy(), 1000, time.Now())
	assert.Less(t, withFees.Edge, noFees.Edge)
	assert.Equal(t, withFees.RawEdge, noFees.RawEdge)
}

func TestEvaluate_AIDiscountShrinksEdge(t *testing.T) {
	strat := passthroughStrategy()
	strat.AIDiscount = 0.5
	dec := zeroFeeCalc().Evaluate(scored(0.58, 0.7), marketAt(0.40), strat, 1000, time.Now())
	// calibrada = 0.40 + 0.18×0.5 = 0.49 → edge 0.09
	assert.InDelta(t, 0.09, dec.Edge, 0.0001)
}

// --- Filtros en orden ---

func TestEvaluate_EdgeBelowThreshold(t *testing.T) {
	dec := zeroFeeCalc().Evaluate(scored(0.41, 0.7), marketAt(0.40), passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterEdgeBelowMin, dec.Reason)
}

func TestEvaluate_LotteryTicketWinsOverAbsurdEdge(t *testing.T) {
	// precio 0.02, probabilidad 0.50 → edge crudo 0.48, pero reporta
	// lottery_ticket: el orden de los filtros es fijo.
	dec := zeroFeeCalc().Evaluate(scored(0.50, 0.7), marketAt(0.02), passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterLotteryTicket, dec.Reason)
}

func TestEvaluate_AbsurdEdge(t *testing.T) {
	dec := zeroFeeCalc().Evaluate(scored(0.90, 0.7), marketAt(0.45), passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterAbsurdEdge, dec.Reason)
}

func TestEvaluate_ExpiringSoon(t *testing.T) {
	m := marketAt(0.40)
	m.EndDate = time.Now().Add(30 * time.Minute)
	dec := zeroFeeCalc().Evaluate(scored(0.58, 0.7), m, passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterExpiringSoon, dec.Reason)
	// la razón persiste con este literal exacto en decisiones guardadas
	assert.Equal(t, domain.FilterReason("expiring_<1h"), dec.Reason)
}

func TestEvaluate_ShortExpiryRaisesMinEdge(t *testing.T) {
	m := marketAt(0.40)
	m.EndDate = time.Now().Add(3 * time.Hour)
	// edge 0.04 pasaría el min_edge normal (0.02) pero no el de corto plazo (0.05)
	dec := zeroFeeCalc().Evaluate(scored(0.44, 0.7), m, passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterEdgeBelowMin, dec.Reason)
}

func TestEvaluate_LongExpiryShrinksEdge(t *testing.T) {
	m := marketAt(0.40)
	m.EndDate = time.Now().Add(60 * 24 * time.Hour)
	dec := zeroFeeCalc().Evaluate(scored(0.58, 0.7), m, passthroughStrategy(), 1000, time.Now())
	// edge 0.18 × 0.7 = 0.126
	assert.InDelta(t, 0.126, dec.Edge, 0.0005)
}

func TestEvaluate_ExtremeLowPriceMismatch(t *testing.T) {
	dec := zeroFeeCalc().Evaluate(scored(0.40, 0.7), marketAt(0.05), passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterExtremeLowPrice, dec.Reason)
}

func TestEvaluate_ExtremeHighPriceMismatch(t *testing.T) {
	dec := zeroFeeCalc().Evaluate(scored(0.60, 0.7), marketAt(0.93), passthroughStrategy(), 1000, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterExtremeHighPrice, dec.Reason)
}

func TestEvaluate_TooFewShares(t *testing.T) {
	// bankroll minúsculo → Kelly no llega a 5 shares
	dec := zeroFeeCalc().Evaluate(scored(0.58, 0.7), marketAt(0.40), passthroughStrategy(), 5, time.Now())
	assert.False(t, dec.Admitted)
	assert.Equal(t, domain.FilterTooFewShares, dec.Reason)
}

func TestEvaluate_FilterOrderIsStable(t *testing.T) {
	// misma entrada, misma razón, siempre
	for i := 0; i < 5; i++ {
		dec := zeroFeeCalc().Evaluate(scored(0.50, 0.7), marketAt(0.02), passthroughStrategy(), 1000, time.Now())
		assert.Equal(t, domain.FilterLotteryTicket, dec.Reason)
	}
}

// --- Reliability ---

func TestReliability_Levels(t *testing.T) {
	assert.Equal(t, domain.ReliabilityHigh, reliability(domain.ScoredSignal{SignalCount: 3, Confidence: 0.6}))
	assert.Equal(t, domain.ReliabilityMedium, reliability(domain.ScoredSignal{SignalCount: 2, Confidence: 0.4}))
	assert.Equal(t, domain.ReliabilityLow, reliability(domain.ScoredSignal{SignalCount: 1, Confidence: 0.9}))
}
