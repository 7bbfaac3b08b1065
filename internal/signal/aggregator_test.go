package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/polyclaw/internal/domain"
)

func testAggregator(now time.Time) *Aggregator {
	return New(DefaultConfig(), nil).WithClock(func() time.Time { return now })
}

func freshSignal(source string, dir int, mag float64, now time.Time) domain.Signal {
	return domain.Signal{
		MarketID:   "m1",
		Source:     source,
		Direction:  dir,
		Magnitude:  mag,
		MatchScore: 1.0,
		Published:  now,
	}
}

// --- RawShift ---

func TestRawShift_SameDirectionSums(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	// Reuters cred=1.0, CoinDesk cred=0.6... usamos fuentes con 1.0 y 0.5:
	// no hay fuente con 0.5 exacto en la tabla, fuente desconocida = 0.3.
	// Reuters (1.0) y una fuente custom → forzamos cred con tabla conocida.
	sigs := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("desconocida", 1, 0.05, now),
	}
	// 0.05×1.0 + 0.05×0.3 = 0.065
	assert.InDelta(t, 0.065, a.RawShift(sigs, now), 0.0005)
}

func TestRawShift_TwoCredibilityTiers(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	// Dos señales alineadas, magnitud 0.05, credibilidades 1.0 y 0.5:
	// el shift crudo es la suma 0.05×1.0 + 0.05×0.5 = 0.075.
	sourceCredibility["TestWire"] = 0.5
	defer delete(sourceCredibility, "TestWire")
	sigs := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("TestWire", 1, 0.05, now),
	}
	assert.InDelta(t, 0.075, a.RawShift(sigs, now), 0.0005)
}

func TestRawShift_OpposingSignalsCancel(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	sigs := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("AP", -1, 0.05, now),
	}
	assert.InDelta(t, 0.0, a.RawShift(sigs, now), 0.0001)
}

func TestRawShift_MagnitudeFromImportance(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := freshSignal("Reuters", 1, 0, now)
	s.Importance = 5
	// importancia 5 → 0.18
	assert.InDelta(t, 0.18, a.RawShift([]domain.Signal{s}, now), 0.0005)
}

func TestRawShift_BreakingBoost(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := freshSignal("Reuters", 1, 0, now)
	s.Importance = 3
	s.Breaking = true
	// 0.07 × 1.5 = 0.105
	assert.InDelta(t, 0.105, a.RawShift([]domain.Signal{s}, now), 0.0005)
}

// --- Freshness ---

func TestFreshness_DecaysWithHalflife(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := freshSignal("Reuters", 1, 0.05, now.Add(-4*time.Hour))
	// categoría default: half-life 4h → 2^-1 = 0.5
	assert.InDelta(t, 0.5, a.Freshness(s, now), 0.001)
}

func TestFreshness_CategoryHalflife(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := freshSignal("Reuters", 1, 0.05, now.Add(-30*time.Minute))
	s.Category = "data_release"
	// half-life 0.5h, edad 0.5h → 0.5
	assert.InDelta(t, 0.5, a.Freshness(s, now), 0.001)
}

func TestFreshness_Floor(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := freshSignal("Reuters", 1, 0.05, now.Add(-100*time.Hour))
	assert.Equal(t, 0.05, a.Freshness(s, now))
}

func TestFreshness_UnknownAgeModerate(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	s := domain.Signal{Source: "Reuters"}
	assert.Equal(t, 0.5, a.Freshness(s, now))
}

// --- Aggregate ---

func TestAggregate_NoSignalsNoLLM_NoOutput(t *testing.T) {
	a := testAggregator(time.Now())
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	_, ok := a.Aggregate(m, nil, nil)
	assert.False(t, ok)
}

func TestAggregate_ShiftsPriceUp(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	got, ok := a.Aggregate(m, []domain.Signal{freshSignal("Reuters", 1, 0.10, now)}, nil)
	assert.True(t, ok)
	assert.InDelta(t, 0.50, got.Probability, 0.001)
	assert.Equal(t, 1, got.Direction)
	assert.Equal(t, 1, got.SignalCount)
}

func TestAggregate_VolumeDampening(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Volume: 2_000_000, Tokens: yesNoTokens(0.40)}
	got, _ := a.Aggregate(m, []domain.Signal{freshSignal("Reuters", 1, 0.10, now)}, nil)
	// shift 0.10 × 0.4 = 0.04
	assert.InDelta(t, 0.44, got.Probability, 0.001)
}

func TestAggregate_MidVolumeDampening(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Volume: 200_000, Tokens: yesNoTokens(0.40)}
	got, _ := a.Aggregate(m, []domain.Signal{freshSignal("Reuters", 1, 0.10, now)}, nil)
	assert.InDelta(t, 0.465, got.Probability, 0.001)
}

func TestAggregate_ClampsProbability(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.95)}
	got, _ := a.Aggregate(m, []domain.Signal{freshSignal("Reuters", 1, 0.18, now)}, nil)
	assert.Equal(t, 0.98, got.Probability)
}

func TestAggregate_ConfidenceInRange(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	sigs := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("AP", 1, 0.05, now),
		freshSignal("Bloomberg", 1, 0.05, now),
	}
	got, _ := a.Aggregate(m, sigs, nil)
	assert.Greater(t, got.Confidence, 0.5)
	assert.LessOrEqual(t, got.Confidence, 0.92)
}

func TestAggregate_DisagreementLowersConfidence(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	aligned := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("AP", 1, 0.05, now),
	}
	opposed := []domain.Signal{
		freshSignal("Reuters", 1, 0.05, now),
		freshSignal("AP", -1, 0.05, now),
	}
	withAgreement, _ := a.Aggregate(m, aligned, nil)
	withConflict, _ := a.Aggregate(m, opposed, nil)
	assert.Greater(t, withAgreement.Confidence, withConflict.Confidence)
}

// --- LLM blend ---

func TestAggregate_LLMOnly(t *testing.T) {
	a := testAggregator(time.Now())
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	llm := &domain.LLMEstimate{MarketID: "m1", Probability: 0.70, Confidence: 0.8}
	got, ok := a.Aggregate(m, nil, llm)
	assert.True(t, ok)
	assert.InDelta(t, 0.70, got.Probability, 0.001)
	assert.Equal(t, 0.8, got.Confidence)
	assert.True(t, got.FromLLM)
}

func TestAggregate_LLMBlendsWithRules(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	sigs := []domain.Signal{freshSignal("Reuters", 1, 0.10, now)}
	llm := &domain.LLMEstimate{MarketID: "m1", Probability: 0.80, Confidence: 0.8}
	got, _ := a.Aggregate(m, sigs, llm)
	// blend ponderado: queda entre la estimación rule-based (0.50) y la LLM (0.80)
	assert.Greater(t, got.Probability, 0.50)
	assert.Less(t, got.Probability, 0.80)
	assert.True(t, got.FromLLM)
}

func TestAggregate_LLMZeroConfidenceIgnored(t *testing.T) {
	now := time.Now()
	a := testAggregator(now)
	m := domain.Market{ConditionID: "m1", Tokens: yesNoTokens(0.40)}
	sigs := []domain.Signal{freshSignal("Reuters", 1, 0.10, now)}
	llm := &domain.LLMEstimate{MarketID: "m1", Probability: 0.90, Confidence: 0}
	got, _ := a.Aggregate(m, sigs, llm)
	assert.InDelta(t, 0.50, got.Probability, 0.001)
	assert.False(t, got.FromLLM)
}

func yesNoTokens(yesPrice float64) [2]domain.Token {
	return [2]domain.Token{
		{Outcome: "Yes", Price: yesPrice},
		{Outcome: "No", Price: 1 - yesPrice},
	}
}
