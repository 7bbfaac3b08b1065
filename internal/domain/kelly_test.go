package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampProb_WithinRange(t *testing.T) {
	assert.Equal(t, 0.55, ClampProb(0.55))
}

func TestClampProb_Floor(t *testing.T) {
	assert.Equal(t, 0.02, ClampProb(0.001))
	assert.Equal(t, 0.02, ClampProb(-0.3))
}

func TestClampProb_Ceil(t *testing.T) {
	assert.Equal(t, 0.98, ClampProb(0.999))
	assert.Equal(t, 0.98, ClampProb(1.5))
}

// --- BlendTowardPrice ---

func TestBlendTowardPrice_FullConfidence(t *testing.T) {
	// price=0.40, prob=0.60, discount=0.5, conf=1.0
	// p' = 0.40 + 0.20×0.5×1.0 = 0.50
	assert.InDelta(t, 0.50, BlendTowardPrice(0.60, 0.40, 0.5, 1.0), 0.0001)
}

func TestBlendTowardPrice_LowConfidenceFloorsAtHalf(t *testing.T) {
	// conf=0.1 se recorta a 0.5 → p' = 0.40 + 0.20×0.5×0.5 = 0.45
	assert.InDelta(t, 0.45, BlendTowardPrice(0.60, 0.40, 0.5, 0.1), 0.0001)
}

func TestBlendTowardPrice_ZeroDiscountStaysAtPrice(t *testing.T) {
	assert.InDelta(t, 0.40, BlendTowardPrice(0.60, 0.40, 0, 1.0), 0.0001)
}

// --- KellyFullFraction ---

func TestKellyFullFraction_PositiveEdge(t *testing.T) {
	// price=0.50, prob=0.60: b=1, f* = (1×0.6 - 0.4)/1 = 0.20
	assert.InDelta(t, 0.20, KellyFullFraction(0.60, 0.50), 0.0001)
}

func TestKellyFullFraction_NoEdge(t *testing.T) {
	assert.Equal(t, 0.0, KellyFullFraction(0.50, 0.50))
}

func TestKellyFullFraction_NegativeEdgeClampsToZero(t *testing.T) {
	assert.Equal(t, 0.0, KellyFullFraction(0.40, 0.50))
}

func TestKellyFullFraction_InvalidInputs(t *testing.T) {
	assert.Equal(t, 0.0, KellyFullFraction(0.60, 0))
	assert.Equal(t, 0.0, KellyFullFraction(0.60, 1))
	assert.Equal(t, 0.0, KellyFullFraction(0, 0.50))
}

func TestKellyFullFraction_AsymmetricPrice(t *testing.T) {
	// price=0.25, prob=0.40: b=3, f* = (3×0.4 - 0.6)/3 = 0.20
	assert.InDelta(t, 0.20, KellyFullFraction(0.40, 0.25), 0.0001)
}
