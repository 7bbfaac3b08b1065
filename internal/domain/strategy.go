package domain

// StrategyConfig is one parameter set competing in the arena.
// Every runner gets its own bankroll and ledger; parameters never change
// at runtime, so comparisons between strategies stay meaningful.
type StrategyConfig struct {
	Name          string
	KellyFraction float64 // fraction of full Kelly to bet (0.5 = half-Kelly)
	AIDiscount    float64 // how far the blended estimate moves toward the model
	MinEdge       float64
	MinConfidence float64
	TPRatio       float64 // relative gain over entry: target = entry * (1 + TPRatio)
	SLRatio       float64 // stop at entry * SLRatio
	Trailing      bool
	TrailingAct   float64 // activation: progress of peak toward target
	TrailingDist  float64 // trail distance below peak
	TimeoutHours  float64
	MaxOpen       int
	MaxExposure   float64 // fraction of bankroll that may be deployed
	MaxPositionPc float64 // hard cap on single-position Kelly fraction
}

// DefaultStrategies returns the fixed arena lineup. The set is static:
// adding or removing a strategy is a code change, not configuration.
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{
			Name:          "baseline",
			KellyFraction: 0.5,
			AIDiscount:    0.5,
			MinEdge:       0.02,
			MinConfidence: 0.40,
			TPRatio:       0.70,
			SLRatio:       0.75,
			Trailing:      true,
			TrailingAct:   0.5,
			TrailingDist:  0.30,
			TimeoutHours:  24,
			MaxOpen:       8,
			MaxExposure:   0.60,
			MaxPositionPc: 0.10,
		},
		{
			Name:          "aggressive",
			KellyFraction: 0.75,
			AIDiscount:    0.7,
			MinEdge:       0.01,
			MinConfidence: 0.35,
			TPRatio:       0.85,
			SLRatio:       0.65,
			Trailing:      true,
			TrailingAct:   0.5,
			TrailingDist:  0.30,
			TimeoutHours:  24,
			MaxOpen:       12,
			MaxExposure:   0.80,
			MaxPositionPc: 0.15,
		},
		{
			Name:          "conservative",
			KellyFraction: 0.25,
			AIDiscount:    0.3,
			MinEdge:       0.04,
			MinConfidence: 0.55,
			TPRatio:       0.55,
			SLRatio:       0.85,
			Trailing:      true,
			TrailingAct:   0.5,
			TrailingDist:  0.30,
			TimeoutHours:  24,
			MaxOpen:       5,
			MaxExposure:   0.40,
			MaxPositionPc: 0.08,
		},
		{
			Name:          "sniper",
			KellyFraction: 0.5,
			AIDiscount:    0.5,
			MinEdge:       0.06,
			MinConfidence: 0.60,
			TPRatio:       0.50,
			SLRatio:       0.82,
			Trailing:      false,
			TimeoutHours:  6,
			MaxOpen:       4,
			MaxExposure:   0.50,
			MaxPositionPc: 0.10,
		},
		{
			Name:          "trend_follower",
			KellyFraction: 0.5,
			AIDiscount:    0.5,
			MinEdge:       0.03,
			MinConfidence: 0.40,
			TPRatio:       0.90,
			SLRatio:       0.70,
			Trailing:      true,
			TrailingAct:   0.3,
			TrailingDist:  0.20,
			TimeoutHours:  48,
			MaxOpen:       10,
			MaxExposure:   0.60,
			MaxPositionPc: 0.10,
		},
	}
}

// StrategyByName finds a strategy in the default lineup.
func StrategyByName(name string) (StrategyConfig, bool) {
	for _, s := range DefaultStrategies() {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyConfig{}, false
}
