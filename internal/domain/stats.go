package domain

// StrategyStats is one row of the arena leaderboard.
type StrategyStats struct {
	Strategy      string
	OpenPositions int
	Invested      float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Bankroll      float64
	ROI           float64 // realized / initial bankroll
	Wins          int
	Losses        int
	WinRate       float64
	Live          bool // strategy mirrored to live execution
}
