package models

import "time"

// EngineState is the persisted snapshot of the engine's reporting ledgers:
// the completed-cycle projection, the daily P&L ledger and the phase
// roadmap. Live grids and exchange orders are deliberately not persisted;
// they are rebuilt from the exchange on startup.
type EngineState struct {
	Version         int                `json:"version"`
	StartingCapital float64            `json:"starting_capital"`
	TotalProfit     float64            `json:"total_profit"`
	TotalCycles     int                `json:"total_cycles"`
	CompletedCycles []CompletedCycle   `json:"completed_cycles"`
	DailyPnL        map[string]float64 `json:"daily_pnl"` // key: YYYY-MM-DD
	Roadmap         RoadmapState       `json:"roadmap"`
	LastUpdateTime  time.Time          `json:"last_update_time"`
}

// RoadmapState is the persisted form of the phase tracker.
type RoadmapState struct {
	CurrentPhase         int         `json:"current_phase"`
	StartTime            time.Time   `json:"start_time"`
	TotalCyclesCompleted int         `json:"total_cycles_completed"`
	TotalProfit          float64     `json:"total_profit"`
	Phases               []PhaseInfo `json:"phases"`
}
