package models

import "time"

// Machine-readable reason codes attached to structured results.
const (
	ReasonNoExchangeConnection = "NO_EXCHANGE_CONNECTION"
	ReasonInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ReasonFailedToPlaceOrders  = "FAILED_TO_PLACE_ORDERS"
	ReasonGridNotFound         = "GRID_NOT_FOUND"
	ReasonGridAlreadyActive    = "GRID_ALREADY_ACTIVE"
	ReasonCompoundingDisabled  = "COMPOUNDING_DISABLED"
)

// GridCreateResult is the outcome of a CreateGrid call.
type GridCreateResult struct {
	Success      bool    `json:"success"`
	GridID       string  `json:"grid_id,omitempty"`
	Symbol       string  `json:"symbol"`
	OrdersPlaced int     `json:"orders_placed"`
	GridLevels   int     `json:"grid_levels"`
	CapitalUsed  float64 `json:"capital_used"`
	Reason       string  `json:"reason,omitempty"` // machine-readable on failure
	Message      string  `json:"message"`
}

// StopResult summarizes a StopAllGrids (or single-grid stop) call.
type StopResult struct {
	GridsStopped    int     `json:"grids_stopped"`
	OrdersCancelled int     `json:"orders_cancelled"`
	CapitalReleased float64 `json:"capital_released"`
	Reason          string  `json:"reason,omitempty"` // machine-readable on failure
}

// CompoundResult is the outcome of AutoCompoundAndRebalance.
type CompoundResult struct {
	Success        bool    `json:"success"`
	Rebalanced     bool    `json:"rebalanced"`
	NewBalance     float64 `json:"new_balance"`
	CapitalPerGrid float64 `json:"capital_per_grid,omitempty"`
	GridsCreated   int     `json:"grids_created"`
	Reason         string  `json:"reason,omitempty"` // machine-readable on failure
	Message        string  `json:"message"`
}

// GridStatus is the reporting snapshot of one active grid.
type GridStatus struct {
	GridID        string            `json:"grid_id"`
	Config        GridConfiguration `json:"config"`
	Stats         GridStats         `json:"stats"`
	TotalInvested float64           `json:"total_invested"`
	RealizedPnL   float64           `json:"realized_pnl"`
	CreatedAt     time.Time         `json:"created_at"`
	LastUpdate    time.Time         `json:"last_update"`
}

// ActiveGridsStatus is the aggregate snapshot of all active grids.
type ActiveGridsStatus struct {
	TotalActiveGrids  int          `json:"total_active_grids"`
	TotalCapitalUsed  float64      `json:"total_capital_used"`
	TotalActiveOrders int          `json:"total_active_orders"`
	Grids             []GridStatus `json:"grids"`
}

// VisualizationLevel is one rung of a grid visualization: the level-by-level
// snapshot exposed to reporting.
type VisualizationLevel struct {
	Level                 int         `json:"level"`
	Price                 float64     `json:"price"`
	Side                  OrderSide   `json:"side"`
	OrderID               string      `json:"order_id,omitempty"`
	Status                OrderStatus `json:"status"`
	Quantity              float64     `json:"quantity"`
	FilledQuantity        float64     `json:"filled_quantity"`
	FillPct               float64     `json:"fill_pct"`
	ProfitPotentialPct    float64     `json:"profit_potential_pct"`
	DistanceFromMarketPct float64     `json:"distance_from_market_pct"`
}

// GridVisualization is the full level-by-level snapshot of one symbol's grid.
type GridVisualization struct {
	Symbol         string               `json:"symbol"`
	CurrentPrice   float64              `json:"current_price"`
	Levels         []VisualizationLevel `json:"levels"` // sorted by price, descending
	TotalLevels    int                  `json:"total_levels"`
	BuyLevels      int                  `json:"buy_levels"`
	SellLevels     int                  `json:"sell_levels"`
	TotalCapital   float64              `json:"total_capital"`
	FilledCapital  float64              `json:"filled_capital"`
	PendingCapital float64              `json:"pending_capital"`
	ProfitLevels   int                  `json:"profit_levels"`
	LossLevels     int                  `json:"loss_levels"`
	GridRangePct   float64              `json:"grid_range_pct"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// PhaseStatus is the detailed view of the roadmap's current phase.
type PhaseStatus struct {
	PhaseNumber        int     `json:"phase_number"`
	StartCapital       float64 `json:"start_capital"`
	CurrentCapital     float64 `json:"current_capital"`
	TargetCapital      float64 `json:"target_capital"`
	CompletedCycles    int     `json:"completed_cycles"`
	TargetCycles       int     `json:"target_cycles"`
	TargetROIPerCycle  float64 `json:"target_roi_per_cycle"`
	CycleProgressPct   float64 `json:"cycle_progress_pct"`
	CapitalProgressPct float64 `json:"capital_progress_pct"`
	CyclesRemaining    int     `json:"cycles_remaining"`
	CapitalRemaining   float64 `json:"capital_remaining"`
	IsComplete         bool    `json:"is_complete"`
}

// CompletionEstimate projects when the roadmap will finish based on the
// observed cycles-per-day rate. Known is false until at least one cycle
// has completed.
type CompletionEstimate struct {
	Known            bool      `json:"known"`
	EstimatedDays    float64   `json:"estimated_days,omitempty"`
	EstimatedDate    time.Time `json:"estimated_date,omitempty"`
	AvgROIPerCycle   float64   `json:"avg_roi_per_cycle"`
	AvgCycleTimeDays float64   `json:"avg_cycle_time_days,omitempty"`
	CyclesRemaining  int       `json:"cycles_remaining"`
}

// RoadmapOverview is the status of every phase plus roadmap totals.
type RoadmapOverview struct {
	CurrentPhase         int         `json:"current_phase"`
	TotalCyclesCompleted int         `json:"total_cycles_completed"`
	TotalProfit          float64     `json:"total_profit"`
	StartingCapital      float64     `json:"starting_capital"`
	Phases               []PhaseInfo `json:"phases"`
}

// RoadmapStatus bundles everything the roadmap reporting layer needs.
type RoadmapStatus struct {
	Overview            RoadmapOverview    `json:"roadmap_overview"`
	CurrentPhase        PhaseStatus        `json:"current_phase_detail"`
	CompletionEstimate  CompletionEstimate `json:"completion_estimate"`
	AutoCompoundEnabled bool               `json:"auto_compound_enabled"`
	LastRebalanceTime   time.Time          `json:"last_rebalance_time"`
	TotalCompleted      int                `json:"total_completed_cycles"`
}

// LivePnL holds the headline profit numbers for the live dashboard feed.
type LivePnL struct {
	TodayPnL        float64 `json:"today_pnl"`
	WeekPnL         float64 `json:"week_pnl"`
	TotalProfit     float64 `json:"total_profit"`
	TotalCycles     int     `json:"total_cycles"`
	AvgROIPerCycle  float64 `json:"avg_roi_per_cycle"`
	CurrentCapital  float64 `json:"current_capital"`
	StartingCapital float64 `json:"starting_capital"`
}

// LivePnLStatus is the full live P&L payload: headline numbers, the current
// phase, the completion estimate and the most recent completed cycles.
type LivePnLStatus struct {
	PnL                LivePnL            `json:"live_pnl"`
	PhaseProgress      PhaseStatus        `json:"phase_progress"`
	CompletionEstimate CompletionEstimate `json:"completion_estimate"`
	RecentCycles       []CompletedCycle   `json:"recent_cycles"`
}

// CycleRecordResult is the outcome of RecordCompletedCycle.
type CycleRecordResult struct {
	CycleID     string  `json:"cycle_id"`
	Profit      float64 `json:"profit"`
	ROIPct      float64 `json:"roi_pct"`
	Phase       int     `json:"phase"`
	TotalCycles int     `json:"total_cycles"`
}
