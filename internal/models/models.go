package models

import "time"

// OrderSide is the direction of a grid order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus is the lifecycle state of a grid order.
// Transitions: PENDING -> ACTIVE -> FILLED, or -> CANCELLED, or -> FAILED.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderActive    OrderStatus = "ACTIVE"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderFailed
}

// VolatilityRegime is a coarse volatility bucket used to widen or narrow
// grid spacing.
type VolatilityRegime string

const (
	RegimeLow     VolatilityRegime = "LOW"
	RegimeMedium  VolatilityRegime = "MEDIUM"
	RegimeHigh    VolatilityRegime = "HIGH"
	RegimeExtreme VolatilityRegime = "EXTREME"
	RegimeUnknown VolatilityRegime = "UNKNOWN"
)

// Candle is a single OHLCV bar returned by an exchange.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Balance is the free/used/total balance of a single asset.
type Balance struct {
	Asset string  `json:"asset"`
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// GridConfiguration holds everything needed to build one grid. It is
// immutable once the grid is created; changing any field requires creating
// a new grid.
type GridConfiguration struct {
	Symbol          string  `json:"symbol"`
	Exchange        string  `json:"exchange"`
	CenterPrice     float64 `json:"center_price"`
	GridSpacingPct  float64 `json:"grid_spacing_pct"`
	LevelsAbove     int     `json:"levels_above"`
	LevelsBelow     int     `json:"levels_below"`
	OrderSizeUSD    float64 `json:"order_size_usd"`
	ProfitTargetPct float64 `json:"profit_target_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	MaxCapitalUSD   float64 `json:"max_capital_usd"`
	UseSmartRange   bool    `json:"use_smart_range"`
}

// GridLevel is one rung of the price ladder. Levels hold order ids rather
// than order pointers; the engine keeps every order in an arena map keyed
// by id, so levels and orders never reference each other directly.
type GridLevel struct {
	Index       int     `json:"index"` // negative = below center (buy side)
	Price       float64 `json:"price"`
	BuyOrderID  string  `json:"buy_order_id,omitempty"`
	SellOrderID string  `json:"sell_order_id,omitempty"`
}

// GridOrder is a single order owned by a grid level.
type GridOrder struct {
	ID              string      `json:"id"`
	GridID          string      `json:"grid_id"`
	Symbol          string      `json:"symbol"`
	Side            OrderSide   `json:"side"`
	Price           float64     `json:"price"`
	Quantity        float64     `json:"quantity"`
	Level           int         `json:"level"`
	Status          OrderStatus `json:"status"`
	Exchange        string      `json:"exchange"`
	ExchangeOrderID string      `json:"exchange_order_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	FilledAt        time.Time   `json:"filled_at,omitempty"`
	FilledPrice     float64     `json:"filled_price,omitempty"`
	// ExpectedProfit is only meaningful on the sell order that closes a
	// cycle: (sellPrice - buyFillPrice) * quantity, tagged at creation.
	ExpectedProfit float64 `json:"expected_profit,omitempty"`
}

// MarketVolatility is the volatility snapshot used for smart grid spacing.
// Entries are cached per (symbol, exchange) and expire after the analyzer's
// refresh interval.
type MarketVolatility struct {
	Symbol                string    `json:"symbol"`
	ATR24h                float64   `json:"atr_24h"`
	ATR72h                float64   `json:"atr_72h"`
	StdDev24h             float64   `json:"std_dev_24h"`
	StdDev72h             float64   `json:"std_dev_72h"`
	PriceRange24h         float64   `json:"price_range_24h"`
	VolatilityScore       float64   `json:"volatility_score"` // 0-100
	RecommendedSpacingPct float64   `json:"recommended_spacing_pct"`
	Confidence            string    `json:"confidence"` // HIGH, MEDIUM, LOW
	UpdatedAt             time.Time `json:"updated_at"`
}

// SmartGridRange is the spacing recommendation derived from
// MarketVolatility plus a requested base spacing.
type SmartGridRange struct {
	Symbol             string           `json:"symbol"`
	BaseSpacingPct     float64          `json:"base_spacing_pct"`
	ATRBasedSpacing    float64          `json:"atr_based_spacing"`
	StdDevBasedSpacing float64          `json:"std_dev_based_spacing"`
	SmartSpacingPct    float64          `json:"smart_spacing_pct"`
	FinalSpacingPct    float64          `json:"final_spacing_pct"`
	Regime             VolatilityRegime `json:"volatility_regime"`
	GridWidthUSD       float64          `json:"grid_width_usd"`
	RecommendedLevels  int              `json:"recommended_levels"`
	ConfidenceScore    float64          `json:"confidence_score"`
}

// CycleMetrics tracks one allocation cycle for a symbol, from StartCycle
// until CompleteCycle. Drawdown is maintained as the running peak-to-current
// capital gap on every update, not computed at completion.
type CycleMetrics struct {
	CycleID          string           `json:"cycle_id"`
	Symbol           string           `json:"symbol"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time,omitempty"`
	DurationHours    float64          `json:"duration_hours,omitempty"`
	ROIPct           float64          `json:"roi_pct"`
	MaxDrawdownPct   float64          `json:"max_drawdown_pct"`
	TotalTrades      int              `json:"total_trades"`
	ProfitUSD        float64          `json:"profit_usd"`
	StartingCapital  float64          `json:"starting_capital"`
	PeakCapital      float64          `json:"peak_capital"`
	FinalCapital     float64          `json:"final_capital"`
	VolatilityRegime VolatilityRegime `json:"volatility_regime"`
	GridSpacingUsed  float64          `json:"grid_spacing_used"`
	IsComplete       bool             `json:"is_complete"`
}

// PerformanceAnalytics aggregates all completed cycles for one symbol. It
// is recomputed in full whenever a cycle completes.
type PerformanceAnalytics struct {
	Symbol             string  `json:"symbol"`
	TotalCycles        int     `json:"total_cycles"`
	CompletedCycles    int     `json:"completed_cycles"`
	AvgCycleDuration   float64 `json:"avg_cycle_duration_hours"`
	AvgROIPerCycle     float64 `json:"avg_roi_per_cycle"`
	BestCycleROI       float64 `json:"best_cycle_roi"`
	WorstCycleROI      float64 `json:"worst_cycle_roi"`
	TotalProfit        float64 `json:"total_profit"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	SortinoRatio       float64 `json:"sortino_ratio"`
	WinRate            float64 `json:"win_rate"`
	ProfitFactor       float64 `json:"profit_factor"` // +Inf when no losses
	Volatility         float64 `json:"volatility"`
	ConsistencyScore   float64 `json:"consistency_score"`
	RiskAdjustedReturn float64 `json:"risk_adjusted_return"`
}

// PhaseInfo is one milestone of the four-stage capital-growth roadmap.
type PhaseInfo struct {
	PhaseNumber       int       `json:"phase_number"` // 1-4
	StartCapital      float64   `json:"start_capital"`
	TargetCapital     float64   `json:"target_capital"`
	TargetCycles      int       `json:"target_cycles"`
	TargetROIPerCycle float64   `json:"target_roi_per_cycle"`
	CompletedCycles   int       `json:"completed_cycles"`
	CurrentCapital    float64   `json:"current_capital"`
	IsComplete        bool      `json:"is_complete"`
	StartTime         time.Time `json:"start_time,omitempty"`
	EndTime           time.Time `json:"end_time,omitempty"`
}

// CompletedCycle is the lightweight roadmap-level record of a finished
// cycle, used for daily/weekly P&L and recent-cycle reporting. It is a
// reporting projection, not the authoritative cycle state.
type CompletedCycle struct {
	CycleID        string    `json:"cycle_id"`
	Symbol         string    `json:"symbol"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCapital   float64   `json:"final_capital"`
	Profit         float64   `json:"profit"`
	ROIPct         float64   `json:"roi_pct"`
	Phase          int       `json:"phase"`
	CycleNumber    int       `json:"cycle_number"`
}

// GridStats is the running per-grid scoreboard maintained by the monitor.
type GridStats struct {
	GridID           string    `json:"grid_id"`
	Symbol           string    `json:"symbol"`
	TotalCycles      int       `json:"total_cycles"`
	ProfitableCycles int       `json:"profitable_cycles"`
	TotalProfit      float64   `json:"total_profit"`
	WinRate          float64   `json:"win_rate"`
	ActiveOrders     int       `json:"active_orders"`
	CreatedAt        time.Time `json:"created_at"`
	LastCycleAt      time.Time `json:"last_cycle_at,omitempty"`
}
