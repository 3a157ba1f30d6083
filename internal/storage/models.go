package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Run outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeNoTrades   = "no_trades"
	OutcomeNoResponse = "no_response"
	OutcomeSkipped    = "skipped"
	OutcomeError      = "error"
)

// ManualRunID marks trades placed outside a run, e.g. by closeall.
const ManualRunID = "manual"

// Decision is what happened to one symbol during a run.
type Decision struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Decision   string  `json:"decision"` // filtered, rejected, approved, executed, failed
	Reason     string  `json:"reason,omitempty"`
	OrderID    string  `json:"order_id,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RunLogEntry is written once per RunCycle call and never updated.
type RunLogEntry struct {
	ID         string    `gorm:"primaryKey;size:26" json:"id"`
	StartedAt  time.Time `gorm:"index;not null" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Trigger string `gorm:"not null" json:"trigger"`
	Outcome string `gorm:"index;not null" json:"outcome"`
	Message string `json:"message"`

	MarketOpen    bool   `json:"market_open"`
	AccountSource string `json:"account_source,omitempty"`
	LLMOK         bool   `gorm:"column:llm_ok" json:"llm_ok"`
	LLMError      string `gorm:"column:llm_error;type:text" json:"llm_error,omitempty"`
	LLMAttempts   int    `gorm:"column:llm_attempts" json:"llm_attempts"`
	Summary       string `gorm:"type:text" json:"analysis_summary,omitempty"`

	Recommended int `json:"recommended"`
	Approved    int `json:"approved"`
	Executed    int `json:"executed"`

	Decisions   datatypes.JSONSlice[Decision] `json:"decisions"`
	DataErrors  datatypes.JSONMap             `json:"data_errors,omitempty"`
	ErrorDetail string                        `gorm:"type:text" json:"error_detail,omitempty"`
	Config      datatypes.JSON                `json:"config,omitempty"`
}

// Trade mirrors a broker order placed by a run.
type Trade struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RunID         string `gorm:"index;not null" json:"run_id"`
	Broker        string `json:"broker"`
	OrderID       string `gorm:"index" json:"order_id"`
	ClientOrderID string `json:"client_order_id,omitempty"`

	Symbol     string  `gorm:"index;not null" json:"symbol"`
	Side       string  `gorm:"not null" json:"side"`
	OrderType  string  `gorm:"not null" json:"order_type"`
	Quantity   float64 `gorm:"not null" json:"quantity"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	Price      float64 `json:"price"`

	Status      string  `gorm:"index;not null" json:"status"`
	FilledQty   float64 `json:"filled_qty"`
	FilledPrice float64 `json:"filled_price"`

	StopLossPrice     float64 `json:"stop_loss_price"`
	TakeProfitPrice   float64 `json:"take_profit_price"`
	StopLossOrderID   string  `json:"stop_loss_order_id,omitempty"`
	TakeProfitOrderID string  `json:"take_profit_order_id,omitempty"`

	Confidence float64 `json:"confidence"`
	Rationale  string  `gorm:"type:text" json:"rationale,omitempty"`
}

type PortfolioSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	RunID          string  `gorm:"index" json:"run_id"`
	Broker         string  `json:"broker"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
	Equity         float64 `json:"equity"`
	LastEquity     float64 `json:"last_equity"`
	PositionsCount int     `json:"positions_count"`

	Positions []PositionSnapshot `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE" json:"positions"`
}

type PositionSnapshot struct {
	ID         uint `gorm:"primarykey" json:"id"`
	SnapshotID uint `gorm:"index;not null" json:"snapshot_id"`

	Symbol          string  `gorm:"not null" json:"symbol"`
	Quantity        float64 `json:"quantity"`
	AvgEntryPrice   float64 `json:"avg_entry_price"`
	CurrentPrice    float64 `json:"current_price"`
	MarketValue     float64 `json:"market_value"`
	UnrealizedPL    float64 `gorm:"column:unrealized_pl" json:"unrealized_pl"`
	UnrealizedPLPct float64 `gorm:"column:unrealized_pl_pct" json:"unrealized_plpc"`
}

// KillSwitchEvent is appended by operators; the latest row is the current state.
type KillSwitchEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Active    bool      `json:"active"`
	Reason    string    `json:"reason"`
	Actor     string    `json:"actor"`
}

// Lease is held by one process at a time for a named job, e.g. the run loop of
// one broker account. An expired lease can be taken over.
type Lease struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Holder    string    `gorm:"not null" json:"holder"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}
