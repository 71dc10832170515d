// Package budget implements the per-session budget ledger and threshold
// alerting for cost-metered agent conversations.
//
// DESIGN: The ledger is the single owner of spend state. Every recorded
// agent turn appends an immutable AgentCost, and UsedBudget/CurrentExchanges
// are derived nowhere else. Admission decisions elsewhere read snapshots;
// only RecordCost mutates. Sessions are independent and internally
// serialized, so concurrent candidates within one session are strictly
// ordered while unrelated sessions never contend.
package budget

import (
	"errors"
	"time"
)

// Sentinel errors surfaced to callers. Both indicate orchestration bugs
// rather than transient conditions.
var (
	ErrInvalidBudget  = errors.New("invalid budget: total must be positive")
	ErrUnknownSession = errors.New("unknown session")
	ErrSessionExists  = errors.New("session already opened")
)

// Default budget options, applied for zero-valued Options fields.
const (
	DefaultMaxExchanges      = 5
	DefaultWarningThreshold  = 0.7
	DefaultCriticalThreshold = 0.9
)

// TokenUsage holds the token counts for one recorded agent turn.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// normalized returns the usage with Total derived when the caller left it zero.
func (u TokenUsage) normalized() TokenUsage {
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u
}

// AgentCost is an immutable record of one costed agent turn.
type AgentCost struct {
	AgentID       string     `json:"agent_id"`
	AgentName     string     `json:"agent_name"`
	Model         string     `json:"model"`
	Tokens        TokenUsage `json:"tokens"`
	Cost          float64    `json:"cost"`
	Degraded      bool       `json:"degraded,omitempty"` // priced with the fallback cost
	Timestamp     time.Time  `json:"timestamp"`
	SessionID     string     `json:"session_id"`
	InteractionID string     `json:"interaction_id"`
}

// AlertThresholds are fractions of the total budget at which alerts fire.
type AlertThresholds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// SessionBudget is the authoritative spend state for one conversation session.
//
// Invariants: UsedBudget equals the sum of AgentCosts[i].Cost,
// CurrentExchanges equals len(AgentCosts) and never decreases.
// RemainingBudget may go negative to signal overrun.
type SessionBudget struct {
	SessionID        string          `json:"session_id"`
	UserID           string          `json:"user_id"`
	TotalBudget      float64         `json:"total_budget"`
	UsedBudget       float64         `json:"used_budget"`
	RemainingBudget  float64         `json:"remaining_budget"`
	AgentCosts       []AgentCost     `json:"agent_costs"`
	AlertThresholds  AlertThresholds `json:"alert_thresholds"`
	AutoStopEnabled  bool            `json:"auto_stop_enabled"`
	MaxExchanges     int             `json:"max_agent_exchanges"`
	CurrentExchanges int             `json:"current_exchanges"`
	CreatedAt        time.Time       `json:"created_at"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// UsageRatio returns the consumed fraction of the total budget.
func (s *SessionBudget) UsageRatio() float64 {
	if s.TotalBudget <= 0 {
		return 0
	}
	return s.UsedBudget / s.TotalBudget
}

// clone returns a deep copy safe to hand out while the session keeps mutating.
func (s *SessionBudget) clone() SessionBudget {
	out := *s
	out.AgentCosts = append([]AgentCost(nil), s.AgentCosts...)
	return out
}

// Options configures a session at open time. Zero-valued numeric fields take
// the package defaults; the zero Options value as a whole means "all defaults"
// (including AutoStop).
type Options struct {
	AutoStop          bool    `json:"auto_stop"`
	MaxExchanges      int     `json:"max_exchanges"`
	WarningThreshold  float64 `json:"warning_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
}

// DefaultOptions returns the stock session options.
func DefaultOptions() Options {
	return Options{
		AutoStop:          true,
		MaxExchanges:      DefaultMaxExchanges,
		WarningThreshold:  DefaultWarningThreshold,
		CriticalThreshold: DefaultCriticalThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	if o.MaxExchanges <= 0 {
		o.MaxExchanges = DefaultMaxExchanges
	}
	if o.WarningThreshold <= 0 {
		o.WarningThreshold = DefaultWarningThreshold
	}
	if o.CriticalThreshold <= 0 {
		o.CriticalThreshold = DefaultCriticalThreshold
	}
	return o
}

// BudgetStatus classifies a session's usage for summaries and the dashboard.
type BudgetStatus string

const (
	StatusGood     BudgetStatus = "good"
	StatusWarning  BudgetStatus = "warning"
	StatusCritical BudgetStatus = "critical"
)

// Summary is the compact usage view consumed by the orchestrator and UI.
type Summary struct {
	SessionID       string       `json:"session_id"`
	TotalBudget     float64      `json:"total_budget"`
	UsedBudget      float64      `json:"used_budget"`
	RemainingBudget float64      `json:"remaining_budget"`
	UsagePercentage float64      `json:"usage_percentage"`
	ExchangesUsed   int          `json:"exchanges_used"`
	MaxExchanges    int          `json:"max_exchanges"`
	Status          BudgetStatus `json:"status"`
}

// SessionSummary is returned when a session is closed. MessageCount mirrors
// ExchangeCount in this core: only costed turns are accounted here.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	TotalCost     float64   `json:"total_cost"`
	ExchangeCount int       `json:"exchange_count"`
	MessageCount  int       `json:"message_count"`
	OpenedAt      time.Time `json:"opened_at"`
	ClosedAt      time.Time `json:"closed_at"`
}
