// Threshold alert evaluation.
//
// DESIGN: Alerts form a monotonic state machine per session over
// good -> warning -> critical -> exceeded. Re-evaluating on every record
// would re-emit the same alert on each subsequent spend once a threshold is
// crossed, so EvaluateAlerts only emits on upward transitions. The state
// resets only when a new session is opened. The exchange-count warning and
// the per-agent expensive-turn alert latch separately, once each.
package budget

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertKind identifies a threshold alert category.
type AlertKind string

const (
	AlertWarning        AlertKind = "warning"
	AlertCritical       AlertKind = "critical"
	AlertExceeded       AlertKind = "exceeded"
	AlertAgentExpensive AlertKind = "agent_expensive"
)

// ExpensiveTurnFraction is the share of the total budget a single recorded
// turn must reach before an agent_expensive alert fires for that agent.
const ExpensiveTurnFraction = 0.25

// exchangeWarningFraction of MaxExchanges at which the exchange warning fires.
const exchangeWarningFraction = 0.8

// TokenBudgetAlert is an immutable notification of a crossed threshold.
type TokenBudgetAlert struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Kind            AlertKind `json:"kind"`
	Message         string    `json:"message"`
	CurrentUsage    float64   `json:"current_usage"`
	BudgetLimit     float64   `json:"budget_limit"`
	SuggestedAction string    `json:"suggested_action"`
	Timestamp       time.Time `json:"timestamp"`
}

// AlertLevel orders budget alert kinds for the monotonic state machine.
type AlertLevel int

const (
	LevelGood AlertLevel = iota
	LevelWarning
	LevelCritical
	LevelExceeded
)

func (l AlertLevel) kind() AlertKind {
	switch l {
	case LevelCritical:
		return AlertCritical
	case LevelExceeded:
		return AlertExceeded
	default:
		return AlertWarning
	}
}

// AlertState carries the per-session latches between evaluations.
type AlertState struct {
	Level          AlertLevel
	ExchangeWarned bool
	FlaggedAgents  map[string]bool
}

// NewAlertState returns the clean state used when a session is opened.
func NewAlertState() AlertState {
	return AlertState{FlaggedAgents: make(map[string]bool)}
}

// EvaluateAlerts derives threshold alerts from a budget snapshot and the
// just-recorded cost. It is pure: the updated state is returned, not stored.
// Rules are evaluated independently, so one record can raise several alerts
// (e.g. critical and exceeded in the same step).
func EvaluateAlerts(s *SessionBudget, rec AgentCost, st AlertState) ([]TokenBudgetAlert, AlertState) {
	var alerts []TokenBudgetAlert
	now := rec.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	ratio := s.UsageRatio()

	// Budget thresholds, upward transitions only.
	target := st.Level
	if ratio >= s.AlertThresholds.Critical {
		if target < LevelCritical {
			target = LevelCritical
		}
	} else if ratio >= s.AlertThresholds.Warning {
		if target < LevelWarning {
			target = LevelWarning
		}
	}
	if target > st.Level && target >= LevelWarning && target <= LevelCritical {
		kind := target.kind()
		action := "monitor spend and prefer cheaper models"
		if kind == AlertCritical {
			action = "wrap up the conversation or raise the budget"
		}
		alerts = append(alerts, TokenBudgetAlert{
			ID:        uuid.NewString(),
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Kind:      kind,
			Message: fmt.Sprintf("session budget %.1f%% used ($%.4f of $%.4f)",
				ratio*100, s.UsedBudget, s.TotalBudget),
			CurrentUsage:    s.UsedBudget,
			BudgetLimit:     s.TotalBudget,
			SuggestedAction: action,
			Timestamp:       now,
		})
		st.Level = target
	}

	// Exchange cap approach warning, latched once.
	if !st.ExchangeWarned && float64(s.CurrentExchanges) >= exchangeWarningFraction*float64(s.MaxExchanges) {
		alerts = append(alerts, TokenBudgetAlert{
			ID:        uuid.NewString(),
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Kind:      AlertWarning,
			Message: fmt.Sprintf("agent exchanges at %d of %d for this session",
				s.CurrentExchanges, s.MaxExchanges),
			CurrentUsage:    float64(s.CurrentExchanges),
			BudgetLimit:     float64(s.MaxExchanges),
			SuggestedAction: "expect the exchange cap to end agent participation soon",
			Timestamp:       now,
		})
		st.ExchangeWarned = true
	}

	// Overrun, emitted in addition to the threshold alerts above.
	if s.RemainingBudget < 0 && st.Level < LevelExceeded {
		alerts = append(alerts, TokenBudgetAlert{
			ID:        uuid.NewString(),
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Kind:      AlertExceeded,
			Message: fmt.Sprintf("session budget exceeded: $%.4f used of $%.4f (%.1f%%)",
				s.UsedBudget, s.TotalBudget, ratio*100),
			CurrentUsage:    s.UsedBudget,
			BudgetLimit:     s.TotalBudget,
			SuggestedAction: "stop engaging agents for this session",
			Timestamp:       now,
		})
		st.Level = LevelExceeded
	}

	// Single expensive turn, latched per agent.
	if rec.AgentID != "" && !st.FlaggedAgents[rec.AgentID] && s.TotalBudget > 0 &&
		rec.Cost >= ExpensiveTurnFraction*s.TotalBudget {
		alerts = append(alerts, TokenBudgetAlert{
			ID:        uuid.NewString(),
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Kind:      AlertAgentExpensive,
			Message: fmt.Sprintf("agent %s spent $%.4f in one turn (%.1f%% of the session budget)",
				rec.AgentName, rec.Cost, rec.Cost/s.TotalBudget*100),
			CurrentUsage:    rec.Cost,
			BudgetLimit:     s.TotalBudget,
			SuggestedAction: "consider a cheaper model for this agent",
			Timestamp:       now,
		})
		st.FlaggedAgents[rec.AgentID] = true
	}

	return alerts, st
}
