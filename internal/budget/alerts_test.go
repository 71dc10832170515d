package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalBudget(used float64) *SessionBudget {
	return &SessionBudget{
		SessionID:        "s1",
		UserID:           "u1",
		TotalBudget:      10,
		UsedBudget:       used,
		RemainingBudget:  10 - used,
		AlertThresholds:  AlertThresholds{Warning: 0.7, Critical: 0.9},
		MaxExchanges:     100,
		CurrentExchanges: 1,
	}
}

func TestEvaluateAlerts_BelowThresholdsIsSilent(t *testing.T) {
	alerts, st := EvaluateAlerts(evalBudget(5), AgentCost{AgentID: "a1"}, NewAlertState())
	assert.Empty(t, alerts)
	assert.Equal(t, LevelGood, st.Level)
}

func TestEvaluateAlerts_UpwardTransitionsOnly(t *testing.T) {
	st := NewAlertState()

	alerts, st := EvaluateAlerts(evalBudget(7.5), AgentCost{AgentID: "a1"}, st)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertWarning, alerts[0].Kind)
	assert.Equal(t, LevelWarning, st.Level)

	// Same band again: nothing.
	alerts, st = EvaluateAlerts(evalBudget(8.0), AgentCost{AgentID: "a1"}, st)
	assert.Empty(t, alerts)

	// Crossing into critical emits once.
	alerts, st = EvaluateAlerts(evalBudget(9.2), AgentCost{AgentID: "a1"}, st)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCritical, alerts[0].Kind)

	alerts, _ = EvaluateAlerts(evalBudget(9.5), AgentCost{AgentID: "a1"}, st)
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_CriticalAndExceededTogether(t *testing.T) {
	// One big jump from good straight past the budget.
	alerts, st := EvaluateAlerts(evalBudget(12), AgentCost{AgentID: "a1"}, NewAlertState())

	require.Len(t, alerts, 2)
	assert.Equal(t, AlertCritical, alerts[0].Kind)
	assert.Equal(t, AlertExceeded, alerts[1].Kind)
	assert.Equal(t, LevelExceeded, st.Level)

	// And never again for this session.
	alerts, _ = EvaluateAlerts(evalBudget(13), AgentCost{AgentID: "a1"}, st)
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_MessagesEmbedNumbers(t *testing.T) {
	alerts, _ := EvaluateAlerts(evalBudget(7.5), AgentCost{AgentID: "a1"}, NewAlertState())
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "75.0%")
	assert.Contains(t, alerts[0].Message, "$7.5000")
	assert.Contains(t, alerts[0].Message, "$10.0000")
	assert.NotEmpty(t, alerts[0].ID)
	assert.Equal(t, "s1", alerts[0].SessionID)
	assert.Equal(t, "u1", alerts[0].UserID)
}

func TestEvaluateAlerts_ExchangeWarningLatch(t *testing.T) {
	b := evalBudget(1)
	b.MaxExchanges = 5
	b.CurrentExchanges = 4

	alerts, st := EvaluateAlerts(b, AgentCost{AgentID: "a1"}, NewAlertState())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertWarning, alerts[0].Kind)
	assert.Contains(t, alerts[0].Message, "4 of 5")
	assert.True(t, st.ExchangeWarned)

	b.CurrentExchanges = 5
	alerts, _ = EvaluateAlerts(b, AgentCost{AgentID: "a1"}, st)
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_AgentExpensive(t *testing.T) {
	b := evalBudget(3)
	rec := AgentCost{
		AgentID:   "a1",
		AgentName: "Critic",
		Cost:      3, // 30% of the $10 budget in one turn
		Timestamp: time.Now(),
	}

	alerts, st := EvaluateAlerts(b, rec, NewAlertState())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAgentExpensive, alerts[0].Kind)
	assert.Contains(t, alerts[0].Message, "Critic")
	assert.Contains(t, alerts[0].Message, "30.0%")
	assert.True(t, st.FlaggedAgents["a1"])
}
