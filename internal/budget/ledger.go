package budget

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wesheets/promethios-sub003/internal/pricing"
)

// Ledger owns all session budget state. It is the only component that
// mutates UsedBudget and CurrentExchanges, and it evaluates alerts
// synchronously inside RecordCost so the next admission decision always
// observes alerts consistent with the latest spend.
type Ledger struct {
	estimator pricing.Estimator

	mu       sync.RWMutex
	sessions map[string]*session
}

// session pairs a budget with its serialization point. The per-session
// mutex orders concurrent RecordCost calls for the same session while
// leaving unrelated sessions fully parallel.
type session struct {
	mu      sync.Mutex
	budget  SessionBudget
	alerts  AlertState
	closed  bool
	summary SessionSummary
}

// NewLedger creates a ledger pricing costs through the given estimator.
func NewLedger(estimator pricing.Estimator) *Ledger {
	return &Ledger{
		estimator: estimator,
		sessions:  make(map[string]*session),
	}
}

// Open creates the budget for a new conversation session.
// Fails with ErrInvalidBudget for a non-positive total and ErrSessionExists
// when the session ID was already opened (closed sessions included: a
// session ID is never reused within one ledger).
func (l *Ledger) Open(sessionID, userID string, totalBudget float64, opts Options) (SessionBudget, error) {
	if totalBudget <= 0 {
		return SessionBudget{}, fmt.Errorf("%w: got %v", ErrInvalidBudget, totalBudget)
	}
	opts = opts.withDefaults()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sessions[sessionID]; ok {
		return SessionBudget{}, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}

	now := time.Now()
	s := &session{
		budget: SessionBudget{
			SessionID:       sessionID,
			UserID:          userID,
			TotalBudget:     totalBudget,
			RemainingBudget: totalBudget,
			AlertThresholds: AlertThresholds{
				Warning:  opts.WarningThreshold,
				Critical: opts.CriticalThreshold,
			},
			AutoStopEnabled: opts.AutoStop,
			MaxExchanges:    opts.MaxExchanges,
			CreatedAt:       now,
			LastUpdated:     now,
		},
		alerts: NewAlertState(),
	}
	l.sessions[sessionID] = s

	log.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Float64("total_budget", totalBudget).
		Int("max_exchanges", opts.MaxExchanges).
		Msg("session budget opened")

	return s.budget.clone(), nil
}

// RecordCost appends the real token usage of a taken turn. This is the
// single point of truth for spend: it prices the usage, updates totals,
// and re-derives alerts under the per-session lock. The write is accepted
// even when it pushes the budget negative (the spend already happened);
// overruns surface as an exceeded alert, never as an error.
func (l *Ledger) RecordCost(sessionID, agentID, agentName, model string, usage TokenUsage) (AgentCost, []TokenBudgetAlert, error) {
	s, err := l.lookup(sessionID)
	if err != nil {
		return AgentCost{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return AgentCost{}, nil, fmt.Errorf("%w: %s is closed", ErrUnknownSession, sessionID)
	}

	usage = usage.normalized()
	cost, degraded := l.price(model, usage)

	rec := AgentCost{
		AgentID:       agentID,
		AgentName:     agentName,
		Model:         model,
		Tokens:        usage,
		Cost:          cost,
		Degraded:      degraded,
		Timestamp:     time.Now(),
		SessionID:     sessionID,
		InteractionID: uuid.NewString(),
	}

	b := &s.budget
	b.AgentCosts = append(b.AgentCosts, rec)
	b.UsedBudget += cost
	b.RemainingBudget = b.TotalBudget - b.UsedBudget
	b.CurrentExchanges = len(b.AgentCosts)
	b.LastUpdated = rec.Timestamp

	alerts, st := EvaluateAlerts(b, rec, s.alerts)
	s.alerts = st

	ev := log.Info().
		Str("session_id", sessionID).
		Str("agent_id", agentID).
		Str("model", model).
		Int("total_tokens", usage.Total).
		Float64("cost", cost).
		Float64("remaining", b.RemainingBudget).
		Int("exchanges", b.CurrentExchanges)
	if degraded {
		ev = ev.Bool("degraded", true)
	}
	ev.Msg("agent cost recorded")

	return rec, alerts, nil
}

// price converts token usage to cost, degrading to the conservative flat
// default when the estimator fails. Pricing failure never blocks accounting.
func (l *Ledger) price(model string, usage TokenUsage) (cost float64, degraded bool) {
	cost, err := l.estimator.Estimate(model, usage.Input, usage.Output)
	if err != nil || math.IsNaN(cost) || cost < 0 {
		log.Warn().
			Err(err).
			Str("model", model).
			Float64("fallback_cost", pricing.DefaultFallbackCost).
			Msg("cost estimate unavailable, using fallback")
		return pricing.DefaultFallbackCost, true
	}
	return cost, false
}

// Snapshot returns a read-only copy of a session's budget. Closed sessions
// still snapshot: termination stops mutation, not observation.
func (l *Ledger) Snapshot(sessionID string) (SessionBudget, bool) {
	l.mu.RLock()
	s, ok := l.sessions[sessionID]
	l.mu.RUnlock()
	if !ok {
		return SessionBudget{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.clone(), true
}

// Sessions returns snapshots of every session, for the dashboard.
func (l *Ledger) Sessions() []SessionBudget {
	l.mu.RLock()
	all := make([]*session, 0, len(l.sessions))
	for _, s := range l.sessions {
		all = append(all, s)
	}
	l.mu.RUnlock()

	out := make([]SessionBudget, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		out = append(out, s.budget.clone())
		s.mu.Unlock()
	}
	return out
}

// Summary returns the compact usage view for a session.
func (l *Ledger) Summary(sessionID string) (Summary, error) {
	s, err := l.lookup(sessionID)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := &s.budget
	ratio := b.UsageRatio()
	status := StatusGood
	switch {
	case ratio >= b.AlertThresholds.Critical:
		status = StatusCritical
	case ratio >= b.AlertThresholds.Warning:
		status = StatusWarning
	}

	return Summary{
		SessionID:       b.SessionID,
		TotalBudget:     b.TotalBudget,
		UsedBudget:      b.UsedBudget,
		RemainingBudget: b.RemainingBudget,
		UsagePercentage: ratio * 100,
		ExchangesUsed:   b.CurrentExchanges,
		MaxExchanges:    b.MaxExchanges,
		Status:          status,
	}, nil
}

// Close ends a session. Idempotent: closing an already-closed session
// returns the original summary and never mutates totals. RecordCost on a
// closed session fails with ErrUnknownSession.
func (l *Ledger) Close(sessionID string) (SessionSummary, error) {
	s, err := l.lookup(sessionID)
	if err != nil {
		return SessionSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.summary, nil
	}

	b := &s.budget
	s.closed = true
	s.summary = SessionSummary{
		SessionID:     b.SessionID,
		UserID:        b.UserID,
		TotalCost:     b.UsedBudget,
		ExchangeCount: b.CurrentExchanges,
		MessageCount:  b.CurrentExchanges,
		OpenedAt:      b.CreatedAt,
		ClosedAt:      time.Now(),
	}

	log.Info().
		Str("session_id", sessionID).
		Float64("total_cost", s.summary.TotalCost).
		Int("exchanges", s.summary.ExchangeCount).
		Msg("session budget closed")

	return s.summary, nil
}

func (l *Ledger) lookup(sessionID string) (*session, error) {
	l.mu.RLock()
	s, ok := l.sessions[sessionID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return s, nil
}
