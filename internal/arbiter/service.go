// Package arbiter wires the budget ledger, admission controller, scorecards,
// and persistence into the service surface consumed by the orchestrator.
//
// DESIGN: Persistence is write-behind over a buffered channel drained by a
// single goroutine. A full queue or failing store drops the write with a log
// line; the in-memory ledger remains the source of truth for the session's
// lifetime.
package arbiter

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wesheets/promethios-sub003/internal/admission"
	"github.com/wesheets/promethios-sub003/internal/budget"
	"github.com/wesheets/promethios-sub003/internal/config"
	"github.com/wesheets/promethios-sub003/internal/monitoring"
	"github.com/wesheets/promethios-sub003/internal/pricing"
	"github.com/wesheets/promethios-sub003/internal/scorecard"
	"github.com/wesheets/promethios-sub003/internal/store"
)

// Service is the constructed arbiter: one per process, no package-level
// state, every collaborator injected.
type Service struct {
	ledger     *budget.Ledger
	board      *scorecard.Board
	controller *admission.Controller
	store      store.Store
	metrics    *monitoring.MetricsCollector

	defaults budget.Options

	persist chan persistOp
	done    chan struct{}
}

type persistOp struct {
	collection string
	key        string
	value      any
}

// New constructs the service. A nil store disables persistence.
func New(estimator pricing.Estimator, st store.Store, taxonomy admission.ReasonTaxonomy, defaults budget.Options) *Service {
	if st == nil {
		st = store.NopStore{}
	}
	s := &Service{
		ledger:   budget.NewLedger(estimator),
		board:    scorecard.NewBoard(),
		store:    st,
		metrics:  monitoring.NewMetricsCollector(),
		defaults: defaults,
		persist:  make(chan persistOp, config.DefaultPersistQueueSize),
		done:     make(chan struct{}),
	}
	s.controller = admission.NewController(estimator, s.ledger, s.board, taxonomy)

	s.restoreScorecards()
	go s.persistLoop()
	return s
}

// OpenSessionBudget opens the budget for a new conversation session.
// When no opts are given the service defaults apply; a zero Options value
// falls through to the budget package defaults.
func (s *Service) OpenSessionBudget(sessionID, userID string, totalBudget float64, opts ...budget.Options) (budget.SessionBudget, error) {
	o := s.defaults
	if len(opts) > 0 {
		o = opts[0]
	}
	b, err := s.ledger.Open(sessionID, userID, totalBudget, o)
	if err != nil {
		return budget.SessionBudget{}, err
	}
	s.enqueue(store.CollectionSessions, sessionID, b)
	return b, nil
}

// Decide evaluates one candidate agent turn. Advisory only: the caller must
// still commit real usage through RecordCost, which re-validates.
func (s *Service) Decide(sessionID, agentID, candidateMessage, engagementReason, model string) (admission.Decision, error) {
	d, err := s.controller.Decide(sessionID, agentID, candidateMessage, engagementReason, model)
	if err != nil {
		return admission.Decision{}, err
	}
	s.metrics.RecordDecision(d.ShouldEngage, d.Degraded)
	return d, nil
}

// RecordCost commits the real token usage of a taken turn and returns the
// record plus any alerts it raised. The agent's scorecard is updated with
// the neutral value score.
func (s *Service) RecordCost(sessionID, agentID, agentName, model string, usage budget.TokenUsage) (budget.AgentCost, []budget.TokenBudgetAlert, error) {
	return s.RecordCostValued(sessionID, agentID, agentName, model, usage, scorecard.NeutralValueScore)
}

// RecordCostValued is RecordCost with an explicit value score, letting the
// orchestrator feed an admission decision's value assessment back into the
// agent's scorecard.
func (s *Service) RecordCostValued(sessionID, agentID, agentName, model string, usage budget.TokenUsage, valueScore float64) (budget.AgentCost, []budget.TokenBudgetAlert, error) {
	rec, alerts, err := s.ledger.RecordCost(sessionID, agentID, agentName, model, usage)
	if err != nil {
		return budget.AgentCost{}, nil, err
	}
	s.metrics.RecordCost(rec.Cost, len(alerts))

	card := s.board.Update(agentID, agentName, rec.Cost, valueScore)

	if snap, ok := s.ledger.Snapshot(sessionID); ok {
		s.enqueue(store.CollectionSessions, sessionID, snap)
	}
	s.enqueue(store.CollectionScorecards, agentID, card)
	for _, a := range alerts {
		s.enqueue(store.CollectionAlerts, a.ID, a)
	}

	return rec, alerts, nil
}

// GetSnapshot returns a read-only copy of a session budget.
func (s *Service) GetSnapshot(sessionID string) (budget.SessionBudget, bool) {
	return s.ledger.Snapshot(sessionID)
}

// GetBudgetSummary returns the compact usage view for a session.
func (s *Service) GetBudgetSummary(sessionID string) (budget.Summary, error) {
	return s.ledger.Summary(sessionID)
}

// CloseSession ends a session and persists its final state.
func (s *Service) CloseSession(sessionID string) (budget.SessionSummary, error) {
	sum, err := s.ledger.Close(sessionID)
	if err != nil {
		return budget.SessionSummary{}, err
	}
	if snap, ok := s.ledger.Snapshot(sessionID); ok {
		s.enqueue(store.CollectionSessions, sessionID, snap)
	}
	return sum, nil
}

// Sessions returns snapshots of every session, for the dashboard.
func (s *Service) Sessions() []budget.SessionBudget {
	return s.ledger.Sessions()
}

// Scorecards returns every agent scorecard.
func (s *Service) Scorecards() []scorecard.Scorecard {
	return s.board.All()
}

// Metrics exposes the operational counters.
func (s *Service) Metrics() *monitoring.MetricsCollector {
	return s.metrics
}

// Shutdown drains the persistence queue and closes the store.
func (s *Service) Shutdown() {
	close(s.persist)
	<-s.done
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
}

// enqueue hands a document to the write-behind worker without blocking.
func (s *Service) enqueue(collection, key string, value any) {
	select {
	case s.persist <- persistOp{collection: collection, key: key, value: value}:
	default:
		log.Warn().
			Str("collection", collection).
			Str("key", key).
			Msg("persistence queue full, dropping write")
	}
}

func (s *Service) persistLoop() {
	defer close(s.done)
	for op := range s.persist {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPersistTimeout)
		err := s.store.Put(ctx, op.collection, op.key, op.value)
		cancel()
		if err != nil {
			log.Warn().
				Err(err).
				Str("collection", op.collection).
				Str("key", op.key).
				Msg("persistence write failed")
		}
	}
}

// restoreScorecards rehydrates agent reputations from the store at startup.
// Session budgets are deliberately not restored: a session's ledger lives
// and dies with the process that opened it.
func (s *Service) restoreScorecards() {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPersistTimeout)
	defer cancel()

	err := s.store.List(ctx, store.CollectionScorecards, func(key string, raw []byte) error {
		var card scorecard.Scorecard
		if err := json.Unmarshal(raw, &card); err != nil {
			log.Warn().Err(err).Str("agent_id", key).Msg("skipping undecodable scorecard")
			return nil
		}
		s.board.Restore(card)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("scorecard restore failed")
	}
}
