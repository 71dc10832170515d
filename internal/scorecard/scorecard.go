// Package scorecard keeps per-agent rolling cost/value statistics used as an
// admission signal. Cards span sessions: an agent that burned budget for low
// value yesterday starts today with that reputation.
//
// DESIGN: ValueScore is an exponential moving average (weight 0.1 per
// update), which dampens the noise of any single low-value or high-cost turn
// while still reacting within a handful of interactions (time constant of
// roughly ten updates).
package scorecard

import (
	"math"
	"sync"
	"time"
)

const (
	// NeutralValueScore is the starting score for a never-seen agent, on
	// the 1-10 value scale.
	NeutralValueScore = 5.0

	// emaWeight is the weight given to each new value observation.
	emaWeight = 0.1

	// costBenefitFloor prevents division blowups for near-free agents.
	costBenefitFloor = 0.01
)

// Scorecard holds the rolling statistics for one agent.
type Scorecard struct {
	AgentID           string    `json:"agent_id"`
	AgentName         string    `json:"agent_name"`
	TotalInteractions int       `json:"total_interactions"`
	TotalCost         float64   `json:"total_cost"`
	AverageCost       float64   `json:"average_cost"`
	ValueScore        float64   `json:"value_score"`
	CostBenefitRatio  float64   `json:"cost_benefit_ratio"`
	LastActivity      time.Time `json:"last_activity"`
}

// Board owns the scorecards. Safe for concurrent use.
type Board struct {
	mu    sync.RWMutex
	cards map[string]*Scorecard
}

// NewBoard creates an empty scorecard board.
func NewBoard() *Board {
	return &Board{cards: make(map[string]*Scorecard)}
}

// Update folds one costed interaction into the agent's card and returns the
// updated copy. A never-seen agent is initialized neutral before the update
// is applied.
func (b *Board) Update(agentID, agentName string, cost, valueScore float64) Scorecard {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.cards[agentID]
	if !ok {
		c = &Scorecard{
			AgentID:    agentID,
			ValueScore: NeutralValueScore,
		}
		b.cards[agentID] = c
	}
	if agentName != "" {
		c.AgentName = agentName
	}

	c.TotalInteractions++
	c.TotalCost += cost
	c.AverageCost = c.TotalCost / float64(c.TotalInteractions)
	c.ValueScore = (1-emaWeight)*c.ValueScore + emaWeight*valueScore
	c.CostBenefitRatio = c.ValueScore / math.Max(c.AverageCost*100, costBenefitFloor)
	c.LastActivity = time.Now()

	return *c
}

// Get returns a copy of an agent's card.
func (b *Board) Get(agentID string) (Scorecard, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.cards[agentID]
	if !ok {
		return Scorecard{}, false
	}
	return *c, true
}

// All returns copies of every card, for persistence and reporting.
func (b *Board) All() []Scorecard {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Scorecard, 0, len(b.cards))
	for _, c := range b.cards {
		out = append(out, *c)
	}
	return out
}

// Restore seeds a card from persisted state, keeping whichever side has
// seen more interactions. Used at startup to rehydrate from the store.
func (b *Board) Restore(c Scorecard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.cards[c.AgentID]; ok && existing.TotalInteractions >= c.TotalInteractions {
		return
	}
	copied := c
	b.cards[c.AgentID] = &copied
}
