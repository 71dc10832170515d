// Engagement admission control.
//
// DESIGN: Decide is a prioritized, short-circuiting rule chain; the order is
// part of the contract. It is a pure function of ledger state, scorecard
// state, estimated cost, and reason classification: no randomness anywhere,
// so identical inputs always produce the identical decision. The decision is
// advisory only. Ledger state may change between decision and commit under
// concurrent candidates, and RecordCost independently re-validates; admission
// is advisory, accounting is not.
package admission

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wesheets/promethios-sub003/internal/budget"
	"github.com/wesheets/promethios-sub003/internal/pricing"
	"github.com/wesheets/promethios-sub003/internal/scorecard"
)

// Decision reason codes, in rule-chain order.
const (
	ReasonInsufficientBudget  = "insufficient_budget"
	ReasonExchangeCapReached  = "exchange_cap_reached"
	ReasonPoorCostBenefit     = "poor_cost_benefit"
	ReasonHighValueEngagement = "high_value_engagement"
	ReasonLowValueEngagement  = "low_value_engagement"
	ReasonDefaultEngagement   = "default_engagement"
)

// Historical performance gate thresholds: agents that have demonstrably cost
// money (average above one cent) while scoring below 6 are rejected.
const (
	minMeaningfulAverageCost = 0.01
	poorValueScoreCutoff     = 6.0
)

// Decision is the advisory engage/reject outcome for one candidate turn.
// It is produced fresh per query and never persisted as ledger state.
type Decision struct {
	AgentID       string  `json:"agent_id"`
	ShouldEngage  bool    `json:"should_engage"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
	EstimatedCost float64 `json:"estimated_cost"`
	ValueScore    float64 `json:"value_score"`
	Justification string  `json:"justification"`
	Degraded      bool    `json:"degraded,omitempty"` // estimator fell back to the flat default cost
}

// SnapshotSource is the ledger view the controller reads. Reads take no
// admission-wide lock; staleness is tolerated by design.
type SnapshotSource interface {
	Snapshot(sessionID string) (budget.SessionBudget, bool)
}

// ScoreSource is the read-only scorecard view.
type ScoreSource interface {
	Get(agentID string) (scorecard.Scorecard, bool)
}

// Controller produces engage/reject decisions for candidate agent turns.
type Controller struct {
	estimator pricing.Estimator
	ledger    SnapshotSource
	scores    ScoreSource
	taxonomy  ReasonTaxonomy
}

// NewController wires the admission controller. All collaborators are
// injected; there are no package-level instances.
func NewController(estimator pricing.Estimator, ledger SnapshotSource, scores ScoreSource, taxonomy ReasonTaxonomy) *Controller {
	return &Controller{
		estimator: estimator,
		ledger:    ledger,
		scores:    scores,
		taxonomy:  taxonomy,
	}
}

// Decide evaluates one candidate turn. ErrUnknownSession is the only hard
// failure; estimator trouble degrades the decision instead of erroring.
func (c *Controller) Decide(sessionID, agentID, candidateMessage, engagementReason, model string) (Decision, error) {
	snap, ok := c.ledger.Snapshot(sessionID)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", budget.ErrUnknownSession, sessionID)
	}

	estimated, degraded := c.estimate(model, candidateMessage)
	d := c.runChain(&snap, agentID, engagementReason, estimated)
	d.EstimatedCost = estimated
	if degraded {
		// Pricing uncertainty biases toward denial: accepts lose confidence,
		// rejections keep theirs.
		d.Degraded = true
		if d.ShouldEngage && d.Confidence > 0.5 {
			d.Confidence = 0.5
		}
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("agent_id", agentID).
		Bool("should_engage", d.ShouldEngage).
		Str("reasoning", d.Reasoning).
		Float64("estimated_cost", d.EstimatedCost).
		Float64("confidence", d.Confidence).
		Msg("admission decision")

	return d, nil
}

// estimate prices the candidate message, degrading to the conservative flat
// default on estimator failure. The deny bias comes from the default being
// expensive relative to typical turns, not from special-casing the rules.
func (c *Controller) estimate(model, message string) (cost float64, degraded bool) {
	cost, err := c.estimator.EstimateFromText(model, message)
	if err != nil || cost < 0 {
		log.Warn().Err(err).Str("model", model).Msg("text cost estimate unavailable, using fallback")
		return pricing.DefaultFallbackCost, true
	}
	return cost, false
}

// runChain applies the prioritized rules. Earlier rules take precedence and
// stop evaluation.
func (c *Controller) runChain(snap *budget.SessionBudget, agentID, engagementReason string, estimated float64) Decision {
	d := Decision{AgentID: agentID}

	// 1. Budget gate.
	if snap.RemainingBudget < estimated {
		d.Confidence = 0.9
		d.Reasoning = ReasonInsufficientBudget
		d.Justification = fmt.Sprintf("estimated cost $%.4f exceeds remaining budget $%.4f",
			estimated, snap.RemainingBudget)
		return d
	}

	// 2. Exchange-cap gate.
	if snap.CurrentExchanges >= snap.MaxExchanges {
		d.Confidence = 0.8
		d.Reasoning = ReasonExchangeCapReached
		d.Justification = fmt.Sprintf("session used %d of %d agent exchanges",
			snap.CurrentExchanges, snap.MaxExchanges)
		return d
	}

	// 3. Historical performance gate.
	if card, ok := c.scores.Get(agentID); ok {
		if card.AverageCost > minMeaningfulAverageCost && card.ValueScore < poorValueScoreCutoff {
			d.Confidence = 0.7
			d.Reasoning = ReasonPoorCostBenefit
			d.ValueScore = card.ValueScore
			d.Justification = fmt.Sprintf("agent averages $%.4f per turn at value score %.1f",
				card.AverageCost, card.ValueScore)
			return d
		}
	}

	// 4. Reason classification.
	switch c.taxonomy.Classify(engagementReason) {
	case ReasonHighValue:
		d.ShouldEngage = true
		d.Confidence = 0.9
		d.ValueScore = 9
		d.Reasoning = ReasonHighValueEngagement
		d.Justification = fmt.Sprintf("reason %q matches a high-value engagement pattern", engagementReason)
	case ReasonLowValue:
		d.Confidence = 0.8
		d.ValueScore = 2
		d.Reasoning = ReasonLowValueEngagement
		d.Justification = fmt.Sprintf("reason %q matches a low-value engagement pattern", engagementReason)
	default:
		d.ShouldEngage = true
		d.Confidence = 0.5
		d.ValueScore = scorecard.NeutralValueScore
		d.Reasoning = ReasonDefaultEngagement
		d.Justification = "no admission rule matched; engaging with neutral defaults"
	}
	return d
}
