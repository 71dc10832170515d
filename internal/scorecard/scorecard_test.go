package scorecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_FirstSightingStartsNeutral(t *testing.T) {
	b := NewBoard()

	card := b.Update("a1", "Critic", 0.5, 8)
	assert.Equal(t, 1, card.TotalInteractions)
	assert.InDelta(t, 0.5, card.AverageCost, 1e-9)
	// EMA applied on top of the neutral starting score.
	assert.InDelta(t, 0.9*NeutralValueScore+0.1*8, card.ValueScore, 1e-9)
	assert.Equal(t, "Critic", card.AgentName)
	assert.False(t, card.LastActivity.IsZero())
}

func TestUpdate_RunningAverages(t *testing.T) {
	b := NewBoard()

	b.Update("a1", "Critic", 1.0, 5)
	b.Update("a1", "Critic", 2.0, 5)
	card := b.Update("a1", "Critic", 3.0, 5)

	assert.Equal(t, 3, card.TotalInteractions)
	assert.InDelta(t, 6.0, card.TotalCost, 1e-9)
	assert.InDelta(t, 2.0, card.AverageCost, 1e-9)
}

func TestUpdate_ValueScoreConverges(t *testing.T) {
	b := NewBoard()

	var card Scorecard
	for i := 0; i < 20; i++ {
		card = b.Update("a1", "Critic", 0.1, 9)
	}
	// 0.9^20 of the distance from 5 remains: within half a point of 9.
	assert.Greater(t, card.ValueScore, 8.5)
	assert.Less(t, card.ValueScore, 9.0)

	for i := 0; i < 40; i++ {
		card = b.Update("a1", "Critic", 0.1, 9)
	}
	assert.InDelta(t, 9.0, card.ValueScore, 0.05)
}

func TestUpdate_CostBenefitRatio(t *testing.T) {
	b := NewBoard()

	card := b.Update("a1", "Critic", 0.02, 5)
	// averageCost*100 = 2 > floor
	assert.InDelta(t, card.ValueScore/2.0, card.CostBenefitRatio, 1e-9)
}

func TestUpdate_CostBenefitRatioFloor(t *testing.T) {
	b := NewBoard()

	// A free agent must not divide by zero; the 0.01 floor applies.
	card := b.Update("a1", "Critic", 0, 5)
	assert.InDelta(t, card.ValueScore/0.01, card.CostBenefitRatio, 1e-9)
}

func TestGet_MissingAgent(t *testing.T) {
	b := NewBoard()
	_, ok := b.Get("nobody")
	assert.False(t, ok)
}

func TestGet_ReturnsCopy(t *testing.T) {
	b := NewBoard()
	b.Update("a1", "Critic", 1, 5)

	card, ok := b.Get("a1")
	require.True(t, ok)
	card.TotalCost = 999

	fresh, _ := b.Get("a1")
	assert.InDelta(t, 1.0, fresh.TotalCost, 1e-9)
}

func TestRestore_KeepsMoreExperiencedCard(t *testing.T) {
	b := NewBoard()
	b.Update("a1", "Critic", 1, 5)
	b.Update("a1", "Critic", 1, 5)

	// A stale persisted card must not clobber fresher in-memory state.
	b.Restore(Scorecard{AgentID: "a1", TotalInteractions: 1, ValueScore: 9})
	card, _ := b.Get("a1")
	assert.Equal(t, 2, card.TotalInteractions)

	// A richer persisted card wins.
	b.Restore(Scorecard{AgentID: "a1", TotalInteractions: 10, ValueScore: 9})
	card, _ = b.Get("a1")
	assert.Equal(t, 10, card.TotalInteractions)

	b.Restore(Scorecard{AgentID: "a2", TotalInteractions: 4, AgentName: "Researcher"})
	card, ok := b.Get("a2")
	require.True(t, ok)
	assert.Equal(t, "Researcher", card.AgentName)
}

func TestAll(t *testing.T) {
	b := NewBoard()
	b.Update("a1", "Critic", 1, 5)
	b.Update("a2", "Researcher", 2, 7)

	cards := b.All()
	assert.Len(t, cards, 2)
}
