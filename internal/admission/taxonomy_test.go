package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		name   string
		reason string
		want   ReasonClass
	}{
		{"high value exact", "factual error", ReasonHighValue},
		{"high value substring", "possible factual error in step 3", ReasonHighValue},
		{"high value case insensitive", "Safety Concern about the plan", ReasonHighValue},
		{"low value", "just expressing agreement", ReasonLowValue},
		{"low value pleasantry", "social pleasantry", ReasonLowValue},
		{"no match", "wants to summarize the thread", ReasonNeutral},
		{"empty reason", "", ReasonNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tax.Classify(tt.reason))
		})
	}
}

func TestClassify_HighValueWinsOverLowValue(t *testing.T) {
	tax := ReasonTaxonomy{
		HighValue: []string{"error"},
		LowValue:  []string{"agreement"},
	}
	// Matches both sets; high value takes precedence.
	assert.Equal(t, ReasonHighValue, tax.Classify("agreement, but there is an error"))
}

func TestClassify_SwappedTaxonomy(t *testing.T) {
	tax := ReasonTaxonomy{
		HighValue: []string{"regulatory risk"},
		LowValue:  []string{"emoji"},
	}
	assert.Equal(t, ReasonHighValue, tax.Classify("flagging a regulatory risk"))
	assert.Equal(t, ReasonLowValue, tax.Classify("wants to add an emoji"))
	// The stock entries are gone once swapped.
	assert.Equal(t, ReasonNeutral, tax.Classify("factual error"))
}
