// Package admission decides whether a candidate agent turn may proceed in a
// cost-metered session.
package admission

import "strings"

// ReasonClass is the outcome of classifying an engagement reason.
type ReasonClass int

const (
	ReasonNeutral ReasonClass = iota
	ReasonHighValue
	ReasonLowValue
)

// ReasonTaxonomy holds the externally-configured engagement reason sets.
// Matching is case-insensitive substring matching, so a reason like
// "possible factual error in step 3" matches the "factual error" entry.
// High-value entries win when a reason matches both sets.
type ReasonTaxonomy struct {
	HighValue []string `yaml:"high_value" json:"high_value"`
	LowValue  []string `yaml:"low_value" json:"low_value"`
}

// DefaultTaxonomy returns the stock reason sets. Deployments tune these via
// configuration; tests swap them wholesale.
func DefaultTaxonomy() ReasonTaxonomy {
	return ReasonTaxonomy{
		HighValue: []string{
			"factual error",
			"safety concern",
			"expertise gap",
			"logical inconsistency",
			"missing perspective",
		},
		LowValue: []string{
			"agreement",
			"minor clarification",
			"social pleasantry",
		},
	}
}

// Classify matches an engagement reason against the taxonomy.
func (t ReasonTaxonomy) Classify(reason string) ReasonClass {
	r := strings.ToLower(reason)
	for _, want := range t.HighValue {
		if want != "" && strings.Contains(r, strings.ToLower(want)) {
			return ReasonHighValue
		}
	}
	for _, want := range t.LowValue {
		if want != "" && strings.Contains(r, strings.ToLower(want)) {
			return ReasonLowValue
		}
	}
	return ReasonNeutral
}
