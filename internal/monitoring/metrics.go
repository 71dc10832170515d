// Package monitoring provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - decisions/admitted/rejected: admission query outcomes
//   - degraded:                    decisions priced with the fallback cost
//   - records:                     committed cost records
//   - alerts:                      threshold alerts raised
//   - spend:                       total recorded cost
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Admission counters
	decisions atomic.Int64
	admitted  atomic.Int64
	rejected  atomic.Int64
	degraded  atomic.Int64

	// Ledger counters
	records atomic.Int64
	alerts  atomic.Int64

	// Stored as cost * 1e9 (nano-dollars) to use atomic int64 ops
	spendNano atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordDecision records an admission query outcome.
func (mc *MetricsCollector) RecordDecision(admitted, degraded bool) {
	mc.decisions.Add(1)
	if admitted {
		mc.admitted.Add(1)
	} else {
		mc.rejected.Add(1)
	}
	if degraded {
		mc.degraded.Add(1)
	}
}

// RecordCost records a committed cost record and the alerts it raised.
func (mc *MetricsCollector) RecordCost(cost float64, alertCount int) {
	mc.records.Add(1)
	mc.alerts.Add(int64(alertCount))
	mc.spendNano.Add(int64(cost * 1e9))
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string        `json:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartedAt     string        `json:"started_at"`
	Admission     AdmissionStats `json:"admission"`
	Ledger        LedgerStats    `json:"ledger"`
}

// AdmissionStats holds admission query metrics.
type AdmissionStats struct {
	Decisions int64 `json:"decisions"`
	Admitted  int64 `json:"admitted"`
	Rejected  int64 `json:"rejected"`
	Degraded  int64 `json:"degraded"`
}

// LedgerStats holds spend accounting metrics.
type LedgerStats struct {
	CostRecords   int64   `json:"cost_records"`
	AlertsRaised  int64   `json:"alerts_raised"`
	TotalSpendUSD float64 `json:"total_spend_usd"`
}

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Admission: AdmissionStats{
			Decisions: mc.decisions.Load(),
			Admitted:  mc.admitted.Load(),
			Rejected:  mc.rejected.Load(),
			Degraded:  mc.degraded.Load(),
		},
		Ledger: LedgerStats{
			CostRecords:   mc.records.Load(),
			AlertsRaised:  mc.alerts.Load(),
			TotalSpendUSD: float64(mc.spendNano.Load()) / 1e9,
		},
	}
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
