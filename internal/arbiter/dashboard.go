package arbiter

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HandleDashboard serves the budget dashboard HTML page.
func (s *Service) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sessions := s.Sessions()

	// Sort by last updated (most recent first)
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})

	var totalSpend float64
	var totalExchanges int
	for _, b := range sessions {
		totalSpend += b.UsedBudget
		totalExchanges += b.CurrentExchanges
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>Arbiter - Session Budgets</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: 'SF Mono', 'Fira Code', 'Cascadia Code', monospace; background: #0d1117; color: #c9d1d9; padding: 24px; }
  h1 { color: #58a6ff; font-size: 18px; margin-bottom: 16px; }
  .summary { display: flex; gap: 24px; margin-bottom: 24px; padding: 16px; background: #161b22; border: 1px solid #30363d; border-radius: 6px; }
  .stat-label { font-size: 11px; color: #8b949e; text-transform: uppercase; letter-spacing: 1px; }
  .stat-value { font-size: 24px; font-weight: bold; color: #f0f6fc; }
  .stat-value.cost { color: #ffa657; }
  table { width: 100%; border-collapse: collapse; background: #161b22; border: 1px solid #30363d; border-radius: 6px; overflow: hidden; }
  th { text-align: left; padding: 10px 14px; font-size: 11px; color: #8b949e; text-transform: uppercase; letter-spacing: 1px; background: #0d1117; border-bottom: 1px solid #30363d; }
  td { padding: 10px 14px; font-size: 13px; border-bottom: 1px solid #21262d; }
  tr:last-child td { border-bottom: none; }
  .session-id { color: #58a6ff; }
  .cost { color: #ffa657; font-weight: bold; }
  .bar-container { width: 100px; height: 8px; background: #21262d; border-radius: 4px; overflow: hidden; display: inline-block; vertical-align: middle; margin-right: 8px; }
  .bar { height: 100%; border-radius: 4px; }
  .bar-ok { background: #3fb950; }
  .bar-warn { background: #d29922; }
  .bar-danger { background: #f85149; }
  .empty { text-align: center; padding: 40px; color: #8b949e; }
  .footer { margin-top: 16px; font-size: 11px; color: #484f58; }
</style>
</head>
<body>
<h1>Arbiter - Session Budgets</h1>
<div class="summary">
  <div class="stat">
    <div class="stat-label">Total Spend</div>
    <div class="stat-value cost">`)
	fmt.Fprintf(&b, "$%.4f", totalSpend)
	b.WriteString(`</div>
  </div>
  <div class="stat">
    <div class="stat-label">Sessions</div>
    <div class="stat-value">`)
	fmt.Fprintf(&b, "%d", len(sessions))
	b.WriteString(`</div>
  </div>
  <div class="stat">
    <div class="stat-label">Exchanges</div>
    <div class="stat-value">`)
	fmt.Fprintf(&b, "%d", totalExchanges)
	b.WriteString(`</div>
  </div>
</div>
`)

	if len(sessions) == 0 {
		b.WriteString(`<div class="empty">No session budgets yet</div>`)
	} else {
		b.WriteString(`<table>
<tr><th>Session</th><th>User</th><th>Used / Total</th><th>Usage</th><th>Exchanges</th><th>Updated</th></tr>
`)
		for _, sb := range sessions {
			ratio := sb.UsageRatio()
			barClass := "bar-ok"
			switch {
			case ratio >= sb.AlertThresholds.Critical:
				barClass = "bar-danger"
			case ratio >= sb.AlertThresholds.Warning:
				barClass = "bar-warn"
			}
			width := int(ratio * 100)
			if width > 100 {
				width = 100
			}

			fmt.Fprintf(&b, `<tr>
<td class="session-id">%s</td>
<td>%s</td>
<td class="cost">$%.4f / $%.4f</td>
<td><span class="bar-container"><span class="bar %s" style="width:%d%%"></span></span>%.1f%%</td>
<td>%d / %d</td>
<td>%s</td>
</tr>
`,
				sb.SessionID, sb.UserID, sb.UsedBudget, sb.TotalBudget,
				barClass, width, ratio*100,
				sb.CurrentExchanges, sb.MaxExchanges,
				sb.LastUpdated.Format("15:04:05"))
		}
		b.WriteString("</table>\n")
	}

	fmt.Fprintf(&b, `<div class="footer">refreshes every 5s - %s</div>
</body>
</html>`, time.Now().Format(time.RFC1123))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
