// HTTP surface for the arbiter service.
//
// Request bodies are parsed with gjson field extraction rather than struct
// unmarshaling: the handlers only pluck a handful of fields and tolerate
// extra ones from newer orchestrator versions.
package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/wesheets/promethios-sub003/internal/arbiter"
	"github.com/wesheets/promethios-sub003/internal/budget"
	"github.com/wesheets/promethios-sub003/internal/config"
)

func newMux(svc *arbiter.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", handleOpenSession(svc))
	mux.HandleFunc("GET /v1/sessions/{id}", handleGetSnapshot(svc))
	mux.HandleFunc("GET /v1/sessions/{id}/summary", handleGetSummary(svc))
	mux.HandleFunc("POST /v1/sessions/{id}/decisions", handleDecide(svc))
	mux.HandleFunc("POST /v1/sessions/{id}/costs", handleRecordCost(svc))
	mux.HandleFunc("POST /v1/sessions/{id}/close", handleCloseSession(svc))

	mux.HandleFunc("GET /dashboard", svc.HandleDashboard)
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Metrics().FullStats())
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func handleOpenSession(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		sessionID := gjson.GetBytes(body, "session_id").String()
		userID := gjson.GetBytes(body, "user_id").String()
		total := gjson.GetBytes(body, "total_budget").Float()
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		var opts []budget.Options
		if o := gjson.GetBytes(body, "options"); o.Exists() {
			opts = append(opts, budget.Options{
				AutoStop:          o.Get("auto_stop").Bool(),
				MaxExchanges:      int(o.Get("max_exchanges").Int()),
				WarningThreshold:  o.Get("warning_threshold").Float(),
				CriticalThreshold: o.Get("critical_threshold").Float(),
			})
		}

		snap, err := svc.OpenSessionBudget(sessionID, userID, total, opts...)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func handleDecide(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		d, err := svc.Decide(
			r.PathValue("id"),
			gjson.GetBytes(body, "agent_id").String(),
			gjson.GetBytes(body, "message").String(),
			gjson.GetBytes(body, "reason").String(),
			gjson.GetBytes(body, "model").String(),
		)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleRecordCost(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		usage := budget.TokenUsage{
			Input:  int(gjson.GetBytes(body, "tokens.input").Int()),
			Output: int(gjson.GetBytes(body, "tokens.output").Int()),
			Total:  int(gjson.GetBytes(body, "tokens.total").Int()),
		}

		var (
			rec    budget.AgentCost
			alerts []budget.TokenBudgetAlert
			err    error
		)
		sessionID := r.PathValue("id")
		agentID := gjson.GetBytes(body, "agent_id").String()
		agentName := gjson.GetBytes(body, "agent_name").String()
		model := gjson.GetBytes(body, "model").String()

		if vs := gjson.GetBytes(body, "value_score"); vs.Exists() {
			rec, alerts, err = svc.RecordCostValued(sessionID, agentID, agentName, model, usage, vs.Float())
		} else {
			rec, alerts, err = svc.RecordCost(sessionID, agentID, agentName, model, usage)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"record": rec,
			"alerts": alerts,
		})
	}
}

func handleGetSnapshot(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := svc.GetSnapshot(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleGetSummary(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.GetBudgetSummary(r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func handleCloseSession(svc *arbiter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.CloseSession(r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(body) > 0 && !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return body, true
}

// writeServiceError maps the core error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, budget.ErrInvalidBudget):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, budget.ErrSessionExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, budget.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
