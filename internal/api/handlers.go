package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/vscpp/internal/actions"
	"github.com/kalambet/vscpp/internal/artifact"
	"github.com/kalambet/vscpp/internal/storage"
)

const maxRequestBodySize = 64 << 10 // 64KB

type TargetRequest struct {
	Path  string `json:"path"`
	Dirty bool   `json:"dirty"`
}

type CleanupRequest struct {
	Confirm bool `json:"confirm"`
}

type AppDeps struct {
	Actions *actions.Service
	Token   string // `vscpp serve` always sets one; empty skips bearer checks
}

// NewAppHandler returns the editor-facing HTTP API.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(RejectBrowserRequests)
		r.Use(BearerAuth(deps.Token))
		r.Post("/annotate", handleTarget(deps.Actions.P4Annotate))
		r.Post("/blame", handleTarget(deps.Actions.GitBlame))
		r.Post("/cleanup", handleCleanup(deps))
		r.Get("/status", handleStatus(deps))
		r.Get("/history", handleHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleTarget(run func(ctx context.Context, t actions.Target) actions.Notice) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TargetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		writeNotice(w, run(r.Context(), actions.Target{Path: req.Path, Dirty: req.Dirty}))
	}
}

func handleCleanup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CleanupRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}

		writeNotice(w, deps.Actions.Cleanup(r.Context(), req.Confirm))
	}
}

func handleStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Actions.Status(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read store: %v", err)
			return
		}
		if st.Categories == nil {
			st.Categories = []artifact.CategoryUsage{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(st)
	}
}

func handleHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		category := r.URL.Query().Get("category")

		rows, err := deps.Actions.History(r.Context(), category, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
			return
		}
		if rows == nil {
			rows = []storage.Artifact{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}
}

// writeNotice maps a notice to a status code: refused actions are 422,
// other failures 500.
func writeNotice(w http.ResponseWriter, n actions.Notice) {
	code := http.StatusOK
	switch {
	case n.IsPrecondition():
		code = http.StatusUnprocessableEntity
	case n.Failed():
		code = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(n)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
