// Package web provides the browser UI and JSON API for cached match
// history, analytics and fetch control.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aoe2scout/internal/domain"
	"aoe2scout/internal/scout"
)

// MatchSnapshot is one row of /api/user/{id}/matches, newest first.
type MatchSnapshot struct {
	GameID   string `json:"game_id"`
	Mode     string `json:"mode"`
	Map      string `json:"map"`
	Duration string `json:"duration"`
	Started  string `json:"started_at,omitempty"`
	Ended    string `json:"ended_at,omitempty"`
	Result   string `json:"result,omitempty"` // "win", "loss", or empty when unknown
}

// MatchList is the JSON response from /api/user/{id}/matches.
type MatchList struct {
	UserID  string          `json:"user_id"`
	Total   int             `json:"total"`
	Matches []MatchSnapshot `json:"matches"`
}

// Handler holds dependencies for web handlers.
type Handler struct {
	svc       *scout.Service
	backfills *scout.BackfillManager
}

// NewHandler creates a web handler.
func NewHandler(svc *scout.Service, backfills *scout.BackfillManager) *Handler {
	return &Handler{svc: svc, backfills: backfills}
}

// RegisterRoutes adds UI and API routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/search", h.handleSearch)
	mux.HandleFunc("GET /api/user/{id}/matches", h.handleMatches)
	mux.HandleFunc("GET /api/user/{id}/stats", h.handleStats)
	mux.HandleFunc("GET /api/user/{id}/sessions", h.handleSessions)
	mux.HandleFunc("GET /api/user/{id}/fetch-status", h.handleFetchStatus)
	mux.HandleFunc("POST /api/user/{id}/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/user/{id}/backfill", h.handleBackfill)
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /player/{id}", h.handlePlayer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// userID validates the path's user ID: numeric aoe2insights profile IDs only.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user ID")
		return "", false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		writeError(w, http.StatusBadRequest, "user ID must be numeric")
		return "", false
	}
	return id, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	results, err := h.svc.SearchPlayers(ctx, query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "search failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	matches, err := h.svc.Matches(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	aliases := h.svc.Aliases(r.Context(), id)
	list := MatchList{UserID: id, Total: len(matches), Matches: []MatchSnapshot{}}
	// Stored oldest first; the UI wants newest first.
	for i := len(matches) - 1; i >= 0; i-- {
		list.Matches = append(list.Matches, snapshotMatch(matches[i], aliases))
	}
	writeJSON(w, http.StatusOK, list)
}

func snapshotMatch(m domain.Match, viewerIDs []string) MatchSnapshot {
	s := MatchSnapshot{
		GameID:   m.GameID,
		Mode:     m.Mode,
		Map:      m.Map,
		Duration: m.Duration,
		Started:  domain.FormatTime(m.StartedAt),
		Ended:    domain.FormatTime(m.EndedAt),
	}
	if won, _, ok := m.Outcome(viewerIDs...); ok {
		if won {
			s.Result = "win"
		} else {
			s.Result = "loss"
		}
	}
	return s
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.RankedStats(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.SessionStats(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleFetchStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	added, err := h.svc.Refresh(ctx, id, 10)
	if err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "new_matches": added})
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	jobID, err := h.backfills.Start(id)
	if errors.Is(err, scout.ErrBackfillRunning) {
		writeJSON(w, http.StatusConflict, map[string]string{"job_id": jobID, "error": "backfill already running"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
