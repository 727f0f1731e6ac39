package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/steamsync/internal/core"
	"github.com/JonMunkholm/steamsync/internal/web/templates"
)

var errNoRun = errors.New("no run has finished yet")

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	State    string          `json:"state"`
	LastRun  *core.RunReport `json:"lastRun,omitempty"`
	Tables   []TableResponse `json:"tables"`
	Entities map[string]int  `json:"entities"`
}

// TableResponse is one table's stored row count.
type TableResponse struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Columns   []string `json:"columns"`
	UniqueKey []string `json:"uniqueKey,omitempty"`
	Rows      int64    `json:"rows"`
	Error     string   `json:"error,omitempty"`
}

// handleStatusPage renders the HTML status page.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ents := s.catalog.Entities()

	data := templates.StatusData{
		State:        s.runner.State().String(),
		Tables:       s.catalog.TableStatuses(ctx),
		SoldPackages: len(ents.SoldPackages),
		WishlistApps: len(ents.WishlistApps),
		FollowerApps: len(ents.FollowerApps),
		Now:          s.now(),
	}
	if last, ok := s.runner.LastReport(); ok {
		data.Last = &last
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Status(data).Render(ctx, w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleHealth reports liveness. It does not touch the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "state": s.runner.State().String()})
}

// handleStatus returns the scheduler state, last report, and table counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ents := s.catalog.Entities()
	resp := StatusResponse{
		State:  s.runner.State().String(),
		Tables: tableResponses(s.catalog.TableStatuses(r.Context())),
		Entities: map[string]int{
			"soldPackages": len(ents.SoldPackages),
			"wishlistApps": len(ents.WishlistApps),
			"followerApps": len(ents.FollowerApps),
		},
	}
	if last, ok := s.runner.LastReport(); ok {
		resp.LastRun = &last
	}
	writeJSON(w, resp)
}

// handleTables returns the stored row count of every table.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, tableResponses(s.catalog.TableStatuses(r.Context())))
}

// handleLastRun returns the most recent run report, or 404 before the first run.
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	last, ok := s.runner.LastReport()
	if !ok {
		writeError(w, http.StatusNotFound, errNoRun.Error(), "RUN_NONE")
		return
	}
	writeJSON(w, last)
}

// handleTriggerRun starts a manual run. A run already in flight yields 409.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if !s.runner.Trigger(r.Context(), core.TriggerManual) {
		writeError(w, http.StatusConflict, "a run is already in progress", "RUN_BUSY")
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func tableResponses(statuses []core.TableStatus) []TableResponse {
	out := make([]TableResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, TableResponse{
			Key:       st.Info.Key,
			Label:     st.Info.Label,
			Columns:   st.Info.Columns,
			UniqueKey: st.Info.UniqueKey,
			Rows:      st.Rows,
			Error:     st.Err,
		})
	}
	return out
}
