package localapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"crewdesk/cli/internal/global"
)

func (s *Server) registerHistoryRoutes() {
	s.mux.HandleFunc("/api/v1/history", s.handleHistory)
	s.mux.HandleFunc("/api/v1/history/", s.handleHistoryByID)
	s.mux.HandleFunc("/api/v1/history/summaries", s.handleHistorySummaries)
	s.mux.HandleFunc("/api/v1/history/save", s.handleHistorySave)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	groups, err := s.deps.History.GroupedByProject()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_READ_FAILED", err.Error())
		return
	}
	respondOK(w, groups)
}

func (s *Server) handleHistorySummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	summaries, err := s.deps.History.ListSummaries(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_READ_FAILED", err.Error())
		return
	}
	respondOK(w, summaries)
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	historyID := strings.TrimPrefix(r.URL.Path, "/api/v1/history/")
	if historyID == "" || strings.Contains(historyID, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if err := s.deps.History.DeleteEntry(historyID); err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_DELETE_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"removed": true})
}

func (s *Server) handleHistorySave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req taskScope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	projectID, _, st := s.resolveStore(req.ProjectID, req.ChatID)
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}
	snap := st.GetState()
	rec := snap.Task(req.TaskID)
	if rec == nil {
		rec = snap.ActiveTask()
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "TASK_NOT_FOUND", "no task to persist")
		return
	}
	info, _ := s.deps.Registry.GetProjectByID(projectID)
	historyID, err := s.deps.History.SaveSnapshot(projectID, info.Name, rec)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_SAVE_FAILED", err.Error())
		return
	}
	s.deps.Registry.SetHistoryID(projectID, historyID)
	if s.deps.Saved != nil {
		err := s.deps.Saved.Upsert(global.SavedProject{
			ProjectID: projectID,
			Name:      info.Name,
			HistoryID: historyID,
		})
		if err != nil {
			s.deps.Logger.Warn("saved project entry not written", "project_id", projectID, "error", err)
		}
	}
	respondOK(w, map[string]any{"history_id": historyID})
}
