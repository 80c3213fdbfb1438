package localapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (s *Server) registerProjectRoutes() {
	s.mux.HandleFunc("/api/v1/projects", s.handleProjects)
	s.mux.HandleFunc("/api/v1/projects/", s.handleProjectByID)
	s.mux.HandleFunc("/api/v1/projects/active", s.handleProjectsActive)
	s.mux.HandleFunc("/api/v1/projects/ongoing", s.handleProjectsOngoing)
	s.mux.HandleFunc("/api/v1/projects/saved", s.handleProjectsSaved)
	s.mux.HandleFunc("/api/v1/chats", s.handleChats)
	s.mux.HandleFunc("/api/v1/chats/active", s.handleChatsActive)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondOK(w, s.deps.Registry.GetAllProjects())
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		projectID := s.deps.Registry.CreateProject(req.Name)
		info, _ := s.deps.Registry.GetProjectByID(projectID)
		respondOK(w, info)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimPrefix(r.URL.Path, "/api/v1/projects/")
	if projectID == "" || strings.Contains(projectID, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		info, ok := s.deps.Registry.GetProjectByID(projectID)
		if !ok {
			respondError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "unknown project id")
			return
		}
		respondOK(w, info)
	case http.MethodDelete:
		// History rows go first so a crash between the two steps
		// leaves the project visible rather than orphaning rows.
		if err := s.deps.History.DeleteProject(projectID); err != nil {
			respondError(w, http.StatusInternalServerError, "HISTORY_DELETE_FAILED", err.Error())
			return
		}
		s.deps.Registry.RemoveProject(projectID)
		if s.deps.Saved != nil {
			if err := s.deps.Saved.Remove(projectID); err != nil {
				s.deps.Logger.Warn("saved project entry not removed", "project_id", projectID, "error", err)
			}
		}
		respondOK(w, map[string]any{"removed": true})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleProjectsActive(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projectID := s.deps.Registry.ActiveProjectID()
		if projectID == "" {
			respondOK(w, nil)
			return
		}
		info, _ := s.deps.Registry.GetProjectByID(projectID)
		respondOK(w, info)
	case http.MethodPost:
		var req struct {
			ProjectID string   `json:"project_id"`
			Question  string   `json:"question,omitempty"`
			HistoryID string   `json:"history_id,omitempty"`
			TaskIDs   []string `json:"task_ids,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		if req.ProjectID == "" {
			respondError(w, http.StatusBadRequest, "INVALID_PROJECT", "project_id is required")
			return
		}
		if req.HistoryID != "" {
			// Activation from the history sidebar: rehydrate when the
			// project is gone, reattach in place when it still lives.
			if err := s.deps.Replay.Replay(r.Context(), req.ProjectID, req.Question, req.HistoryID, req.TaskIDs); err != nil {
				s.deps.Logger.Warn("replay activated with partial history",
					"project_id", req.ProjectID, "error", err)
			}
		} else if !s.deps.Registry.SetActiveProject(req.ProjectID) {
			respondError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "unknown project id")
			return
		}
		respondOK(w, map[string]any{"active_project_id": s.deps.Registry.ActiveProjectID()})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleProjectsOngoing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	respondOK(w, s.deps.Registry.OngoingProjects())
}

func (s *Server) handleProjectsSaved(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.Saved == nil {
		respondOK(w, []any{})
		return
	}
	list, err := s.deps.Saved.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SAVED_READ_FAILED", err.Error())
		return
	}
	respondOK(w, list)
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projectID := r.URL.Query().Get("project_id")
		if projectID == "" {
			projectID = s.deps.Registry.ActiveProjectID()
		}
		refs := s.deps.Registry.GetAllChatStores(projectID)
		chatIDs := make([]string, 0, len(refs))
		for _, ref := range refs {
			chatIDs = append(chatIDs, ref.ChatID)
		}
		respondOK(w, map[string]any{"project_id": projectID, "chat_ids": chatIDs})
	case http.MethodPost:
		var req struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		if req.ProjectID == "" {
			req.ProjectID = s.deps.Registry.ActiveProjectID()
		}
		chatID, st := s.deps.Registry.AddChatStore(req.ProjectID)
		if st == nil {
			respondError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "unknown project id")
			return
		}
		respondOK(w, map[string]any{"project_id": req.ProjectID, "chat_id": chatID})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleChatsActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req struct {
		ProjectID string `json:"project_id"`
		ChatID    string `json:"chat_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = s.deps.Registry.ActiveProjectID()
	}
	if !s.deps.Registry.SetActiveChatStore(req.ProjectID, req.ChatID) {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "unknown project or chat id")
		return
	}
	respondOK(w, map[string]any{"project_id": req.ProjectID, "chat_id": req.ChatID})
}
