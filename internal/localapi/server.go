// Package localapi exposes the orchestration layer over a local HTTP
// API plus a websocket feed. Every inbound backend event maps to one
// store mutation; every committed mutation pushes one notice to the
// attached UI clients.
package localapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"crewdesk/cli/internal/chatstore"
	"crewdesk/cli/internal/global"
	"crewdesk/cli/internal/historydb"
	"crewdesk/cli/internal/protocol"
	"crewdesk/cli/internal/registry"
	"crewdesk/cli/internal/taskstate"
)

type ProjectRegistry interface {
	CreateProject(name string) string
	GetProjectByID(projectID string) (registry.ProjectInfo, bool)
	GetAllProjects() []registry.ProjectInfo
	RemoveProject(projectID string) bool
	SetActiveProject(projectID string) bool
	ActiveProjectID() string
	GetActiveChatStore() *chatstore.Store
	GetChatStore(projectID, chatID string) *chatstore.Store
	GetAllChatStores(projectID string) []registry.ChatStoreRef
	AddChatStore(projectID string) (string, *chatstore.Store)
	SetActiveChatStore(projectID, chatID string) bool
	SetHistoryID(projectID, historyID string)
	GetHistoryID(projectID string) string
	OngoingProjects() []registry.OngoingProject
}

type HistoryStore interface {
	SaveSnapshot(projectID, projectName string, rec *taskstate.Record) (string, error)
	ListSummaries(limit int) ([]historydb.Summary, error)
	GroupedByProject() ([]historydb.ProjectGroup, error)
	DeleteEntry(historyID string) error
	DeleteProject(projectID string) error
}

type ReplayRunner interface {
	Replay(ctx context.Context, projectID, question, historyID string, taskIDs []string) error
}

// SavedProjects persists project-to-snapshot bindings across restarts.
// Optional; a nil store disables resumption listings.
type SavedProjects interface {
	List() ([]global.SavedProject, error)
	Upsert(p global.SavedProject) error
	Remove(projectID string) error
}

type Deps struct {
	Registry ProjectRegistry
	History  HistoryStore
	Replay   ReplayRunner
	Saved    SavedProjects
	Logger   *slog.Logger
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.registerEventRoutes()
	s.registerTaskRoutes()
	s.registerProjectRoutes()
	s.registerHistoryRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

// notifyCommitted publishes one notice for a mutation that changed
// store state. Silent no-ops never reach here.
func (s *Server) notifyCommitted(projectID, chatID, taskID string, st *chatstore.Store) {
	s.hub.Publish(protocol.Notice{
		ProjectID:   projectID,
		ChatID:      chatID,
		TaskID:      taskID,
		UpdateCount: st.UpdateCount(),
	})
}

// resolveStore picks the addressed chat store, defaulting to the
// active project's active chat when ids are omitted.
func (s *Server) resolveStore(projectID, chatID string) (string, string, *chatstore.Store) {
	if projectID == "" {
		projectID = s.deps.Registry.ActiveProjectID()
	}
	if chatID == "" {
		info, ok := s.deps.Registry.GetProjectByID(projectID)
		if !ok {
			return projectID, "", nil
		}
		chatID = info.ActiveChatID
	}
	return projectID, chatID, s.deps.Registry.GetChatStore(projectID, chatID)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
