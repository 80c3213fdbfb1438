// Package registry is the single mutable root of the orchestration
// layer: it owns every project and its chat stores, tracks which pair
// is active, and hands the UI the one store it should be reading.
// Construct one per process (or per test) and tear it down explicitly;
// nothing here lives in package-level state.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"crewdesk/cli/internal/chatstore"
	"crewdesk/cli/internal/taskstate"
)

// ProjectInfo is the read-only view of a project handed to callers.
type ProjectInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ActiveChatID string `json:"active_chat_id,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// ChatStoreRef pairs a session id with its store.
type ChatStoreRef struct {
	ChatID string
	Store  *chatstore.Store
}

// OngoingProject aggregates the live, unfinished work inside one
// project for the history sidebar.
type OngoingProject struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	TaskCount   int    `json:"task_count"`
	TotalTokens int    `json:"total_tokens"`
	LastPrompt  string `json:"last_prompt"`
}

type project struct {
	id           string
	name         string
	createdAt    int64
	chatStores   map[string]*chatstore.Store
	chatOrder    []string
	activeChatID string
}

// Registry owns projects keyed by id plus the active selection.
type Registry struct {
	mu              sync.Mutex
	projects        map[string]*project
	order           []string
	activeProjectID string
	historyIDs      map[string]string
	logger          *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		projects:   map[string]*project{},
		historyIDs: map[string]string{},
		logger:     logger,
	}
}

// CreateProject adds a project with one fresh chat store and activates
// it. If the currently active project has not been used yet (no task
// carries a message in any of its stores) it is renamed and reused
// instead, so mashing "new project" cannot pile up blank projects.
func (r *Registry) CreateProject(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if active, ok := r.projects[r.activeProjectID]; ok && projectIsEmpty(active) {
		if name != "" {
			active.name = name
		}
		return active.id
	}

	p := &project{
		id:         uuid.NewString(),
		name:       name,
		createdAt:  time.Now().UTC().Unix(),
		chatStores: map[string]*chatstore.Store{},
	}
	r.addChatStoreLocked(p)
	r.projects[p.id] = p
	r.order = append(r.order, p.id)
	r.activeProjectID = p.id
	r.logger.Debug("project created", "project_id", p.id, "name", name)
	return p.id
}

// CreateProjectWithID inserts a project under a caller-supplied id,
// used by replay when the backend already named the project. Returns
// false if the id is taken.
func (r *Registry) CreateProjectWithID(projectID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if projectID == "" {
		return false
	}
	if _, exists := r.projects[projectID]; exists {
		return false
	}
	p := &project{
		id:         projectID,
		name:       name,
		createdAt:  time.Now().UTC().Unix(),
		chatStores: map[string]*chatstore.Store{},
	}
	r.addChatStoreLocked(p)
	r.projects[projectID] = p
	r.order = append(r.order, projectID)
	return true
}

// GetProjectByID returns the project view, reporting existence.
func (r *Registry) GetProjectByID(projectID string) (ProjectInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return ProjectInfo{}, false
	}
	return infoOf(p), true
}

// GetAllProjects lists projects in creation order.
func (r *Registry) GetAllProjects() []ProjectInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProjectInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, infoOf(r.projects[id]))
	}
	return out
}

// RemoveProject drops a project and detaches all of its chat stores.
// Removing the active project clears the active selection.
func (r *Registry) RemoveProject(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return false
	}
	p.chatStores = map[string]*chatstore.Store{}
	p.chatOrder = nil
	delete(r.projects, projectID)
	delete(r.historyIDs, projectID)
	for i, id := range r.order {
		if id == projectID {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	if r.activeProjectID == projectID {
		r.activeProjectID = ""
	}
	r.logger.Debug("project removed", "project_id", projectID)
	return true
}

// SetActiveProject switches which project the UI reads. Unknown ids
// are ignored.
func (r *Registry) SetActiveProject(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return false
	}
	r.activeProjectID = projectID
	return true
}

// ActiveProjectID returns the current selection, empty if none.
func (r *Registry) ActiveProjectID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeProjectID
}

// GetActiveChatStore resolves the active project's active session
// store. Every UI surface reads through this accessor, so switching
// projects swaps what the whole UI sees without any re-subscription.
func (r *Registry) GetActiveChatStore() *chatstore.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[r.activeProjectID]
	if !ok {
		return nil
	}
	return p.chatStores[p.activeChatID]
}

// GetChatStore resolves one session store inside a project.
func (r *Registry) GetChatStore(projectID, chatID string) *chatstore.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil
	}
	return p.chatStores[chatID]
}

// GetAllChatStores lists a project's session stores in creation order.
func (r *Registry) GetAllChatStores(projectID string) []ChatStoreRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil
	}
	out := make([]ChatStoreRef, 0, len(p.chatOrder))
	for _, chatID := range p.chatOrder {
		out = append(out, ChatStoreRef{ChatID: chatID, Store: p.chatStores[chatID]})
	}
	return out
}

// AddChatStore opens a new session inside a project and makes it the
// project's active session.
func (r *Registry) AddChatStore(projectID string) (string, *chatstore.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return "", nil
	}
	chatID := r.addChatStoreLocked(p)
	return chatID, p.chatStores[chatID]
}

// SetActiveChatStore switches the active session within a project.
func (r *Registry) SetActiveChatStore(projectID, chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return false
	}
	if _, ok := p.chatStores[chatID]; !ok {
		return false
	}
	p.activeChatID = chatID
	return true
}

// SetHistoryID associates a project with the backend's persisted
// history identifier.
func (r *Registry) SetHistoryID(projectID, historyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if historyID == "" {
		delete(r.historyIDs, projectID)
		return
	}
	r.historyIDs[projectID] = historyID
}

// GetHistoryID returns the last-known history identifier for a
// project, empty when none is recorded.
func (r *Registry) GetHistoryID(projectID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyIDs[projectID]
}

// OngoingProjects aggregates unfinished live tasks across every
// project, sorted by project creation order. Projects whose work is
// all finished (or replayed) are excluded.
func (r *Registry) OngoingProjects() []OngoingProject {
	// Per-project fields are only safe to read under the lock; the
	// store snapshots happen after release so subscriber-driven reads
	// cannot deadlock against concurrent registry calls.
	type projectView struct {
		id     string
		name   string
		stores []*chatstore.Store
	}
	r.mu.Lock()
	views := make([]projectView, 0, len(r.order))
	for _, id := range r.order {
		p := r.projects[id]
		v := projectView{id: p.id, name: p.name}
		for _, chatID := range p.chatOrder {
			v.stores = append(v.stores, p.chatStores[chatID])
		}
		views = append(views, v)
	}
	r.mu.Unlock()

	out := make([]OngoingProject, 0, len(views))
	for _, v := range views {
		agg := OngoingProject{ProjectID: v.id, ProjectName: v.name}
		for _, st := range v.stores {
			snap := st.GetState()
			for _, taskID := range snap.Order {
				rec := snap.Tasks[taskID]
				if rec.Status == taskstate.StatusFinished || rec.Type == taskstate.TypeReplay {
					continue
				}
				agg.TaskCount++
				agg.TotalTokens += rec.Tokens
				if agg.LastPrompt == "" {
					agg.LastPrompt = rec.FirstPrompt()
				}
			}
		}
		if agg.TaskCount > 0 {
			out = append(out, agg)
		}
	}
	return out
}

// Teardown drops every project. Intended for process shutdown and test
// isolation.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = map[string]*project{}
	r.order = nil
	r.historyIDs = map[string]string{}
	r.activeProjectID = ""
}

func (r *Registry) addChatStoreLocked(p *project) string {
	chatID := uuid.NewString()
	p.chatStores[chatID] = chatstore.New()
	p.chatOrder = append(p.chatOrder, chatID)
	p.activeChatID = chatID
	return chatID
}

func infoOf(p *project) ProjectInfo {
	return ProjectInfo{ID: p.id, Name: p.name, ActiveChatID: p.activeChatID, CreatedAt: p.createdAt}
}

// projectIsEmpty reports whether no message was ever sent in any of
// the project's sessions.
func projectIsEmpty(p *project) bool {
	for _, store := range p.chatStores {
		snap := store.GetState()
		for _, rec := range snap.Tasks {
			if len(rec.Messages) > 0 {
				return false
			}
		}
	}
	return true
}
