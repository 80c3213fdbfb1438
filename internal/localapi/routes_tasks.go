package localapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"crewdesk/cli/internal/chatstore"
	"crewdesk/cli/internal/taskstate"
)

func (s *Server) registerTaskRoutes() {
	s.mux.HandleFunc("/api/v1/tasks", s.handleTasks)
	s.mux.HandleFunc("/api/v1/tasks/", s.handleTaskByID)
	s.mux.HandleFunc("/api/v1/tasks/active", s.handleTasksActive)
	s.mux.HandleFunc("/api/v1/tasks/start", s.taskAction((*chatstore.Store).StartTask))
	s.mux.HandleFunc("/api/v1/tasks/pause", s.taskAction((*chatstore.Store).Pause))
	s.mux.HandleFunc("/api/v1/tasks/resume", s.taskAction((*chatstore.Store).Resume))
	s.mux.HandleFunc("/api/v1/tasks/answer", s.handleTaskAnswer)
	s.mux.HandleFunc("/api/v1/tasks/plan", s.handleTaskPlan)
	s.mux.HandleFunc("/api/v1/tasks/view", s.handleTaskView)
}

type taskScope struct {
	ProjectID string `json:"project_id,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	TaskID    string `json:"task_id"`
}

// taskView wraps a record with the derived display fields: the title
// part of the summary, badge counts for both the live runs and the
// pre-start plan, and optionally the runs filtered to one bucket.
type taskView struct {
	*taskstate.Record
	Title        string                 `json:"title,omitempty"`
	RunBuckets   taskstate.BucketCounts `json:"run_buckets"`
	PlanBuckets  taskstate.BucketCounts `json:"plan_buckets"`
	FilteredRuns []taskstate.RunEntry   `json:"filtered_runs,omitempty"`
}

func newTaskView(rec *taskstate.Record, bucket string) taskView {
	view := taskView{
		Record:      rec,
		Title:       rec.SummaryTitle(),
		RunBuckets:  taskstate.CountRuns(rec.TaskRunning),
		PlanBuckets: taskstate.CountPlan(rec.TaskInfo),
	}
	if bucket != "" {
		view.FilteredRuns = taskstate.FilterRuns(rec.TaskRunning, taskstate.Bucket(bucket))
	}
	return view
}

type snapshotPayload struct {
	Tasks        []*taskstate.Record `json:"tasks"`
	ActiveTaskID string              `json:"active_task_id,omitempty"`
	UpdateCount  uint64              `json:"update_count"`
}

func snapshotOf(st *chatstore.Store) snapshotPayload {
	snap := st.GetState()
	tasks := make([]*taskstate.Record, 0, len(snap.Order))
	for _, id := range snap.Order {
		tasks = append(tasks, snap.Tasks[id])
	}
	return snapshotPayload{Tasks: tasks, ActiveTaskID: snap.ActiveTaskID, UpdateCount: snap.UpdateCount}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, _, st := s.resolveStore(r.URL.Query().Get("project_id"), r.URL.Query().Get("chat_id"))
		if st == nil {
			respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
			return
		}
		respondOK(w, snapshotOf(st))
	case http.MethodPost:
		var req struct {
			taskScope
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
		if st == nil {
			respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
			return
		}
		taskID := req.TaskID
		if taskID == "" {
			taskID = uuid.NewString()
		}
		if !st.CreateTask(taskID, req.Prompt) {
			respondError(w, http.StatusConflict, "TASK_EXISTS", "task id already in use")
			return
		}
		s.notifyCommitted(projectID, chatID, taskID, st)
		respondOK(w, map[string]any{"task_id": taskID})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	if taskID == "" || strings.Contains(taskID, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	projectID, chatID, st := s.resolveStore(r.URL.Query().Get("project_id"), r.URL.Query().Get("chat_id"))
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec := st.GetState().Task(taskID)
		if rec == nil {
			respondError(w, http.StatusNotFound, "TASK_NOT_FOUND", "unknown task id")
			return
		}
		respondOK(w, newTaskView(rec, r.URL.Query().Get("bucket")))
	case http.MethodDelete:
		if st.RemoveTask(taskID) {
			s.notifyCommitted(projectID, chatID, taskID, st)
		}
		respondOK(w, map[string]any{"removed": true})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleTasksActive(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, _, st := s.resolveStore(r.URL.Query().Get("project_id"), r.URL.Query().Get("chat_id"))
		if st == nil {
			respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
			return
		}
		rec := st.GetState().ActiveTask()
		if rec == nil {
			respondError(w, http.StatusNotFound, "NO_ACTIVE_TASK", "no active task")
			return
		}
		respondOK(w, newTaskView(rec, r.URL.Query().Get("bucket")))
	case http.MethodPost:
		var req taskScope
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
		if st == nil {
			respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
			return
		}
		if st.SetActiveTask(req.TaskID) {
			s.notifyCommitted(projectID, chatID, req.TaskID, st)
		}
		respondOK(w, map[string]any{"active_task_id": st.GetState().ActiveTaskID})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

// taskAction wraps the single-argument lifecycle mutations that share
// a request shape.
func (s *Server) taskAction(apply func(*chatstore.Store, string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		var req taskScope
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
		if st == nil {
			respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
			return
		}
		committed := apply(st, req.TaskID)
		if committed {
			s.notifyCommitted(projectID, chatID, req.TaskID, st)
		}
		respondOK(w, map[string]any{"applied": committed})
	}
}

func (s *Server) handleTaskAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req struct {
		taskScope
		Content string `json:"content,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}
	committed := false
	if req.Content != "" {
		committed = st.AppendMessage(req.TaskID, taskstate.Message{Role: "user", Content: req.Content}) || committed
	}
	committed = st.ResolveAsk(req.TaskID) || committed
	if committed {
		s.notifyCommitted(projectID, chatID, req.TaskID, st)
	}
	respondOK(w, map[string]any{"applied": committed})
}

func (s *Server) handleTaskPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req struct {
		taskScope
		Action  string `json:"action"`
		Index   int    `json:"index"`
		Content string `json:"content,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}
	var committed bool
	switch req.Action {
	case "add":
		committed = st.AddTaskInfo(req.TaskID, req.Content)
	case "update":
		committed = st.UpdateTaskInfo(req.TaskID, req.Index, req.Content)
	case "delete":
		committed = st.DeleteTaskInfo(req.TaskID, req.Index)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_ACTION", "action must be add, update or delete")
		return
	}
	if committed {
		s.notifyCommitted(projectID, chatID, req.TaskID, st)
	}
	respondOK(w, map[string]any{"applied": committed})
}

func (s *Server) handleTaskView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req struct {
		taskScope
		Workspace    *string `json:"workspace,omitempty"`
		SelectedFile *string `json:"selected_file,omitempty"`
		AgentID      *string `json:"agent_id,omitempty"`
		TakeControl  *bool   `json:"take_control,omitempty"`
		DelaySeconds *int    `json:"delay_seconds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}
	committed := false
	if req.Workspace != nil {
		committed = st.SetActiveWorkSpace(req.TaskID, *req.Workspace) || committed
	}
	if req.SelectedFile != nil {
		committed = st.SetSelectedFile(req.TaskID, *req.SelectedFile) || committed
	}
	if req.AgentID != nil {
		committed = st.SetActiveAgent(req.TaskID, *req.AgentID) || committed
	}
	if req.TakeControl != nil {
		committed = st.SetTakeControl(req.TaskID, *req.TakeControl) || committed
	}
	if req.DelaySeconds != nil {
		committed = st.SetDelayTime(req.TaskID, *req.DelaySeconds) || committed
	}
	if committed {
		s.notifyCommitted(projectID, chatID, req.TaskID, st)
	}
	respondOK(w, map[string]any{"applied": committed})
}
