package chatstore

import (
	"time"

	"github.com/google/uuid"

	"crewdesk/cli/internal/taskstate"
)

// CreateTask inserts a pending record seeded with the user prompt and
// makes it the active task. Ids are never reused: inserting an existing
// id is a no-op.
func (s *Store) CreateTask(taskID, prompt string) bool {
	return s.mutateStore(func() bool {
		if taskID == "" {
			return false
		}
		if _, exists := s.tasks[taskID]; exists {
			return false
		}
		rec := &taskstate.Record{
			ID:        taskID,
			Status:    taskstate.StatusPending,
			Type:      taskstate.TypeLive,
			CreatedAt: time.Now().UTC().Unix(),
		}
		if prompt != "" {
			rec.Messages = append(rec.Messages, taskstate.Message{
				ID:        uuid.NewString(),
				Role:      "user",
				Content:   prompt,
				CreatedAt: rec.CreatedAt,
			})
		}
		s.tasks[taskID] = rec
		s.order = append(s.order, taskID)
		s.activeTaskID = taskID
		return true
	})
}

// InsertRecord places a fully built record into the store, used by
// replay hydration where messages and outcomes are replaced wholesale.
func (s *Store) InsertRecord(rec *taskstate.Record) bool {
	return s.mutateStore(func() bool {
		if rec == nil || rec.ID == "" {
			return false
		}
		if _, exists := s.tasks[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		s.tasks[rec.ID] = rec.Clone()
		if s.activeTaskID == "" {
			s.activeTaskID = rec.ID
		}
		return true
	})
}

// RemoveTask deletes a record. If it was the active task the active id
// resets to empty and the caller re-selects.
func (s *Store) RemoveTask(taskID string) bool {
	return s.mutateStore(func() bool {
		if _, ok := s.tasks[taskID]; !ok {
			return false
		}
		delete(s.tasks, taskID)
		for i, id := range s.order {
			if id == taskID {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
		if s.activeTaskID == taskID {
			s.activeTaskID = ""
		}
		return true
	})
}

// SetActiveTask switches UI focus. Unknown ids are ignored; empty
// clears the selection.
func (s *Store) SetActiveTask(taskID string) bool {
	return s.mutateStore(func() bool {
		if taskID != "" {
			if _, ok := s.tasks[taskID]; !ok {
				return false
			}
		}
		if s.activeTaskID == taskID {
			return false
		}
		s.activeTaskID = taskID
		return true
	})
}

func (s *Store) SetActiveWorkSpace(taskID, workspace string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.ActiveWorkSpace == workspace {
			return false
		}
		rec.ActiveWorkSpace = workspace
		return true
	})
}

func (s *Store) SetSelectedFile(taskID, file string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.SelectedFile == file {
			return false
		}
		rec.SelectedFile = file
		return true
	})
}

func (s *Store) SetActiveAgent(taskID, agentID string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.ActiveAgentID == agentID {
			return false
		}
		rec.ActiveAgentID = agentID
		return true
	})
}

func (s *Store) SetTakeControl(taskID string, takeControl bool) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.IsTakeControl == takeControl {
			return false
		}
		rec.IsTakeControl = takeControl
		return true
	})
}

func (s *Store) SetDelayTime(taskID string, seconds int) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.DelayTime == seconds {
			return false
		}
		rec.DelayTime = seconds
		return true
	})
}

// AddTaskInfo appends a plan entry. The plan is only editable before
// the task starts.
func (s *Store) AddTaskInfo(taskID, content string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusPending {
			return false
		}
		rec.TaskInfo = append(rec.TaskInfo, taskstate.Subtask{
			ID:      uuid.NewString(),
			Content: content,
		})
		return true
	})
}

// UpdateTaskInfo rewrites a plan entry's content. Out-of-bounds indexes
// are ignored.
func (s *Store) UpdateTaskInfo(taskID string, index int, content string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusPending {
			return false
		}
		if index < 0 || index >= len(rec.TaskInfo) {
			return false
		}
		if rec.TaskInfo[index].Content == content {
			return false
		}
		rec.TaskInfo[index].Content = content
		return true
	})
}

// DeleteTaskInfo removes a plan entry. Out-of-bounds indexes are
// ignored.
func (s *Store) DeleteTaskInfo(taskID string, index int) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusPending {
			return false
		}
		if index < 0 || index >= len(rec.TaskInfo) {
			return false
		}
		rec.TaskInfo = append(rec.TaskInfo[:index:index], rec.TaskInfo[index+1:]...)
		return true
	})
}

// StartTask confirms the proposed plan and moves the task to running.
// It only acts on a pending task; a waiting task resumes through
// ResolveAsk so the open question is never orphaned.
func (s *Store) StartTask(taskID string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusPending {
			return false
		}
		rec.Status = taskstate.StatusRunning
		rec.HasWaitConfirm = false
		return true
	})
}

// Pause suspends a running task. Pausing an already-paused task changes
// nothing.
func (s *Store) Pause(taskID string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusRunning {
			return false
		}
		rec.Status = taskstate.StatusPaused
		return true
	})
}

// Resume returns a paused task to running. Resuming a running task
// changes nothing.
func (s *Store) Resume(taskID string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status != taskstate.StatusPaused {
			return false
		}
		rec.Status = taskstate.StatusRunning
		return true
	})
}
