package chatstore

import (
	"github.com/google/uuid"

	"crewdesk/cli/internal/decompose"
	"crewdesk/cli/internal/taskstate"
)

// Ingestion methods fold one transport event into one atomic mutation.
// Every method tolerates unknown task ids silently; the stream outlives
// UI-side removals and must never crash the renderer process. Events
// that straggle in after the task reached a terminal state are dropped
// too: once finished or failed, the record only accepts
// BackfillSummary.

// ApplyDecomposeChunk appends streamed decomposition text. Chunks
// arriving after the decomposition completed are dropped: the raw
// buffer only exists while no finished plan does.
func (s *Store) ApplyDecomposeChunk(taskID, chunk string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() || chunk == "" || len(rec.TaskInfo) > 0 {
			return false
		}
		rec.StreamingDecomposeText += chunk
		return true
	})
}

// ApplyDecomposeComplete parses the accumulated buffer into the plan,
// clears the buffer, and leaves the task awaiting explicit start.
func (s *Store) ApplyDecomposeComplete(taskID, summary string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() {
			return false
		}
		parsed := decompose.Parse(rec.StreamingDecomposeText)
		for _, content := range parsed.Tasks {
			rec.TaskInfo = append(rec.TaskInfo, taskstate.Subtask{
				ID:      uuid.NewString(),
				Content: content,
			})
		}
		rec.StreamingDecomposeText = ""
		if summary != "" {
			rec.SummaryTask = summary
		}
		rec.HasWaitConfirm = true
		return true
	})
}

// ApplyAssignment records an agent taking on subtasks. The first
// assignment moves a pending task to running (the backend started
// autonomously, without an explicit confirm).
func (s *Store) ApplyAssignment(taskID string, agent taskstate.Agent, runs []taskstate.RunEntry) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() || agent.AgentID == "" {
			return false
		}
		replaced := false
		for i := range rec.TaskAssigning {
			if rec.TaskAssigning[i].AgentID == agent.AgentID {
				rec.TaskAssigning[i] = agent
				replaced = true
				break
			}
		}
		if !replaced {
			rec.TaskAssigning = append(rec.TaskAssigning, agent)
		}
		for _, run := range runs {
			run.AgentID = agent.AgentID
			upsertRun(rec, run)
		}
		if rec.Status == taskstate.StatusPending {
			rec.Status = taskstate.StatusRunning
			rec.HasWaitConfirm = false
		}
		rec.ProgressValue = taskstate.ProgressPercent(rec.TaskRunning)
		return true
	})
}

// ApplyRunUpdate upserts one running subtask's state and recomputes the
// derived progress. Entries for ids never seen before are appended; the
// backend may refine the plan while running.
func (s *Store) ApplyRunUpdate(taskID string, run taskstate.RunEntry) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() || run.ID == "" {
			return false
		}
		upsertRun(rec, run)
		syncPlanStatus(rec, run)
		rec.ProgressValue = taskstate.ProgressPercent(rec.TaskRunning)
		return true
	})
}

// ApplyAsk surfaces a human-in-the-loop question and blocks progress.
func (s *Store) ApplyAsk(taskID string, ask taskstate.Ask) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if !taskstate.CanTransition(rec.Status, taskstate.StatusWaiting) {
			return false
		}
		if ask.ID == "" {
			ask.ID = uuid.NewString()
		}
		rec.ActiveAsk = &ask
		rec.Status = taskstate.StatusWaiting
		return true
	})
}

// ResolveAsk clears the pending question after the user answered or
// skipped it and lets the task continue.
func (s *Store) ResolveAsk(taskID string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.ActiveAsk == nil {
			return false
		}
		rec.ActiveAsk = nil
		if rec.Status == taskstate.StatusWaiting {
			rec.Status = taskstate.StatusRunning
		}
		return true
	})
}

// AppendMessage adds a transcript entry.
func (s *Store) AppendMessage(taskID string, msg taskstate.Message) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() || msg.Content == "" {
			return false
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		rec.Messages = append(rec.Messages, msg)
		return true
	})
}

// AddTokens accumulates token usage reported by the backend.
func (s *Store) AddTokens(taskID string, tokens int) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if rec.Status.Terminal() || tokens <= 0 {
			return false
		}
		rec.Tokens += tokens
		return true
	})
}

// ApplyComplete ends the task. A pending ask is cleared first; a
// finished task never carries one. After this only backfill of
// read-only historical fields is accepted.
func (s *Store) ApplyComplete(taskID string, failed bool, summary string) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		target := taskstate.StatusFinished
		if failed {
			target = taskstate.StatusFailed
		}
		// A pending task may only finish directly when no plan exists;
		// with sub-tasks proposed, the assignment phase cannot be
		// skipped.
		if rec.Status == taskstate.StatusPending && len(rec.TaskInfo) > 0 {
			return false
		}
		if rec.Status == taskstate.StatusWaiting || rec.ActiveAsk != nil {
			rec.ActiveAsk = nil
			rec.Status = taskstate.StatusRunning
		}
		if !taskstate.CanTransition(rec.Status, target) || rec.Status == target {
			return false
		}
		rec.Status = target
		if summary != "" {
			rec.SummaryTask = summary
		}
		if !failed {
			rec.ProgressValue = 100
		}
		return true
	})
}

// BackfillSummary sets historical fields on an already-terminal record.
// This is the only mutation a finished task accepts.
func (s *Store) BackfillSummary(taskID, summary string, tokens int) bool {
	return s.mutate(taskID, func(rec *taskstate.Record) bool {
		if !rec.Status.Terminal() {
			return false
		}
		changed := false
		if summary != "" && rec.SummaryTask != summary {
			rec.SummaryTask = summary
			changed = true
		}
		if tokens > 0 && rec.Tokens != tokens {
			rec.Tokens = tokens
			changed = true
		}
		return changed
	})
}

func upsertRun(rec *taskstate.Record, run taskstate.RunEntry) {
	for i := range rec.TaskRunning {
		if rec.TaskRunning[i].ID == run.ID {
			if run.Content != "" {
				rec.TaskRunning[i].Content = run.Content
			}
			if run.AgentID != "" {
				rec.TaskRunning[i].AgentID = run.AgentID
			}
			rec.TaskRunning[i].Status = run.Status
			rec.TaskRunning[i].ReAssignTo = run.ReAssignTo
			return
		}
	}
	rec.TaskRunning = append(rec.TaskRunning, run)
}

// syncPlanStatus mirrors run state back onto the matching plan entry so
// plan-level badges stay truthful after the task started. Run ids come
// from the backend while plan ids are local, so content is the fallback
// key.
func syncPlanStatus(rec *taskstate.Record, run taskstate.RunEntry) {
	for i := range rec.TaskInfo {
		if rec.TaskInfo[i].ID == run.ID || (run.Content != "" && rec.TaskInfo[i].Content == run.Content) {
			rec.TaskInfo[i].Status = run.Status
			rec.TaskInfo[i].ReAssignTo = run.ReAssignTo
			return
		}
	}
}
