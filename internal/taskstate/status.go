package taskstate

// Status is the lifecycle vocabulary shared by task-level state and
// per-subtask run state. The backend vocabulary evolves; values outside
// this set are carried through untouched and classified as ongoing.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusBlocked   Status = "blocked"
	StatusSkipped   Status = "skipped"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusFinished  Status = "finished"

	// StatusNone is the zero value emitted for subtasks the backend has
	// not touched yet.
	StatusNone Status = ""
)

// Terminal reports whether a task-level status accepts no further
// transitions.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// CanTransition reports whether a task-level move from one status to
// another is legal. Same-state moves are allowed so that pause on an
// already-paused task stays a no-op instead of an error.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		// A task can end before it ever starts: the backend may answer
		// a prompt directly without proposing sub-tasks. The store
		// rejects this shortcut when a plan exists.
		return to == StatusRunning || to == StatusFinished || to == StatusFailed
	case StatusRunning:
		return to == StatusWaiting || to == StatusPaused || to == StatusFinished || to == StatusFailed
	case StatusWaiting:
		return to == StatusRunning || to == StatusFinished || to == StatusFailed
	case StatusPaused:
		return to == StatusRunning || to == StatusFinished
	default:
		return false
	}
}
