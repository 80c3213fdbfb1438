// Package replay reattaches the UI to past or still-running work. Live
// projects are simply re-activated; everything else is rebuilt from
// persisted history, and a partial rebuild still activates — a degraded
// view beats a frozen one.
package replay

import (
	"context"
	"errors"
	"log/slog"

	"crewdesk/cli/internal/registry"
	"crewdesk/cli/internal/taskstate"
)

// TaskDetail is the persisted outcome of one task as returned by the
// history collaborator.
type TaskDetail struct {
	TaskID   string
	Question string
	Status   taskstate.Status
	Tokens   int
	Summary  string
	Messages []taskstate.Message
	Runs     []taskstate.RunEntry
}

// Fetcher is the history-service contract the coordinator consumes.
type Fetcher interface {
	TaskDetail(ctx context.Context, historyID, taskID string) (TaskDetail, error)
}

type Coordinator struct {
	reg     *registry.Registry
	fetcher Fetcher
	logger  *slog.Logger
}

func NewCoordinator(reg *registry.Registry, fetcher Fetcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{reg: reg, fetcher: fetcher, logger: logger}
}

// Replay activates the project for (projectID, historyID). A project
// already present in the registry is resumed in place: no
// reconstruction, same project on every call. Otherwise a project is
// synthesized, seeded from the question, backfilled from history, and
// activated even if the backfill partially fails.
func (c *Coordinator) Replay(ctx context.Context, projectID, question, historyID string, taskIDs []string) error {
	if projectID == "" {
		return errors.New("project id is required")
	}

	if _, ok := c.reg.GetProjectByID(projectID); ok {
		c.reg.SetHistoryID(projectID, historyID)
		c.reg.SetActiveProject(projectID)
		return nil
	}

	if !c.reg.CreateProjectWithID(projectID, question) {
		return errors.New("project could not be created")
	}
	c.reg.SetHistoryID(projectID, historyID)

	store := c.reg.GetChatStore(projectID, c.activeChatID(projectID))
	if store == nil {
		return errors.New("chat store missing for synthesized project")
	}

	if len(taskIDs) == 0 {
		taskIDs = []string{projectID}
	}
	var fetchErr error
	for _, taskID := range taskIDs {
		rec := &taskstate.Record{
			ID:     taskID,
			Status: taskstate.StatusFinished,
			Type:   taskstate.TypeReplay,
		}
		if question != "" {
			rec.Messages = []taskstate.Message{{Role: "user", Content: question}}
		}
		if c.fetcher != nil {
			detail, err := c.fetcher.TaskDetail(ctx, historyID, taskID)
			if err != nil {
				// Keep the seed record; the UI shows what we have.
				fetchErr = err
				c.logger.Warn("history backfill failed", "project_id", projectID, "task_id", taskID, "error", err)
			} else {
				applyDetail(rec, detail)
			}
		}
		store.InsertRecord(rec)
	}
	if last := store.GetState().Latest(); last != nil {
		store.SetActiveTask(last.ID)
	}

	c.reg.SetActiveProject(projectID)
	return fetchErr
}

func (c *Coordinator) activeChatID(projectID string) string {
	info, ok := c.reg.GetProjectByID(projectID)
	if !ok {
		return ""
	}
	return info.ActiveChatID
}

func applyDetail(rec *taskstate.Record, detail TaskDetail) {
	if detail.Status != "" {
		rec.Status = detail.Status
	}
	if len(detail.Messages) > 0 {
		rec.Messages = detail.Messages
	} else if detail.Question != "" {
		rec.Messages = []taskstate.Message{{Role: "user", Content: detail.Question}}
	}
	rec.TaskRunning = detail.Runs
	rec.Tokens = detail.Tokens
	rec.SummaryTask = detail.Summary
	rec.ProgressValue = taskstate.ProgressPercent(detail.Runs)
}
