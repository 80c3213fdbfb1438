// Package historydb is the durable side of the orchestration core:
// finished tasks are snapshotted here and rebuilt from here on replay.
package historydb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "crewdesk/cli/internal/db"
	"crewdesk/cli/internal/replay"
	"crewdesk/cli/internal/taskstate"
)

// Summary is the per-task row handed to history listings.
type Summary struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Status    string `json:"status"`
	Tokens    int    `json:"tokens"`
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
}

// ProjectGroup is the grouped view used to rebuild a project on replay.
type ProjectGroup struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Tasks       []Summary `json:"tasks"`
	TaskCount   int       `json:"task_count"`
	TotalTokens int       `json:"total_tokens"`
	LastPrompt  string    `json:"last_prompt"`
}

type Store struct {
	db *gorm.DB
}

// NewStore uses the shared process DB. Caller must not close it here.
func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: gdb}, nil
}

// SaveSnapshot persists the final state of one task: the summary row is
// upserted and the transcript/run rows are replaced wholesale.
func (s *Store) SaveSnapshot(projectID, projectName string, rec *taskstate.Record) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", errors.New("task record is required")
	}
	if projectID == "" {
		return "", errors.New("project id is required")
	}

	now := time.Now().UTC().Unix()
	row := dbmodel.HistoryTask{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ProjectName: projectName,
		TaskID:      rec.ID,
		Question:    rec.FirstPrompt(),
		Status:      string(rec.Status),
		Summary:     rec.SummaryTask,
		Tokens:      rec.Tokens,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var historyID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"project_id":   gorm.Expr("excluded.project_id"),
				"project_name": gorm.Expr("excluded.project_name"),
				"question":     gorm.Expr("excluded.question"),
				"status":       gorm.Expr("excluded.status"),
				"summary":      gorm.Expr("excluded.summary"),
				"tokens":       gorm.Expr("excluded.tokens"),
				"updated_at":   gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", rec.ID).Delete(&dbmodel.HistoryMessage{}).Error; err != nil {
			return err
		}
		for _, msg := range rec.Messages {
			m := dbmodel.HistoryMessage{
				TaskID:    rec.ID,
				Role:      msg.Role,
				Content:   msg.Content,
				Step:      msg.Step,
				CreatedAt: msg.CreatedAt,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("task_id = ?", rec.ID).Delete(&dbmodel.HistoryRun{}).Error; err != nil {
			return err
		}
		for _, run := range rec.TaskRunning {
			r := dbmodel.HistoryRun{
				TaskID:     rec.ID,
				RunID:      run.ID,
				Content:    run.Content,
				Status:     string(run.Status),
				ReAssignTo: run.ReAssignTo,
				AgentID:    run.AgentID,
				UpdatedAt:  now,
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}

		var stored dbmodel.HistoryTask
		if err := tx.Where("task_id = ?", rec.ID).First(&stored).Error; err != nil {
			return err
		}
		historyID = stored.ID
		return nil
	})
	return historyID, err
}

// ListSummaries returns the newest task summaries first.
func (s *Store) ListSummaries(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := make([]dbmodel.HistoryTask, 0, limit)
	if err := s.db.Order("updated_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryOf(row))
	}
	return out, nil
}

// GroupedByProject returns the project-grouped history view, newest
// project activity first, tasks within a project newest first.
func (s *Store) GroupedByProject() ([]ProjectGroup, error) {
	var rows []dbmodel.HistoryTask
	if err := s.db.Order("updated_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	byProject := map[string]*ProjectGroup{}
	order := []string{}
	for _, row := range rows {
		g, ok := byProject[row.ProjectID]
		if !ok {
			g = &ProjectGroup{ProjectID: row.ProjectID, ProjectName: row.ProjectName}
			byProject[row.ProjectID] = g
			order = append(order, row.ProjectID)
		}
		g.Tasks = append(g.Tasks, summaryOf(row))
		g.TaskCount++
		g.TotalTokens += row.Tokens
		if g.LastPrompt == "" {
			g.LastPrompt = row.Question
		}
	}
	out := make([]ProjectGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *byProject[id])
	}
	return out, nil
}

// TaskDetail rebuilds one task's full persisted state. Implements the
// replay fetcher contract.
func (s *Store) TaskDetail(ctx context.Context, historyID, taskID string) (replay.TaskDetail, error) {
	var row dbmodel.HistoryTask
	q := s.db.WithContext(ctx)
	err := q.Where("task_id = ?", taskID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && historyID != "" {
		err = q.Where("id = ?", historyID).First(&row).Error
	}
	if err != nil {
		return replay.TaskDetail{}, err
	}

	detail := replay.TaskDetail{
		TaskID:   row.TaskID,
		Question: row.Question,
		Status:   taskstate.Status(row.Status),
		Tokens:   row.Tokens,
		Summary:  row.Summary,
	}

	var msgs []dbmodel.HistoryMessage
	if err := q.Where("task_id = ?", row.TaskID).Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return replay.TaskDetail{}, err
	}
	for _, m := range msgs {
		detail.Messages = append(detail.Messages, taskstate.Message{
			Role:      m.Role,
			Content:   m.Content,
			Step:      m.Step,
			CreatedAt: m.CreatedAt,
		})
	}

	var runs []dbmodel.HistoryRun
	if err := q.Where("task_id = ?", row.TaskID).Order("id ASC").Find(&runs).Error; err != nil {
		return replay.TaskDetail{}, err
	}
	for _, r := range runs {
		detail.Runs = append(detail.Runs, taskstate.RunEntry{
			ID:         r.RunID,
			Content:    r.Content,
			Status:     taskstate.Status(r.Status),
			ReAssignTo: r.ReAssignTo,
			AgentID:    r.AgentID,
		})
	}
	return detail, nil
}

// DeleteEntry purges one history row and its transcript/runs.
func (s *Store) DeleteEntry(historyID string) error {
	var row dbmodel.HistoryTask
	if err := s.db.Where("id = ?", historyID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.deleteTaskRows(row.TaskID)
}

// DeleteProject purges every history row belonging to a project.
func (s *Store) DeleteProject(projectID string) error {
	var rows []dbmodel.HistoryTask
	if err := s.db.Where("project_id = ?", projectID).Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.deleteTaskRows(row.TaskID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteTaskRows(taskID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&dbmodel.HistoryMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&dbmodel.HistoryRun{}).Error; err != nil {
			return err
		}
		return tx.Where("task_id = ?", taskID).Delete(&dbmodel.HistoryTask{}).Error
	})
}

func summaryOf(row dbmodel.HistoryTask) Summary {
	return Summary{
		ID:        row.ID,
		Question:  row.Question,
		Status:    row.Status,
		Tokens:    row.Tokens,
		TaskID:    row.TaskID,
		ProjectID: row.ProjectID,
	}
}
