package db

import (
	"errors"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from the models. Table
// structure changes do not use versioned migrations.
func SyncSchema(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("db is required")
	}
	if err := gdb.AutoMigrate(
		&HistoryTask{},
		&HistoryMessage{},
		&HistoryRun{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_history_tasks_project_updated ON history_tasks(project_id, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_history_messages_task_created ON history_messages(task_id, created_at ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_history_runs_task ON history_runs(task_id);`,
	} {
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
