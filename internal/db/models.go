package db

// HistoryTask is the persisted summary of one completed (or abandoned)
// task. One row per task; the row id doubles as the history identifier
// handed to the desktop shell.
type HistoryTask struct {
	ID          string `gorm:"column:id;primaryKey"`
	ProjectID   string `gorm:"column:project_id;not null;default:''"`
	ProjectName string `gorm:"column:project_name;not null;default:''"`
	TaskID      string `gorm:"column:task_id;not null;uniqueIndex"`
	Question    string `gorm:"column:question;not null;default:''"`
	Status      string `gorm:"column:status;not null;default:''"`
	Summary     string `gorm:"column:summary;not null;default:''"`
	Tokens      int    `gorm:"column:tokens;not null;default:0"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
	UpdatedAt   int64  `gorm:"column:updated_at;not null;default:0"`
}

func (HistoryTask) TableName() string { return "history_tasks" }

// HistoryMessage is one transcript entry of a persisted task.
type HistoryMessage struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TaskID    string `gorm:"column:task_id;not null"`
	Role      string `gorm:"column:role;not null;default:''"`
	Content   string `gorm:"column:content;not null;default:''"`
	Step      string `gorm:"column:step;not null;default:''"`
	CreatedAt int64  `gorm:"column:created_at;not null;default:0"`
}

func (HistoryMessage) TableName() string { return "history_messages" }

// HistoryRun is the final state of one subtask run of a persisted task.
type HistoryRun struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TaskID     string `gorm:"column:task_id;not null"`
	RunID      string `gorm:"column:run_id;not null"`
	Content    string `gorm:"column:content;not null;default:''"`
	Status     string `gorm:"column:status;not null;default:''"`
	ReAssignTo string `gorm:"column:re_assign_to;not null;default:''"`
	AgentID    string `gorm:"column:agent_id;not null;default:''"`
	UpdatedAt  int64  `gorm:"column:updated_at;not null;default:0"`
}

func (HistoryRun) TableName() string { return "history_runs" }
