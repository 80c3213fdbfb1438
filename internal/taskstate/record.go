package taskstate

import "strings"

// RecordType distinguishes records fed by the live event stream from
// records rehydrated out of persisted history.
type RecordType string

const (
	TypeLive   RecordType = "live"
	TypeReplay RecordType = "replay"
)

// Workspace names the UI surface currently focused for a task. State
// only; rendering is owned by the desktop shell.
const (
	WorkspaceWorkflow = "workflow"
	WorkspaceDocument = "document"
	WorkspaceBrowser  = "browser"
)

type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Step      string `json:"step,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Subtask is one entry of the user-editable plan (task_info) before the
// task starts.
type Subtask struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Status     Status `json:"status"`
	ReAssignTo string `json:"re_assign_to,omitempty"`
}

// Agent describes a backend worker the task was assigned to.
type Agent struct {
	AgentID string   `json:"agent_id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Status  Status   `json:"status"`
	Tasks   []string `json:"tasks,omitempty"`
}

// RunEntry is one running subtask with its owning agent back-reference.
type RunEntry struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Status     Status `json:"status"`
	ReAssignTo string `json:"re_assign_to,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
}

// Ask is a pending human-in-the-loop question blocking progress.
type Ask struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id,omitempty"`
	Question string `json:"question"`
}

// Record is the full state of one user-initiated task. Records are owned
// by a chatstore.Store; callers outside the store only ever see copies.
type Record struct {
	ID                     string     `json:"id"`
	Status                 Status     `json:"status"`
	Messages               []Message  `json:"messages"`
	TaskInfo               []Subtask  `json:"task_info"`
	TaskAssigning          []Agent    `json:"task_assigning"`
	TaskRunning            []RunEntry `json:"task_running"`
	ActiveAsk              *Ask       `json:"active_ask,omitempty"`
	HasWaitConfirm         bool       `json:"has_wait_confirm"`
	StreamingDecomposeText string     `json:"streaming_decompose_text,omitempty"`
	ActiveWorkSpace        string     `json:"active_workspace,omitempty"`
	ActiveAgentID          string     `json:"active_agent_id,omitempty"`
	SelectedFile           string     `json:"selected_file,omitempty"`
	ProgressValue          int        `json:"progress_value"`
	SummaryTask            string     `json:"summary_task,omitempty"`
	Tokens                 int        `json:"tokens"`
	IsTakeControl          bool       `json:"is_take_control"`
	Type                   RecordType `json:"type,omitempty"`
	DelayTime              int        `json:"delay_time,omitempty"`
	CreatedAt              int64      `json:"created_at"`
}

// SummaryTitle returns the display title of the task summary: the text
// before the first "|" separator with surrounding quotes stripped.
func (r *Record) SummaryTitle() string {
	title, _, _ := strings.Cut(r.SummaryTask, "|")
	return strings.ReplaceAll(title, `"`, "")
}

// FirstPrompt returns the content of the first message, the text shown
// for a task in history listings.
func (r *Record) FirstPrompt() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].Content
}

// Clone returns a deep copy safe to hand to subscribers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = append([]Message(nil), r.Messages...)
	out.TaskInfo = append([]Subtask(nil), r.TaskInfo...)
	out.TaskRunning = append([]RunEntry(nil), r.TaskRunning...)
	out.TaskAssigning = make([]Agent, len(r.TaskAssigning))
	for i, a := range r.TaskAssigning {
		a.Tasks = append([]string(nil), a.Tasks...)
		out.TaskAssigning[i] = a
	}
	if r.ActiveAsk != nil {
		ask := *r.ActiveAsk
		out.ActiveAsk = &ask
	}
	return &out
}
