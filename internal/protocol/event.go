// Package protocol defines the wire shapes exchanged with the event
// transport and the desktop shell. One inbound event maps to exactly
// one store mutation.
package protocol

import "encoding/json"

// Event types delivered by the backend stream.
const (
	EventDecomposeChunk    = "decompose_chunk"
	EventDecomposeComplete = "decompose_complete"
	EventAssignment        = "assignment"
	EventRunUpdate         = "run_update"
	EventAsk               = "ask"
	EventMessage           = "message"
	EventTokens            = "tokens"
	EventComplete          = "complete"
)

// Event is the envelope for one backend message. Payload shape depends
// on Type; unknown types are acknowledged and dropped.
type Event struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	TaskID  string          `json:"task_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type DecomposeChunkPayload struct {
	Text string `json:"text"`
}

type DecomposeCompletePayload struct {
	Summary string `json:"summary,omitempty"`
}

type AssignmentPayload struct {
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name,omitempty"`
	AgentType string         `json:"agent_type,omitempty"`
	Runs      []RunPayload   `json:"runs,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

type RunPayload struct {
	ID         string `json:"id"`
	Content    string `json:"content,omitempty"`
	Status     string `json:"status"`
	ReAssignTo string `json:"re_assign_to,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
}

type AskPayload struct {
	ID       string `json:"id,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	Question string `json:"question"`
}

type MessagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Step    string `json:"step,omitempty"`
}

type TokensPayload struct {
	Tokens int `json:"tokens"`
}

type CompletePayload struct {
	Failed  bool   `json:"failed,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Notice is pushed to attached UI clients after each committed store
// mutation.
type Notice struct {
	ID          string `json:"id"`
	Seq         uint64 `json:"seq"`
	ProjectID   string `json:"project_id"`
	ChatID      string `json:"chat_id"`
	TaskID      string `json:"task_id,omitempty"`
	UpdateCount uint64 `json:"update_count"`
}

// MustRaw marshals v, panicking only on programmer error (unmarshalable
// types), matching how payloads are built at call sites.
func MustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
