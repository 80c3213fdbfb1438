package localapi

import (
	"encoding/json"
	"net/http"

	"crewdesk/cli/internal/chatstore"
	"crewdesk/cli/internal/protocol"
	"crewdesk/cli/internal/taskstate"
)

func (s *Server) registerEventRoutes() {
	s.mux.HandleFunc("/api/v1/events", s.handleEvents)
}

type eventRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	protocol.Event
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.Type == "" || req.TaskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_EVENT", "type and task_id are required")
		return
	}

	projectID, chatID, st := s.resolveStore(req.ProjectID, req.ChatID)
	if st == nil {
		respondError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "no chat store for the addressed project")
		return
	}

	committed, err := applyEvent(st, req.Event)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if committed {
		s.notifyCommitted(projectID, chatID, req.TaskID, st)
	} else {
		s.deps.Logger.Debug("event dropped without state change",
			"type", req.Type, "task_id", req.TaskID)
	}
	respondOK(w, map[string]any{"applied": committed})
}

// applyEvent maps one envelope to one store mutation. Unknown event
// types are acknowledged and dropped.
func applyEvent(st *chatstore.Store, evt protocol.Event) (bool, error) {
	switch evt.Type {
	case protocol.EventDecomposeChunk:
		var p protocol.DecomposeChunkPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.ApplyDecomposeChunk(evt.TaskID, p.Text), nil
	case protocol.EventDecomposeComplete:
		var p protocol.DecomposeCompletePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.ApplyDecomposeComplete(evt.TaskID, p.Summary), nil
	case protocol.EventAssignment:
		var p protocol.AssignmentPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		agent := taskstate.Agent{
			AgentID: p.AgentID,
			Name:    p.AgentName,
			Type:    p.AgentType,
		}
		return st.ApplyAssignment(evt.TaskID, agent, runEntries(p.Runs, p.AgentID)), nil
	case protocol.EventRunUpdate:
		var p protocol.RunPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.ApplyRunUpdate(evt.TaskID, runEntry(p, p.AgentID)), nil
	case protocol.EventAsk:
		var p protocol.AskPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.ApplyAsk(evt.TaskID, taskstate.Ask{ID: p.ID, AgentID: p.AgentID, Question: p.Question}), nil
	case protocol.EventMessage:
		var p protocol.MessagePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.AppendMessage(evt.TaskID, taskstate.Message{Role: p.Role, Content: p.Content, Step: p.Step}), nil
	case protocol.EventTokens:
		var p protocol.TokensPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.AddTokens(evt.TaskID, p.Tokens), nil
	case protocol.EventComplete:
		var p protocol.CompletePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return false, err
		}
		return st.ApplyComplete(evt.TaskID, p.Failed, p.Summary), nil
	default:
		return false, nil
	}
}

func runEntries(runs []protocol.RunPayload, agentID string) []taskstate.RunEntry {
	out := make([]taskstate.RunEntry, 0, len(runs))
	for _, r := range runs {
		out = append(out, runEntry(r, agentID))
	}
	return out
}

func runEntry(r protocol.RunPayload, fallbackAgent string) taskstate.RunEntry {
	agentID := r.AgentID
	if agentID == "" {
		agentID = fallbackAgent
	}
	return taskstate.RunEntry{
		ID:         r.ID,
		Content:    r.Content,
		Status:     taskstate.Status(r.Status),
		ReAssignTo: r.ReAssignTo,
		AgentID:    agentID,
	}
}
