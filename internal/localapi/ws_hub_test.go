package localapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"

	"crewdesk/cli/internal/protocol"
)

func TestWSHub_NoticePerCommittedMutation(t *testing.T) {
	env := newAPIEnv(t)
	projectID := env.reg.CreateProject("demo")

	wsURL := "ws" + env.ts.URL[len("http"):] + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	for env.srv.Hub().ClientCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	taskID := dataOf(t, env.post(t, "/api/v1/tasks", map[string]any{"prompt": "q"}))["task_id"].(string)

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read ws failed: %v", err)
	}
	var notice protocol.Notice
	if err := json.Unmarshal(msg, &notice); err != nil {
		t.Fatalf("decode notice failed: %v", err)
	}
	if notice.ProjectID != projectID || notice.TaskID != taskID {
		t.Fatalf("notice addresses the wrong task: %+v", notice)
	}
	if notice.Seq == 0 || notice.UpdateCount == 0 {
		t.Fatalf("notice missing sequence or update count: %+v", notice)
	}

	// A silent no-op must not produce a second notice.
	env.post(t, "/api/v1/tasks/resume", map[string]any{"task_id": taskID})

	env.post(t, "/api/v1/tasks/start", map[string]any{"task_id": taskID})
	_, msg, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read second notice failed: %v", err)
	}
	var second protocol.Notice
	if err := json.Unmarshal(msg, &second); err != nil {
		t.Fatalf("decode second notice failed: %v", err)
	}
	if second.UpdateCount != notice.UpdateCount+1 {
		t.Fatalf("expected exactly one committed mutation between notices, got %d -> %d",
			notice.UpdateCount, second.UpdateCount)
	}
}
