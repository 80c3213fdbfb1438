package chatstore

import (
	"testing"

	"crewdesk/cli/internal/taskstate"
)

func TestCreateTask_SeedsPendingRecord(t *testing.T) {
	s := New()
	if !s.CreateTask("t1", "build a report") {
		t.Fatalf("CreateTask failed")
	}
	snap := s.GetState()
	rec := snap.Task("t1")
	if rec == nil {
		t.Fatalf("record missing")
	}
	if rec.Status != taskstate.StatusPending || rec.Type != taskstate.TypeLive {
		t.Fatalf("unexpected record: status=%s type=%s", rec.Status, rec.Type)
	}
	if rec.FirstPrompt() != "build a report" {
		t.Fatalf("prompt not seeded: %q", rec.FirstPrompt())
	}
	if snap.ActiveTaskID != "t1" {
		t.Fatalf("new task should become active, got %q", snap.ActiveTaskID)
	}
}

func TestCreateTask_IDsNeverReused(t *testing.T) {
	s := New()
	s.CreateTask("t1", "first")
	before := s.UpdateCount()
	if s.CreateTask("t1", "second") {
		t.Fatalf("duplicate id must be rejected")
	}
	if s.UpdateCount() != before {
		t.Fatalf("rejected create must not bump updateCount")
	}
	if got := s.GetState().Task("t1").FirstPrompt(); got != "first" {
		t.Fatalf("original record was overwritten: %q", got)
	}
}

func TestUpdateCount_OnePerCommittedMutation(t *testing.T) {
	s := New()
	calls := []func() bool{
		func() bool { return s.CreateTask("t1", "q") },
		func() bool { return s.ApplyDecomposeChunk("t1", "<task>A</task>") },
		func() bool { return s.ApplyDecomposeComplete("t1", "sum|1") },
		func() bool { return s.StartTask("t1") },
		func() bool { return s.SetSelectedFile("t1", "report.md") },
	}
	for i, call := range calls {
		before := s.UpdateCount()
		if !call() {
			t.Fatalf("call %d did not commit", i)
		}
		if got := s.UpdateCount(); got != before+1 {
			t.Fatalf("call %d bumped count by %d", i, got-before)
		}
	}
}

func TestSubscribers_NotifiedInOrderOncePerMutation(t *testing.T) {
	s := New()
	var seen []string
	s.Subscribe(func(Snapshot) { seen = append(seen, "a") })
	s.Subscribe(func(Snapshot) { seen = append(seen, "b") })
	s.CreateTask("t1", "q")
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("unexpected notification order: %v", seen)
	}
	seen = nil
	s.SetSelectedFile("t1", "f")
	if len(seen) != 2 {
		t.Fatalf("expected exactly one notification per subscriber, got %v", seen)
	}
}

func TestSubscriber_SnapshotIsIsolated(t *testing.T) {
	s := New()
	var got Snapshot
	s.Subscribe(func(snap Snapshot) { got = snap })
	s.CreateTask("t1", "q")
	got.Tasks["t1"].SelectedFile = "tampered"
	if s.GetState().Task("t1").SelectedFile == "tampered" {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}

func TestUnsubscribe_IdempotentAndSafeDuringNotify(t *testing.T) {
	s := New()
	count := 0
	var unsub func()
	unsub = s.Subscribe(func(Snapshot) {
		count++
		unsub()
		unsub()
	})
	s.CreateTask("t1", "q")
	s.SetSelectedFile("t1", "f")
	if count != 1 {
		t.Fatalf("unsubscribed callback still firing: count=%d", count)
	}
}

func TestSubscribe_DuringNotificationDoesNotCorruptPass(t *testing.T) {
	s := New()
	lateCalls := 0
	s.Subscribe(func(Snapshot) {
		s.Subscribe(func(Snapshot) { lateCalls++ })
	})
	s.CreateTask("t1", "q")
	if lateCalls != 0 {
		t.Fatalf("subscriber added mid-pass must not run in the same pass")
	}
	s.SetSelectedFile("t1", "f")
	if lateCalls != 1 {
		t.Fatalf("late subscriber should fire on the next mutation, got %d", lateCalls)
	}
}

func TestSetters_NotFoundIsSilentNoop(t *testing.T) {
	s := New()
	s.CreateTask("t1", "q")
	before := s.UpdateCount()
	if s.SetActiveWorkSpace("ghost", taskstate.WorkspaceWorkflow) {
		t.Fatalf("setter on missing task must not commit")
	}
	s.SetSelectedFile("ghost", "f")
	s.SetActiveAgent("ghost", "a")
	s.Pause("ghost")
	s.RemoveTask("ghost")
	s.UpdateTaskInfo("ghost", 0, "x")
	if got := s.UpdateCount(); got != before {
		t.Fatalf("missing-task mutations changed updateCount: %d -> %d", before, got)
	}
}

func TestRemoveTask_ClearsActiveSelection(t *testing.T) {
	s := New()
	s.CreateTask("t1", "q")
	s.CreateTask("t2", "q2")
	s.SetActiveTask("t1")
	s.RemoveTask("t1")
	snap := s.GetState()
	if snap.ActiveTaskID != "" {
		t.Fatalf("removing the active task must clear the selection, got %q", snap.ActiveTaskID)
	}
	if len(snap.Order) != 1 || snap.Order[0] != "t2" {
		t.Fatalf("unexpected order after removal: %v", snap.Order)
	}
}

func TestPauseResume_Idempotent(t *testing.T) {
	s := New()
	s.CreateTask("t1", "q")
	s.ApplyDecomposeComplete("t1", "sum")
	s.StartTask("t1")

	if !s.Pause("t1") {
		t.Fatalf("pause on running task must commit")
	}
	before := s.UpdateCount()
	if s.Pause("t1") {
		t.Fatalf("pause on paused task must be a no-op")
	}
	if s.UpdateCount() != before {
		t.Fatalf("idempotent pause bumped updateCount")
	}
	if !s.Resume("t1") {
		t.Fatalf("resume on paused task must commit")
	}
	if s.Resume("t1") {
		t.Fatalf("resume on running task must be a no-op")
	}
	if got := s.GetState().Task("t1").Status; got != taskstate.StatusRunning {
		t.Fatalf("unexpected status %s", got)
	}
}

func TestPlanEditing_BeforeStartOnly(t *testing.T) {
	s := New()
	s.CreateTask("t1", "q")
	if !s.AddTaskInfo("t1", "step one") {
		t.Fatalf("AddTaskInfo failed")
	}
	if !s.UpdateTaskInfo("t1", 0, "step one, refined") {
		t.Fatalf("UpdateTaskInfo failed")
	}
	if s.UpdateTaskInfo("t1", 5, "x") {
		t.Fatalf("out-of-bounds update must be a no-op")
	}
	if s.DeleteTaskInfo("t1", -1) {
		t.Fatalf("negative index delete must be a no-op")
	}
	s.StartTask("t1")
	if s.AddTaskInfo("t1", "too late") {
		t.Fatalf("plan must be frozen once the task started")
	}
	plan := s.GetState().Task("t1").TaskInfo
	if len(plan) != 1 || plan[0].Content != "step one, refined" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestSnapshotLatest_UsesInsertionOrder(t *testing.T) {
	s := New()
	s.CreateTask("t1", "first")
	s.CreateTask("t2", "second")
	if got := s.GetState().Latest(); got == nil || got.ID != "t2" {
		t.Fatalf("latest should be t2, got %+v", got)
	}
}
