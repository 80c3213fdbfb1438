package registry

import (
	"sync"
	"testing"

	"crewdesk/cli/internal/taskstate"
)

func TestCreateProject_ActivatesWithFreshStore(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("research sprint")
	if id == "" {
		t.Fatalf("CreateProject returned empty id")
	}
	if r.ActiveProjectID() != id {
		t.Fatalf("new project should be active")
	}
	if r.GetActiveChatStore() == nil {
		t.Fatalf("new project must come with an active chat store")
	}
	info, ok := r.GetProjectByID(id)
	if !ok || info.Name != "research sprint" {
		t.Fatalf("unexpected project info: %+v ok=%v", info, ok)
	}
}

func TestCreateProject_ReusesEmptyActiveProject(t *testing.T) {
	r := New(nil)
	first := r.CreateProject("one")
	second := r.CreateProject("two")
	if first != second {
		t.Fatalf("empty active project must be reused, got %s then %s", first, second)
	}
	info, _ := r.GetProjectByID(first)
	if info.Name != "two" {
		t.Fatalf("reuse should adopt the new name, got %q", info.Name)
	}

	// Once a message exists the project is no longer blank.
	store := r.GetActiveChatStore()
	store.CreateTask("t1", "do something")
	third := r.CreateProject("three")
	if third == first {
		t.Fatalf("used project must not be reused")
	}
}

func TestSetActiveProject_UnknownIsNoop(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("p")
	if r.SetActiveProject("ghost") {
		t.Fatalf("unknown project id must be rejected")
	}
	if r.ActiveProjectID() != id {
		t.Fatalf("active selection must be unchanged")
	}
}

func TestGetActiveChatStore_FollowsSelection(t *testing.T) {
	r := New(nil)
	p1 := r.CreateProject("p1")
	r.GetActiveChatStore().CreateTask("t1", "first project task")
	p2 := r.CreateProject("p2")
	store2 := r.GetActiveChatStore()
	if store2 == nil {
		t.Fatalf("no store for second project")
	}
	if store2.GetState().Task("t1") != nil {
		t.Fatalf("stores must be isolated between projects")
	}
	r.SetActiveProject(p1)
	if rec := r.GetActiveChatStore().GetState().Task("t1"); rec == nil {
		t.Fatalf("switching back must restore the first project's store")
	}
	_ = p2
}

func TestRemoveProject_DetachesStoresAndClearsActive(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("p")
	r.GetActiveChatStore().CreateTask("t1", "q")
	if !r.RemoveProject(id) {
		t.Fatalf("RemoveProject failed")
	}
	if r.GetActiveChatStore() != nil {
		t.Fatalf("active store must be nil after removing the active project")
	}
	if _, ok := r.GetProjectByID(id); ok {
		t.Fatalf("project still listed after removal")
	}
	if r.RemoveProject(id) {
		t.Fatalf("removing twice must be a no-op")
	}
}

func TestChatStores_MultipleSessionsPerProject(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("p")
	firstStore := r.GetActiveChatStore()
	chatID, second := r.AddChatStore(id)
	if second == nil || chatID == "" {
		t.Fatalf("AddChatStore failed")
	}
	if r.GetActiveChatStore() != second {
		t.Fatalf("new session should become the project's active store")
	}
	refs := r.GetAllChatStores(id)
	if len(refs) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(refs))
	}
	if refs[0].Store != firstStore || refs[1].Store != second {
		t.Fatalf("sessions out of creation order")
	}
	if !r.SetActiveChatStore(id, refs[0].ChatID) {
		t.Fatalf("SetActiveChatStore failed")
	}
	if r.GetActiveChatStore() != firstStore {
		t.Fatalf("active session switch not reflected")
	}
	if r.SetActiveChatStore(id, "ghost") {
		t.Fatalf("unknown chat id must be rejected")
	}
}

func TestHistoryIDMapping(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("p")
	if got := r.GetHistoryID(id); got != "" {
		t.Fatalf("expected empty history id, got %q", got)
	}
	r.SetHistoryID(id, "h-42")
	if got := r.GetHistoryID(id); got != "h-42" {
		t.Fatalf("history id not stored: %q", got)
	}
	r.RemoveProject(id)
	if got := r.GetHistoryID(id); got != "" {
		t.Fatalf("history id must be purged with the project, got %q", got)
	}
}

func TestOngoingProjects_AggregatesLiveUnfinishedWork(t *testing.T) {
	r := New(nil)
	busy := r.CreateProject("busy")
	store := r.GetActiveChatStore()
	store.CreateTask("t1", "summarize papers")
	store.AddTokens("t1", 120)
	store.CreateTask("t2", "done already")
	store.ApplyDecomposeComplete("t2", "s")
	store.StartTask("t2")
	store.ApplyComplete("t2", false, "")

	idle := r.CreateProject("idle")
	r.GetActiveChatStore().CreateTask("t3", "replayed")
	r.GetActiveChatStore().InsertRecord(&taskstate.Record{
		ID:     "t3",
		Status: taskstate.StatusRunning,
		Type:   taskstate.TypeReplay,
	})

	ongoing := r.OngoingProjects()
	if len(ongoing) != 1 {
		t.Fatalf("expected one ongoing project, got %+v", ongoing)
	}
	got := ongoing[0]
	if got.ProjectID != busy || got.TaskCount != 1 || got.TotalTokens != 120 {
		t.Fatalf("unexpected aggregate: %+v", got)
	}
	if got.LastPrompt != "summarize papers" {
		t.Fatalf("unexpected prompt %q", got.LastPrompt)
	}
	_ = idle
}

func TestOngoingProjects_ConcurrentWithSessionChanges(t *testing.T) {
	r := New(nil)
	id := r.CreateProject("busy")
	r.GetActiveChatStore().CreateTask("t1", "keep working")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.AddChatStore(id)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.OngoingProjects()
		}
	}()
	wg.Wait()

	ongoing := r.OngoingProjects()
	if len(ongoing) != 1 || ongoing[0].TaskCount != 1 {
		t.Fatalf("unexpected aggregate after concurrent churn: %+v", ongoing)
	}
}

func TestTeardown(t *testing.T) {
	r := New(nil)
	r.CreateProject("p")
	r.Teardown()
	if len(r.GetAllProjects()) != 0 || r.GetActiveChatStore() != nil {
		t.Fatalf("teardown must drop all state")
	}
}
