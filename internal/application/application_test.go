package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"crewdesk/cli/internal/db"
	"crewdesk/cli/internal/global"
	"crewdesk/cli/internal/historydb"
	"crewdesk/cli/internal/registry"
)

func TestStartApplication_HooksBypassBootstrap(t *testing.T) {
	sentinel := errors.New("run finished")
	ran := false
	app, err := StartApplication(context.Background(), StartOptions{
		Hooks: Hooks{
			Run: func(context.Context) error {
				ran = true
				return sentinel
			},
			LocalAPIURL:  "http://127.0.0.1:19999",
			BootstrapTag: "test.start",
		},
	})
	if err != nil {
		t.Fatalf("StartApplication failed: %v", err)
	}
	if app.LocalAPIBaseURL() != "http://127.0.0.1:19999" {
		t.Fatalf("hook URL ignored: %s", app.LocalAPIBaseURL())
	}
	if app.BootstrapPath() != "test.start" {
		t.Fatalf("bootstrap tag ignored: %s", app.BootstrapPath())
	}
	if err := app.Run(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("run hook not invoked: %v", err)
	}
	if !ran {
		t.Fatal("run hook flag not set")
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("default shutdown should be a no-op: %v", err)
	}
}

func TestStartApplication_RequiresConfigDir(t *testing.T) {
	if _, err := StartApplication(context.Background(), StartOptions{}); err == nil {
		t.Fatal("expected error without config dir")
	}
}

func TestAutosaver_PersistsFinishedTasks(t *testing.T) {
	dir := t.TempDir()
	gdb, err := db.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	defer func() { _ = db.Close(gdb) }()
	historyStore, err := historydb.NewStore(gdb)
	if err != nil {
		t.Fatalf("new history store failed: %v", err)
	}

	reg := registry.New(nil)
	projectID := reg.CreateProject("demo")
	st := reg.GetActiveChatStore()
	st.CreateTask("t1", "summarize the findings")
	st.StartTask("t1")
	st.ApplyComplete("t1", false, "report|all done")

	st.CreateTask("t2", "still running")
	st.StartTask("t2")

	saver := &autosaver{
		reg:     reg,
		history: historyStore,
		saved:   global.NewSavedProjectsStore(dir),
		logger:  registryTestLogger(),
	}
	saver.sweep()

	summaries, err := historyStore.ListSummaries(0)
	if err != nil {
		t.Fatalf("list summaries failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].TaskID != "t1" {
		t.Fatalf("only the finished task should be persisted: %+v", summaries)
	}
	if reg.GetHistoryID(projectID) == "" {
		t.Fatal("history id not registered after autosave")
	}

	saved, err := saver.saved.List()
	if err != nil {
		t.Fatalf("saved list failed: %v", err)
	}
	if len(saved) != 1 || saved[0].ProjectID != projectID {
		t.Fatalf("saved projects entry missing: %+v", saved)
	}

	// An unchanged store is skipped; a repeat sweep stays idempotent.
	saver.sweep()
	summaries, _ = historyStore.ListSummaries(0)
	if len(summaries) != 1 {
		t.Fatalf("repeat sweep duplicated rows: %d", len(summaries))
	}
}
