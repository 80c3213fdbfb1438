package command

import (
	"context"
	"testing"

	"crewdesk/cli/internal/config"
)

func TestBuildApp_DefaultCommandIsServe(t *testing.T) {
	serveCalled := 0
	migrateCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{}
		},
		RunServe: func(context.Context, config.Config) error {
			serveCalled++
			return nil
		},
		RunMigrateUp: func(context.Context, config.Config) error {
			migrateCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"crewdesk"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if serveCalled != 1 || migrateCalled != 0 {
		t.Fatalf("unexpected call count serve=%d migrate=%d", serveCalled, migrateCalled)
	}
}

func TestBuildApp_MigrateUpCommand(t *testing.T) {
	serveCalled := 0
	migrateCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{}
		},
		RunServe: func(context.Context, config.Config) error {
			serveCalled++
			return nil
		},
		RunMigrateUp: func(context.Context, config.Config) error {
			migrateCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"crewdesk", "migrate", "up"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if serveCalled != 0 || migrateCalled != 1 {
		t.Fatalf("unexpected call count serve=%d migrate=%d", serveCalled, migrateCalled)
	}
}

func TestBuildApp_MissingRunnerErrors(t *testing.T) {
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
	})
	if err := app.RunContext(context.Background(), []string{"crewdesk", "serve"}); err == nil {
		t.Fatal("expected error when serve runner is missing")
	}
}
