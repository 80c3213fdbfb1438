// Package application assembles the runtime: database, history store,
// project registry, replay coordinator and the local HTTP server, tied
// together under one lifecycle.
package application

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"crewdesk/cli/internal/appserver"
	"crewdesk/cli/internal/db"
	"crewdesk/cli/internal/global"
	"crewdesk/cli/internal/historydb"
	"crewdesk/cli/internal/lifecycle"
	"crewdesk/cli/internal/localapi"
	"crewdesk/cli/internal/logging"
	"crewdesk/cli/internal/registry"
	"crewdesk/cli/internal/replay"
)

const bootstrapPathName = "application.start.v1"

type Application struct {
	localAPIBaseURL string
	dbPath          string
	bootstrapPath   string
	runFn           func(context.Context) error
	shutdownFn      func(context.Context) error
}

func StartApplication(_ context.Context, opts StartOptions) (*Application, error) {
	host := strings.TrimSpace(opts.LocalHost)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.LocalPort
	if port <= 0 {
		port = 4710
	}
	localBaseURL := fmt.Sprintf("http://%s:%d", host, port)
	if customURL := strings.TrimSpace(opts.Hooks.LocalAPIURL); customURL != "" {
		localBaseURL = customURL
	}
	bootstrapPath := bootstrapPathName
	if customTag := strings.TrimSpace(opts.Hooks.BootstrapTag); customTag != "" {
		bootstrapPath = customTag
	}

	app := &Application{
		localAPIBaseURL: localBaseURL,
		dbPath:          strings.TrimSpace(opts.DBPath),
		bootstrapPath:   bootstrapPath,
		runFn: func(context.Context) error {
			return nil
		},
		shutdownFn: func(context.Context) error {
			return nil
		},
	}
	if opts.Hooks.Run != nil {
		app.runFn = opts.Hooks.Run
	}
	if opts.Hooks.Shutdown != nil {
		app.shutdownFn = opts.Hooks.Shutdown
	}
	if opts.Hooks.Run == nil {
		if err := bootstrapLocalRuntime(app, opts); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func bootstrapLocalRuntime(app *Application, opts StartOptions) error {
	configDir := strings.TrimSpace(opts.ConfigDir)
	if configDir == "" {
		return fmt.Errorf("config dir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	dbPath := strings.TrimSpace(opts.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(configDir, "history.db")
	}
	gdb, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	historyStore, err := historydb.NewStore(gdb)
	if err != nil {
		_ = db.Close(gdb)
		return err
	}

	reg := registry.New(logger.With("component", "registry"))
	coordinator := replay.NewCoordinator(reg, historyStore, logger.With("component", "replay"))
	savedStore := global.NewSavedProjectsStore(configDir)

	localServer := localapi.NewServer(localapi.Deps{
		Registry: reg,
		History:  historyStore,
		Replay:   coordinator,
		Saved:    savedStore,
		Logger:   logger.With("component", "localapi"),
	})
	server := appserver.NewServer(appserver.Deps{LocalAPIHandle: localServer.Handler()})

	host := strings.TrimSpace(opts.LocalHost)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.LocalPort
	if port <= 0 {
		port = 4710
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	mgr := lifecycle.NewManager()
	mgr.AddRun("http-server", func(runCtx context.Context) error {
		go func() {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if opts.AutoSave {
		tick := opts.AutoSaveTick
		if tick <= 0 {
			tick = 15 * time.Second
		}
		saver := &autosaver{
			reg:     reg,
			history: historyStore,
			saved:   savedStore,
			logger:  logger.With("component", "autosave"),
		}
		mgr.AddRun("autosave", func(runCtx context.Context) error {
			return saver.loop(runCtx, tick)
		})
	}
	mgr.AddShutdown("http-server-shutdown", func(context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	mgr.AddShutdown("teardown-registry", func(context.Context) error {
		reg.Teardown()
		return nil
	})
	mgr.AddShutdown("close-db", func(context.Context) error {
		return db.Close(gdb)
	})

	app.localAPIBaseURL = fmt.Sprintf("http://%s", addr)
	app.dbPath = dbPath
	app.runFn = func(ctx context.Context) error {
		return mgr.StartAndWait(ctx)
	}
	app.shutdownFn = func(context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
	return nil
}

func (a *Application) LocalAPIBaseURL() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.localAPIBaseURL)
}

func (a *Application) DBPath() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.dbPath)
}

func (a *Application) BootstrapPath() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.bootstrapPath)
}

func (a *Application) Run(ctx context.Context) error {
	if a == nil || a.runFn == nil {
		return nil
	}
	return a.runFn(ctx)
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil || a.shutdownFn == nil {
		return nil
	}
	return a.shutdownFn(ctx)
}
