package application

import (
	"context"
	"log/slog"
	"time"

	"crewdesk/cli/internal/global"
	"crewdesk/cli/internal/historydb"
	"crewdesk/cli/internal/registry"
	"crewdesk/cli/internal/taskstate"
)

// autosaver sweeps every chat store on a timer and persists finished
// tasks to the history database. Snapshots are keyed by task id, so
// re-saving an unchanged task is harmless; stores whose update count
// has not moved are skipped entirely.
type autosaver struct {
	reg     *registry.Registry
	history *historydb.Store
	saved   *global.SavedProjectsStore
	logger  *slog.Logger

	seen map[string]uint64
}

func (a *autosaver) loop(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.sweep()
			return nil
		case <-ticker.C:
			a.sweep()
		}
	}
}

func (a *autosaver) sweep() {
	if a.seen == nil {
		a.seen = map[string]uint64{}
	}
	for _, info := range a.reg.GetAllProjects() {
		for _, ref := range a.reg.GetAllChatStores(info.ID) {
			key := info.ID + "/" + ref.ChatID
			count := ref.Store.UpdateCount()
			if count == a.seen[key] {
				continue
			}
			a.seen[key] = count

			snap := ref.Store.GetState()
			for _, taskID := range snap.Order {
				rec := snap.Tasks[taskID]
				if rec == nil || !rec.Status.Terminal() || rec.Type == taskstate.TypeReplay {
					continue
				}
				historyID, err := a.history.SaveSnapshot(info.ID, info.Name, rec)
				if err != nil {
					a.logger.Warn("snapshot not persisted", "task_id", taskID, "error", err)
					continue
				}
				a.reg.SetHistoryID(info.ID, historyID)
				if err := a.saved.Upsert(global.SavedProject{
					ProjectID: info.ID,
					Name:      info.Name,
					HistoryID: historyID,
				}); err != nil {
					a.logger.Warn("saved project entry not written", "project_id", info.ID, "error", err)
				}
			}
		}
	}
}
