package engine

import (
	"context"
	"time"

	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
)

// Reloadable is a catalog whose cached families can be dropped when their
// files change. *catalog.Repository implements it.
type Reloadable interface {
	Cached() []model.Family
	Modified(family model.Family) (int64, error)
	// LoadedModTime is the modification time recorded when family was loaded.
	LoadedModTime(family model.Family) (int64, bool)
	Invalidate(families ...model.Family)
}

// Refresher drops cached catalogs whose files changed on disk and persists
// search stats.
type Refresher struct {
	catalog Reloadable
	stats   *StatsRecorder
	logger  *logging.Logger
	seen    map[model.Family]int64
}

func NewRefresher(c Reloadable, stats *StatsRecorder, logger *logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.NoopLogger()
	}
	return &Refresher{catalog: c, stats: stats, logger: logger, seen: make(map[model.Family]int64)}
}

// Run checks every interval until ctx is done, then saves stats one last time.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("refresher started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			r.saveStats()
			return
		case <-ticker.C:
			r.Check()
			r.saveStats()
		}
	}
}

// Check invalidates every cached family whose file changed since it was
// loaded and returns the invalidated families. Families loaded without a
// known modification time are compared with the previous check instead.
func (r *Refresher) Check() []model.Family {
	var stale []model.Family
	for _, f := range r.catalog.Cached() {
		mod, err := r.catalog.Modified(f)
		if err != nil {
			r.logger.Error("refresher: stat catalog", "family", string(f), "error", err)
			continue
		}
		prev, ok := r.catalog.LoadedModTime(f)
		if !ok {
			prev, ok = r.seen[f]
		}
		r.seen[f] = mod
		if ok && prev != mod {
			stale = append(stale, f)
		}
	}

	if len(stale) > 0 {
		r.catalog.Invalidate(stale...)
		for _, f := range stale {
			r.logger.Info("catalog changed on disk, cache dropped", "family", string(f))
		}
	}
	return stale
}

func (r *Refresher) saveStats() {
	if r.stats == nil {
		return
	}
	if err := r.stats.Save(); err != nil {
		r.logger.Error("stats persist failed", "error", err)
	}
}
