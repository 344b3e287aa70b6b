package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/coffersTech/emojisearch/internal/model"
)

// PersistentStats holds cumulative search counters that survive restarts.
type PersistentStats struct {
	TotalSearches  int64            `json:"total_searches"`
	FailedSearches int64            `json:"failed_searches"`
	EmptyResults   int64            `json:"empty_results"`
	FamilyCounts   map[string]int64 `json:"family_counts"`
}

// statsFileName is the filename for persisted stats
const statsFileName = ".emojisearch.stats"

// StatsRecorder accumulates search counters and persists them in dataDir.
type StatsRecorder struct {
	dataDir string

	mu    sync.Mutex
	stats PersistentStats
	dirty bool
}

// NewStatsRecorder loads existing counters from dataDir. An empty dataDir
// keeps the counters in memory only.
func NewStatsRecorder(dataDir string) *StatsRecorder {
	return &StatsRecorder{dataDir: dataDir, stats: loadPersistentStats(dataDir)}
}

// RecordSearch counts one search of family.
func (sr *StatsRecorder) RecordSearch(family model.Family, results int, err error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.stats.TotalSearches++
	sr.stats.FamilyCounts[string(family)]++
	switch {
	case err != nil:
		sr.stats.FailedSearches++
	case results == 0:
		sr.stats.EmptyResults++
	}
	sr.dirty = true
}

// Snapshot returns a copy of the counters.
func (sr *StatsRecorder) Snapshot() PersistentStats {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	out := sr.stats
	out.FamilyCounts = make(map[string]int64, len(sr.stats.FamilyCounts))
	for k, v := range sr.stats.FamilyCounts {
		out.FamilyCounts[k] = v
	}
	return out
}

// Save persists the counters if they changed since the last save.
func (sr *StatsRecorder) Save() error {
	if sr.dataDir == "" {
		return nil
	}

	sr.mu.Lock()
	if !sr.dirty {
		sr.mu.Unlock()
		return nil
	}
	snapshot := sr.stats
	data, err := json.MarshalIndent(snapshot, "", "  ")
	sr.dirty = false
	sr.mu.Unlock()
	if err != nil {
		return err
	}

	if err := savePersistentStats(sr.dataDir, data); err != nil {
		sr.mu.Lock()
		sr.dirty = true
		sr.mu.Unlock()
		return err
	}
	return nil
}

// loadPersistentStats reads stats from disk.
func loadPersistentStats(dataDir string) PersistentStats {
	stats := PersistentStats{FamilyCounts: make(map[string]int64)}
	if dataDir == "" {
		return stats
	}

	data, err := os.ReadFile(filepath.Join(dataDir, statsFileName))
	if err != nil {
		// File doesn't exist or can't be read, return empty stats
		return stats
	}

	if err := json.Unmarshal(data, &stats); err != nil {
		// Corrupted file, start over
		return PersistentStats{FamilyCounts: make(map[string]int64)}
	}
	if stats.FamilyCounts == nil {
		stats.FamilyCounts = make(map[string]int64)
	}
	return stats
}

// savePersistentStats writes stats to disk atomically.
func savePersistentStats(dataDir string, data []byte) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dataDir, statsFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}
	return nil
}
