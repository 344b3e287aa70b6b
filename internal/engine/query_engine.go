package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coffersTech/emojisearch/internal/catalog"
	"github.com/coffersTech/emojisearch/internal/fulltext"
	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/emojiql"
)

// Catalog provides family snapshots. *catalog.Repository implements it.
type Catalog interface {
	Snapshot(ctx context.Context, family model.Family) (*catalog.Snapshot, error)
}

// Request is a full search with ordering and paging.
type Request struct {
	Query        string
	Family       model.Family
	Sort         string
	GroupByGroup bool
	// Limit caps the returned emojis. Zero means no limit.
	Limit int
}

// Result is the answer to a Request.
type Result struct {
	Family model.Family
	Query  string
	// Total counts matches before Limit is applied.
	Total  int
	Emojis []model.Emoji
}

type textIndex struct {
	version uint64
	index   *fulltext.Index
}

// SearchEngine evaluates queries against family catalogs.
type SearchEngine struct {
	catalog Catalog
	logger  *logging.Logger
	stats   *StatsRecorder

	// mu guards indexes
	mu      sync.Mutex
	indexes map[model.Family]textIndex
}

// NewSearchEngine creates a SearchEngine. stats and logger may be nil.
func NewSearchEngine(c Catalog, stats *StatsRecorder, logger *logging.Logger) *SearchEngine {
	if logger == nil {
		logger = logging.NoopLogger()
	}
	if stats == nil {
		stats = NewStatsRecorder("")
	}
	return &SearchEngine{
		catalog: c,
		logger:  logger,
		stats:   stats,
		indexes: make(map[model.Family]textIndex),
	}
}

// Stats exposes the engine's counters.
func (se *SearchEngine) Stats() *StatsRecorder {
	return se.stats
}

// Search returns the emojis of family matching query, in catalog order.
// An empty or blank query returns the whole catalog without parsing.
// Parse failures are returned as *emojiql.QueryParserError.
func (se *SearchEngine) Search(ctx context.Context, query string, family model.Family) ([]model.Emoji, error) {
	start := time.Now()

	snap, err := se.catalog.Snapshot(ctx, family)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		se.stats.RecordSearch(family, len(snap.Emojis), nil)
		return slices.Clone(snap.Emojis), nil
	}

	node, err := emojiql.Parse(query)
	if err != nil {
		se.stats.RecordSearch(family, 0, err)
		se.logger.LogSearch(ctx, query, string(family), 0, time.Since(start), err)
		return nil, err
	}

	results, err := emojiql.NewEvaluator(se.textIndex(ctx, snap)).Evaluate(node, snap.Emojis)
	se.stats.RecordSearch(family, len(results), err)
	if err != nil {
		se.logger.LogSearch(ctx, query, string(family), 0, time.Since(start), err)
		return nil, err
	}

	se.logger.LogSearch(ctx, query, string(family), len(results), time.Since(start), nil)
	return results, nil
}

// Run searches, orders and pages in one call.
func (se *SearchEngine) Run(ctx context.Context, req Request) (*Result, error) {
	sorter, err := ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	emojis, err := se.Search(ctx, req.Query, req.Family)
	if err != nil {
		return nil, err
	}

	sorted := Sort(emojis, sorter, req.GroupByGroup)
	res := &Result{Family: req.Family, Query: req.Query, Total: len(sorted), Emojis: sorted}
	if req.Limit > 0 && len(sorted) > req.Limit {
		res.Emojis = sorted[:req.Limit]
	}
	return res, nil
}

// Explain returns the parsed form of query.
func Explain(query string) (string, error) {
	node, err := emojiql.Parse(query)
	if err != nil {
		return "", err
	}
	return node.String(), nil
}

// IsQueryError reports whether err came from tokenizing or parsing a query,
// as opposed to loading or evaluating it.
func IsQueryError(err error) bool {
	var pe *emojiql.QueryParserError
	return errors.As(err, &pe)
}

// textIndex returns the full-text index of snap, rebuilding it when the
// catalog was reloaded since the last build.
func (se *SearchEngine) textIndex(ctx context.Context, snap *catalog.Snapshot) *fulltext.Index {
	se.mu.Lock()
	defer se.mu.Unlock()

	if cached, ok := se.indexes[snap.Family]; ok && cached.version == snap.Version {
		return cached.index
	}

	idx, skipped := fulltext.Build(snap.Emojis)
	if skipped > 0 {
		se.logger.WarnContext(ctx, "documents skipped while indexing",
			"family", string(snap.Family),
			"skipped", skipped,
		)
	}
	se.logger.DebugContext(ctx, "text index built",
		"family", string(snap.Family),
		"documents", idx.Len(),
		"version", snap.Version,
	)

	se.indexes[snap.Family] = textIndex{version: snap.Version, index: idx}
	return idx
}
