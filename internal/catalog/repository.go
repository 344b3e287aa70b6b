package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownFamily = errors.New("unknown emoji family")
	ErrNotFound      = errors.New("emoji not found")
)

// Loader fetches catalog files by name, e.g. "noto-Metadata.json".
type Loader interface {
	Load(ctx context.Context, name string) (map[string]model.Emoji, error)
	// ModTime reports when the named file last changed, as unix nanos.
	ModTime(ctx context.Context, name string) (int64, error)
	// Location describes where name lives, for logs.
	Location(name string) string
}

// Snapshot is an immutable view of one family's catalog.
type Snapshot struct {
	Family model.Family
	// Emojis is ordered by id so repeated loads yield the same corpus order.
	// It is shared by every reader of the snapshot and must not be modified.
	Emojis []model.Emoji
	byCLDR map[string]int
	// Version increments on every reload of the family.
	Version uint64
	// ModTime is the file modification time seen just before loading, as
	// unix nanos. Zero when the loader could not report it.
	ModTime int64
}

// Lookup finds an emoji by CLDR name. Both sides are normalized.
func (s *Snapshot) Lookup(cldr string) (model.Emoji, bool) {
	i, ok := s.byCLDR[model.NormalizeCLDR(cldr)]
	if !ok {
		return model.Emoji{}, false
	}
	return s.Emojis[i], true
}

// Repository serves family catalogs from a Loader, caching each family after
// its first load until Invalidate is called.
type Repository struct {
	loader Loader
	logger *logging.Logger

	mu       sync.RWMutex
	cache    map[model.Family]*Snapshot
	versions map[model.Family]uint64
	loading  map[model.Family]*sync.Mutex
}

// NewRepository creates a repository. A nil logger discards output.
func NewRepository(loader Loader, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NoopLogger()
	}
	return &Repository{
		loader:   loader,
		logger:   logger,
		cache:    make(map[model.Family]*Snapshot),
		versions: make(map[model.Family]uint64),
		loading:  make(map[model.Family]*sync.Mutex),
	}
}

// OpenRepository creates a repository over the catalog files in dataDir.
func OpenRepository(dataDir string, logger *logging.Logger) (*Repository, error) {
	loader, err := NewFileLoader(dataDir)
	if err != nil {
		return nil, err
	}
	return NewRepository(loader, logger), nil
}

// Snapshot returns the cached catalog of family, loading it on first use.
func (r *Repository) Snapshot(ctx context.Context, family model.Family) (*Snapshot, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	r.mu.RLock()
	snap, ok := r.cache[family]
	r.mu.RUnlock()
	if ok {
		return snap, nil
	}

	lock := r.familyLock(family)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished the load while we waited.
	r.mu.RLock()
	snap, ok = r.cache[family]
	r.mu.RUnlock()
	if ok {
		return snap, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := family.MetadataFile()
	log := r.logger.WithFamily(string(family))

	// Stat before reading so a write racing the load is seen as a change.
	modTime, err := r.loader.ModTime(ctx, name)
	if err != nil {
		log.DebugContext(ctx, "catalog mod time unavailable", "error", err)
		modTime = 0
	}

	emojis, err := r.loader.Load(ctx, name)
	log.LogCatalogLoad(ctx, r.loader.Location(name), len(emojis), err)
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", family, err)
	}

	r.mu.Lock()
	r.versions[family]++
	snap = newSnapshot(family, emojis, r.versions[family])
	snap.ModTime = modTime
	r.cache[family] = snap
	r.mu.Unlock()

	return snap, nil
}

// All returns a copy of every emoji of family in a stable order.
func (r *Repository) All(ctx context.Context, family model.Family) ([]model.Emoji, error) {
	snap, err := r.Snapshot(ctx, family)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Emojis), nil
}

// Get returns the emoji of family with the given CLDR name.
func (r *Repository) Get(ctx context.Context, family model.Family, cldr string) (model.Emoji, error) {
	snap, err := r.Snapshot(ctx, family)
	if err != nil {
		return model.Emoji{}, err
	}
	e, ok := snap.Lookup(cldr)
	if !ok {
		return model.Emoji{}, fmt.Errorf("%w: %s/%s", ErrNotFound, family, cldr)
	}
	return e, nil
}

// Invalidate drops cached catalogs. With no arguments every family is dropped.
func (r *Repository) Invalidate(families ...model.Family) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(families) == 0 {
		r.cache = make(map[model.Family]*Snapshot)
		return
	}
	for _, f := range families {
		delete(r.cache, f)
	}
}

// Warm loads the given families concurrently.
func (r *Repository) Warm(ctx context.Context, families ...model.Family) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range families {
		g.Go(func() error {
			_, err := r.Snapshot(ctx, f)
			return err
		})
	}
	return g.Wait()
}

// Modified reports the modification time of family's file as unix nanos.
func (r *Repository) Modified(family model.Family) (int64, error) {
	return r.loader.ModTime(context.Background(), family.MetadataFile())
}

// LoadedModTime reports the modification time recorded when the cached
// catalog of family was loaded. ok is false when the family is not cached or
// its time is unknown.
func (r *Repository) LoadedModTime(family model.Family) (mod int64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, cached := r.cache[family]
	if !cached || snap.ModTime == 0 {
		return 0, false
	}
	return snap.ModTime, true
}

// Cached lists the families currently held in memory.
func (r *Repository) Cached() []model.Family {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Family, 0, len(r.cache))
	for f := range r.cache {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Repository) familyLock(family model.Family) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loading[family]
	if !ok {
		l = &sync.Mutex{}
		r.loading[family] = l
	}
	return l
}

func newSnapshot(family model.Family, emojis map[string]model.Emoji, version uint64) *Snapshot {
	ids := make([]string, 0, len(emojis))
	for id := range emojis {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := &Snapshot{
		Family:  family,
		Emojis:  make([]model.Emoji, 0, len(ids)),
		byCLDR:  make(map[string]int, len(ids)),
		Version: version,
	}
	for _, id := range ids {
		e := emojis[id]
		key := model.NormalizeCLDR(e.CLDR)
		if _, dup := snap.byCLDR[key]; !dup {
			snap.byCLDR[key] = len(snap.Emojis)
		}
		snap.Emojis = append(snap.Emojis, e)
	}
	return snap
}
