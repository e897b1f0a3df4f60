package driftbox

import (
	"sort"
	"time"

	memdb "github.com/hashicorp/go-memdb"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

// repositorySchema keys the slab table by case-folded path, the same
// shape as tangleshq-blobs' memstore "blob" table (memstore.go), plus a
// secondary, non-unique index on expiry so the sweeper can walk entries
// oldest-expiring-first instead of scanning unordered.
var repositorySchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"slab": {
			Name: "slab",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Path"},
				},
				"expires_at": {
					Name:    "expires_at",
					Unique:  false,
					Indexer: &memdb.IntFieldIndex{Field: "ExpiresAtUnixNano"},
				},
			},
		},
	},
}

// StoredEntry is a Repository row: a path, the Slab currently reachable
// under it, and the bookkeeping the expiration policy needs.
type StoredEntry struct {
	Path                string
	Slab                *Slab
	ExpirationThreshold time.Duration
	LastAccess          time.Time
	ExpiresAtUnixNano   int64
	AccessCount         uint64
	Generation          string
}

func (e *StoredEntry) expiresAt() time.Time {
	return e.LastAccess.Add(e.ExpirationThreshold)
}

// Options configures a Repository.
type Options struct {
	DefaultExpirationThreshold time.Duration
	PatternOverrides           []PatternOverride
	SweepInterval              time.Duration
	Clock                      Clock
	Metrics                    *Metrics
}

func (o Options) withDefaults() Options {
	if o.DefaultExpirationThreshold <= 0 {
		o.DefaultExpirationThreshold = DefaultExpirationThreshold
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

// SnapshotRow is one row of Repository.Snapshot's diagnostics output.
type SnapshotRow struct {
	Path        string
	ContentType string
	Length      int
	AccessCount uint64
	ExpiresAt   time.Time
	Generation  string
}

// Repository is the keyed store of the current Slab per path:
// create-or-replace, lookup, delete, and a background sweeper that
// evicts idle entries. It never blocks beyond a short memdb transaction.
type Repository struct {
	db   *memdb.MemDB
	opts Options

	stop    chan struct{}
	stopped chan struct{}
}

// NewRepository builds a Repository and starts its background sweeper.
// Call Close to stop the sweeper.
func NewRepository(opts Options) (*Repository, error) {
	opts = opts.withDefaults()

	db, err := memdb.NewMemDB(repositorySchema)
	if err != nil {
		return nil, errors.Wrap(err, "driftbox: building repository store")
	}

	r := &Repository{
		db:      db,
		opts:    opts,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.sweepLoop()
	return r, nil
}

// Close stops the background sweeper and waits for it to exit. It does
// not touch any Slabs; readers that still hold references keep working.
func (r *Repository) Close() {
	close(r.stop)
	<-r.stopped
}

func (r *Repository) sweepLoop() {
	defer close(r.stopped)

	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep walks entries ordered by expiry, and for every one that looks
// expired, attempts a compare-and-remove keyed on the exact Generation
// token observed during the walk. This is what lets a concurrent Create
// or Lookup that replaces or refreshes the entry after the walk survive
// the sweep.
func (r *Repository) sweep() {
	now := r.opts.Clock.Now()

	type candidate struct {
		path       string
		generation string
	}
	var candidates []candidate

	txn := r.db.Txn(false)
	it, err := txn.Get("slab", "expires_at")
	if err != nil {
		txn.Abort()
		return
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entry := raw.(*StoredEntry)
		if !entry.expiresAt().Before(now) {
			// expires_at ascending: nothing further in the scan can be
			// expired either.
			break
		}
		candidates = append(candidates, candidate{path: entry.Path, generation: entry.Generation})
	}
	txn.Abort()

	for _, c := range candidates {
		wtxn := r.db.Txn(true)

		raw, err := wtxn.First("slab", "id", c.path)
		if err != nil || raw == nil {
			wtxn.Abort()
			continue
		}

		current := raw.(*StoredEntry)
		if current.Generation != c.generation || !current.expiresAt().Before(now) {
			// replaced by Create, or refreshed by Lookup, since the walk.
			wtxn.Abort()
			continue
		}

		if err := wtxn.Delete("slab", current); err != nil {
			wtxn.Abort()
			continue
		}
		wtxn.Commit()
		r.opts.Metrics.ObserveEviction()
	}
}

// Create selects an expiration threshold for path, builds a fresh Slab,
// and atomically installs it as the current entry for path, replacing
// any prior entry. The prior Slab, if any, is only detached from the
// map; readers still holding it keep reading its bytes.
func (r *Repository) Create(path, contentType string) (*Slab, error) {
	generation, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "driftbox: generating slab generation")
	}

	threshold := resolveExpirationThreshold(path, r.opts.DefaultExpirationThreshold, r.opts.PatternOverrides)
	slab := newSlab(path, contentType, generation, r.opts.Metrics)

	now := r.opts.Clock.Now()
	entry := &StoredEntry{
		Path:                path,
		Slab:                slab,
		ExpirationThreshold: threshold,
		LastAccess:          now,
		ExpiresAtUnixNano:   now.Add(threshold).UnixNano(),
		Generation:          generation,
	}

	txn := r.db.Txn(true)

	existing, err := txn.First("slab", "id", path)
	if err != nil {
		txn.Abort()
		return nil, errors.Wrap(err, "driftbox: looking up existing slab")
	}

	if err := txn.Insert("slab", entry); err != nil {
		txn.Abort()
		return nil, errors.Wrap(err, "driftbox: inserting slab")
	}
	txn.Commit()

	if existing != nil {
		r.opts.Metrics.ObserveOverwrite()
	}

	return slab, nil
}

// Lookup returns the current Slab for path, if any, refreshing its idle
// timer. It never blocks beyond a single memdb transaction.
func (r *Repository) Lookup(path string) (*Slab, bool) {
	now := r.opts.Clock.Now()

	txn := r.db.Txn(true)

	raw, err := txn.First("slab", "id", path)
	if err != nil || raw == nil {
		txn.Abort()
		r.opts.Metrics.ObserveLookupMiss()
		return nil, false
	}

	entry := raw.(*StoredEntry)
	refreshed := *entry
	refreshed.LastAccess = now
	refreshed.AccessCount++
	refreshed.ExpiresAtUnixNano = now.Add(refreshed.ExpirationThreshold).UnixNano()

	if err := txn.Insert("slab", &refreshed); err != nil {
		txn.Abort()
		r.opts.Metrics.ObserveLookupHit()
		return entry.Slab, true
	}
	txn.Commit()

	r.opts.Metrics.ObserveLookupHit()
	return refreshed.Slab, true
}

// Delete removes any current entry for path, returning whether one was
// present. Repeated deletes are a no-op, never an error.
func (r *Repository) Delete(path string) bool {
	txn := r.db.Txn(true)

	existing, err := txn.First("slab", "id", path)
	if err != nil || existing == nil {
		txn.Abort()
		return false
	}

	if err := txn.Delete("slab", existing); err != nil {
		txn.Abort()
		return false
	}
	txn.Commit()
	return true
}

// Snapshot returns every current entry, sorted by path, for the
// diagnostics collaborator.
func (r *Repository) Snapshot() []SnapshotRow {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("slab", "id")
	if err != nil {
		return nil
	}

	var rows []SnapshotRow
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entry := raw.(*StoredEntry)
		rows = append(rows, SnapshotRow{
			Path:        entry.Path,
			ContentType: entry.Slab.ContentType(),
			Length:      entry.Slab.Length(),
			AccessCount: entry.AccessCount,
			ExpiresAt:   entry.expiresAt(),
			Generation:  entry.Generation,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}
