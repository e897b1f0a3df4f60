package driftbox

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRepository_CreateLookupRoundTrip(t *testing.T) {
	repo, err := NewRepository(Options{SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	slab, err := repo.Create("/foo/bar.mp4", "application/mp4")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	data := randomBytes(t, 64*1024)
	if err := slab.Append(testContext(), NewReaderSource(bytes.NewReader(data))); err != nil {
		t.Fatalf("Append: %s", err)
	}

	got, ok := repo.Lookup("/foo/bar.mp4")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != slab {
		t.Fatal("Lookup returned a different Slab than Create produced")
	}

	var out bytes.Buffer
	if err := got.Read(testContext(), NewWriterSink(&out)); err != nil {
		t.Fatalf("Read: %s", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Fatal("round-tripped bytes did not match")
	}
	if got.ContentType() != "application/mp4" {
		t.Fatalf("got content type %q", got.ContentType())
	}
}

func TestRepository_DeleteIsIdempotent(t *testing.T) {
	repo, err := NewRepository(Options{SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	if _, err := repo.Create("/foo", "text/plain"); err != nil {
		t.Fatalf("Create: %s", err)
	}

	if !repo.Delete("/foo") {
		t.Fatal("expected the first Delete to report an entry was present")
	}
	if repo.Delete("/foo") {
		t.Fatal("expected a repeated Delete to be a no-op, not report presence")
	}
	if _, ok := repo.Lookup("/foo"); ok {
		t.Fatal("expected a miss after Delete")
	}
}

func TestRepository_OverwriteOnlyNewVersionDiscoverable(t *testing.T) {
	repo, err := NewRepository(Options{SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	first, err := repo.Create("/foo", "text/plain")
	if err != nil {
		t.Fatalf("Create (first): %s", err)
	}
	second, err := repo.Create("/foo", "text/plain")
	if err != nil {
		t.Fatalf("Create (second): %s", err)
	}

	got, ok := repo.Lookup("/foo")
	if !ok || got != second {
		t.Fatal("expected Lookup to return the second version")
	}

	// A reader holding the first version still completes against its
	// own bytes, even though it is no longer reachable via Lookup.
	if err := first.Append(testContext(), NewReaderSource(bytes.NewReader([]byte("v1")))); err != nil {
		t.Fatalf("Append to detached slab: %s", err)
	}
	var out bytes.Buffer
	if err := first.Read(testContext(), NewWriterSink(&out)); err != nil {
		t.Fatalf("Read detached slab: %s", err)
	}
	if out.String() != "v1" {
		t.Fatalf("got %q, want %q", out.String(), "v1")
	}
}

func TestRepository_IdleExpiration(t *testing.T) {
	repo, err := NewRepository(Options{
		DefaultExpirationThreshold: 30 * time.Millisecond,
		SweepInterval:              10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	slab, err := repo.Create("/foo/bar.mp4", "application/mp4")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	if err := slab.Append(testContext(), NewReaderSource(bytes.NewReader([]byte("data")))); err != nil {
		t.Fatalf("Append: %s", err)
	}

	// Poll with Snapshot, which leaves LastAccess alone; polling with
	// Lookup would refresh the idle timer on every iteration.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(repo.Snapshot()) == 0 {
			if _, ok := repo.Lookup("/foo/bar.mp4"); ok {
				t.Fatal("expected a miss once the idle entry was swept")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected the idle entry to be swept within the deadline")
}

func TestRepository_SweepNeverRemovesARefreshedEntry(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	repo, err := NewRepository(Options{
		DefaultExpirationThreshold: 50 * time.Millisecond,
		SweepInterval:              time.Hour, // drive the sweep manually below
		Clock:                      clock,
	})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	if _, err := repo.Create("/foo", "text/plain"); err != nil {
		t.Fatalf("Create: %s", err)
	}

	clock.Advance(40 * time.Millisecond)
	if _, ok := repo.Lookup("/foo"); !ok {
		t.Fatal("expected a hit before the original threshold elapsed")
	}

	// Advancing another 40ms puts the clock at 80ms, past the entry's
	// original 50ms deadline but well inside the 90ms deadline the
	// Lookup above should have bought it.
	clock.Advance(40 * time.Millisecond)
	repo.sweep()

	if _, ok := repo.Lookup("/foo"); !ok {
		t.Fatal("sweep evicted an entry that had been refreshed since its original expiry was computed")
	}
}

func TestRepository_SnapshotSortedByPath(t *testing.T) {
	repo, err := NewRepository(Options{SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewRepository: %s", err)
	}
	defer repo.Close()

	for _, path := range []string{"/z", "/a", "/m"} {
		if _, err := repo.Create(path, "text/plain"); err != nil {
			t.Fatalf("Create(%q): %s", path, err)
		}
	}

	rows := repo.Snapshot()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want := []string{"/a", "/m", "/z"}
	for i, row := range rows {
		if row.Path != want[i] {
			t.Fatalf("rows[%d].Path = %q, want %q", i, row.Path, want[i])
		}
	}
}
