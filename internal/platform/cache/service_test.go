package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

type rec struct {
	ID   int
	Name string
	Gen  int
}

func (r rec) EntityID() int { return r.ID }

func matchRec(r rec, query string) bool {
	return strings.Contains(strings.ToLower(r.Name), query) ||
		strings.Contains(strconv.Itoa(r.ID), query)
}

// -- Fake store --

type fakeStore struct {
	mu       sync.Mutex
	recs     map[int]rec
	nextID   int
	gen      int
	getCalls int
	addErr   error
	updErr   error
	delErr   error
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[int]rec), nextID: 1}
}

func (f *fakeStore) GetAll(_ context.Context) ([]rec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []rec
	for id := 1; id < f.nextID; id++ {
		if r, ok := f.recs[id]; ok {
			r.Gen = f.gen
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Add(_ context.Context, r rec) (rec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return rec{}, f.addErr
	}
	r.ID = f.nextID
	f.nextID++
	f.recs[r.ID] = r
	f.gen++
	return r, nil
}

func (f *fakeStore) Update(_ context.Context, r rec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updErr != nil {
		return f.updErr
	}
	if _, ok := f.recs[r.ID]; !ok {
		return db.ErrNotFound
	}
	f.recs[r.ID] = r
	f.gen++
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.recs[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.recs, id)
	f.gen++
	return nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func newTestService(store *fakeStore) *Service[rec] {
	return NewService[rec](store, matchRec, zerolog.Nop())
}

// -- Tests --

func TestGetAllLoadsLazily(t *testing.T) {
	store := newFakeStore()
	store.Add(context.Background(), rec{Name: "alpha"})
	store.Add(context.Background(), rec{Name: "beta"})
	svc := newTestService(store)

	got, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if store.calls() != 1 {
		t.Errorf("expected 1 store fetch, got %d", store.calls())
	}

	// Second read is served from the snapshot.
	if _, err := svc.GetAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls() != 1 {
		t.Errorf("clean cache must not refetch, got %d store fetches", store.calls())
	}
}

func TestWriteInvalidatesSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.GetAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	added, err := svc.Add(context.Background(), rec{Name: "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.ID == 0 {
		t.Error("expected store-assigned id")
	}

	got, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "gamma" {
		t.Errorf("read after completed write must reflect the write, got %+v", got)
	}
	if store.calls() != 2 {
		t.Errorf("expected reload after write, got %d store fetches", store.calls())
	}
}

func TestUpdateAndDeleteInvalidate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	added, _ := svc.Add(context.Background(), rec{Name: "delta"})

	added.Name = "delta prime"
	if err := svc.Update(context.Background(), added); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetAll(context.Background())
	if len(got) != 1 || got[0].Name != "delta prime" {
		t.Errorf("expected updated name, got %+v", got)
	}

	if err := svc.Delete(context.Background(), added.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = svc.GetAll(context.Background())
	if len(got) != 0 {
		t.Errorf("expected empty collection after delete, got %+v", got)
	}
}

func TestFailedWriteLeavesSnapshotClean(t *testing.T) {
	store := newFakeStore()
	store.Add(context.Background(), rec{Name: "epsilon"})
	svc := newTestService(store)
	svc.GetAll(context.Background())

	store.addErr = errors.New("insert failed")
	if _, err := svc.Add(context.Background(), rec{Name: "zeta"}); err == nil {
		t.Fatal("expected add error")
	}

	svc.GetAll(context.Background())
	if store.calls() != 1 {
		t.Errorf("failed write must not dirty the snapshot, got %d store fetches", store.calls())
	}
}

func TestGetAllReturnsDefensiveCopy(t *testing.T) {
	store := newFakeStore()
	store.Add(context.Background(), rec{Name: "eta"})
	svc := newTestService(store)

	first, _ := svc.GetAll(context.Background())
	first[0].Name = "corrupted"

	second, _ := svc.GetAll(context.Background())
	if second[0].Name != "eta" {
		t.Error("mutating a returned slice must not corrupt the shared cache")
	}
}

func TestGetByID(t *testing.T) {
	store := newFakeStore()
	added, _ := store.Add(context.Background(), rec{Name: "theta"})
	svc := newTestService(store)

	got, err := svc.GetByID(context.Background(), added.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "theta" {
		t.Errorf("expected theta, got %q", got.Name)
	}

	if _, err := svc.GetByID(context.Background(), 999); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchFiltersCachedList(t *testing.T) {
	store := newFakeStore()
	store.Add(context.Background(), rec{Name: "Alice Johnson"})
	store.Add(context.Background(), rec{Name: "Bob Smith"})
	svc := newTestService(store)

	got, err := svc.Search(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alice Johnson" {
		t.Errorf("expected Alice Johnson, got %+v", got)
	}

	// A write that bypasses this service is invisible until invalidation:
	// search deliberately avoids the store round-trip.
	store.Add(context.Background(), rec{Name: "Alice Cooper"})
	got, _ = svc.Search(context.Background(), "alice")
	if len(got) != 1 {
		t.Errorf("search must filter the snapshot, not the store, got %d hits", len(got))
	}

	svc.Invalidate()
	got, _ = svc.Search(context.Background(), "alice")
	if len(got) != 2 {
		t.Errorf("expected 2 hits after invalidation, got %d", len(got))
	}
}

func TestSearchMatchesID(t *testing.T) {
	store := newFakeStore()
	store.Add(context.Background(), rec{Name: "iota"})
	store.Add(context.Background(), rec{Name: "kappa"})
	svc := newTestService(store)

	got, err := svc.Search(context.Background(), "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected record 2, got %+v", got)
	}
}

func TestReadErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	svc := newTestService(store)

	if _, err := svc.GetAll(context.Background()); err == nil {
		t.Fatal("expected reload error to surface")
	}
	if _, err := svc.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected reload error to surface from search")
	}

	// Once the store recovers, reads succeed again.
	store.mu.Lock()
	store.getErr = nil
	store.mu.Unlock()
	if _, err := svc.GetAll(context.Background()); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
}

func TestSnapshotAtomicityUnderConcurrency(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 10; i++ {
		store.Add(context.Background(), rec{Name: "seed"})
	}
	svc := newTestService(store)

	var readers, writers sync.WaitGroup
	stop := make(chan struct{})

	// Writers keep dirtying the snapshot.
	writers.Add(1)
	go func() {
		defer writers.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				svc.Add(context.Background(), rec{Name: "writer"})
			} else {
				svc.Invalidate()
			}
		}
	}()

	// Readers must never observe a snapshot mixing two reload generations:
	// the fake store stamps every row of one GetAll with the same Gen.
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 200; i++ {
				got, err := svc.GetAll(context.Background())
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				for _, e := range got {
					if e.Gen != got[0].Gen {
						t.Error("torn snapshot: rows from different reload generations")
						return
					}
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	writers.Wait()
}
