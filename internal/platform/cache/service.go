// Package cache provides a read-through, whole-snapshot cache over an entity
// record store. One Service instance owns the cached snapshot for one entity
// collection; reads are served from memory, writes pass through to the store
// and invalidate the snapshot so the next read reloads it.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

// Entity is a record with an integer identity assigned by the backing store.
// An id of zero means the record has not been persisted yet.
type Entity interface {
	EntityID() int
}

// Store is the record-store surface the cache accelerates. Add returns the
// entity with its store-assigned id; Update and Delete report db.ErrNotFound
// when no row matches.
type Store[T Entity] interface {
	GetAll(ctx context.Context) ([]T, error)
	Add(ctx context.Context, e T) (T, error)
	Update(ctx context.Context, e T) error
	Delete(ctx context.Context, id int) error
}

// MatchFunc reports whether an entity matches a search query. The query is
// already lower-cased.
type MatchFunc[T Entity] func(e T, query string) bool

// Service is a cache-backed view of one entity collection. All methods are
// safe for concurrent use; the snapshot (map, list, dirty flag) changes
// atomically with respect to every other operation on the same instance.
type Service[T Entity] struct {
	store Store[T]
	match MatchFunc[T]
	log   zerolog.Logger

	mu    sync.Mutex
	byID  map[int]T
	list  []T
	dirty bool
}

// NewService wraps store with an empty, dirty snapshot; the first read
// populates it.
func NewService[T Entity](store Store[T], match MatchFunc[T], log zerolog.Logger) *Service[T] {
	return &Service[T]{
		store: store,
		match: match,
		log:   log,
		byID:  make(map[int]T),
		dirty: true,
	}
}

// reloadLocked rebuilds the map and list together from the store. Callers
// must hold s.mu, which is what keeps a concurrent reader from observing the
// map and list from two different reload generations.
func (s *Service[T]) reloadLocked(ctx context.Context) error {
	start := time.Now()
	items, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	byID := make(map[int]T, len(items))
	for _, e := range items {
		byID[e.EntityID()] = e
	}
	s.byID = byID
	s.list = items
	s.dirty = false

	s.log.Debug().Int("records", len(items)).Dur("took", time.Since(start)).Msg("cache snapshot reloaded")
	return nil
}

// GetAll returns the cached collection in store order, reloading it first if
// a write has invalidated it. The returned slice is the caller's to mutate.
func (s *Service[T]) GetAll(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		if err := s.reloadLocked(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]T, len(s.list))
	copy(out, s.list)
	return out, nil
}

// GetByID returns the cached entity with the given id, or db.ErrNotFound.
func (s *Service[T]) GetByID(ctx context.Context, id int) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		if err := s.reloadLocked(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	e, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, db.ErrNotFound
	}
	return e, nil
}

// Search filters the cached list in memory rather than hitting the store,
// trading a staleness window bounded by the last write through this service
// for speed. The match is expected to be a case-insensitive substring check.
func (s *Service[T]) Search(ctx context.Context, query string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		if err := s.reloadLocked(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	lowered := strings.ToLower(query)
	var out []T
	for _, e := range s.list {
		if s.match(e, lowered) {
			out = append(out, e)
		}
	}
	s.log.Debug().Str("query", query).Int("hits", len(out)).Dur("took", time.Since(start)).Msg("in-memory search")
	return out, nil
}

// Add inserts through the store and invalidates the snapshot on success. A
// DuplicateEntryError from the store propagates unchanged.
func (s *Service[T]) Add(ctx context.Context, e T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.store.Add(ctx, e)
	if err != nil {
		return added, err
	}
	s.dirty = true
	return added, nil
}

// Update replaces the stored record and invalidates the snapshot on success.
func (s *Service[T]) Update(ctx context.Context, e T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Update(ctx, e); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Delete removes the stored record and invalidates the snapshot on success.
func (s *Service[T]) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Invalidate marks the snapshot dirty without touching the store. Services
// call it after writes that bypass the generic store surface, such as the
// patient cascade delete.
func (s *Service[T]) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}
