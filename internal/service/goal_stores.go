package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/repository"
)

const (
	storeIdleTTL       = 30 * time.Minute
	storeSweepInterval = time.Minute
)

type storeEntry struct {
	store    *GoalStore
	lastUsed time.Time
}

// GoalStores hands out one GoalStore per signed-in owner. Stores are dropped
// on sign-out and after storeIdleTTL without use.
type GoalStores struct {
	goals   repository.GoalRepository
	metrics *metrics.Manager
	now     func() time.Time

	mu        sync.Mutex
	stores    map[string]*storeEntry
	lastSweep time.Time
}

func NewGoalStores(goals repository.GoalRepository, m *metrics.Manager) *GoalStores {
	return &GoalStores{
		goals:   goals,
		metrics: m,
		now:     time.Now,
		stores:  make(map[string]*storeEntry),
	}
}

func (s *GoalStores) For(owner string) *GoalStore {
	s.mu.Lock()
	now := s.now()
	evicted := s.sweep(now)

	entry, ok := s.stores[owner]
	if !ok {
		entry = &storeEntry{store: NewGoalStore(owner, s.goals, s.metrics)}
		s.stores[owner] = entry
	}
	entry.lastUsed = now
	s.mu.Unlock()

	for _, store := range evicted {
		store.Close()
	}
	if len(evicted) > 0 {
		slog.Debug("idle goal stores evicted", "count", len(evicted))
	}
	return entry.store
}

// sweep must be called with mu held. It removes idle entries at most once per
// storeSweepInterval and returns their stores for closing outside the lock.
func (s *GoalStores) sweep(now time.Time) []*GoalStore {
	if now.Sub(s.lastSweep) < storeSweepInterval {
		return nil
	}
	s.lastSweep = now

	var evicted []*GoalStore
	for owner, entry := range s.stores {
		if now.Sub(entry.lastUsed) > storeIdleTTL {
			evicted = append(evicted, entry.store)
			delete(s.stores, owner)
		}
	}
	return evicted
}

func (s *GoalStores) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Drop closes and forgets the owner's store.
func (s *GoalStores) Drop(owner string) {
	s.mu.Lock()
	entry, ok := s.stores[owner]
	delete(s.stores, owner)
	s.mu.Unlock()

	if ok {
		entry.store.Close()
	}
}

// HandleSessionChange drops the store of a user who signed out.
func (s *GoalStores) HandleSessionChange(event SessionEvent) {
	if event.Type == SessionSignedOut {
		s.Drop(event.UserID)
	}
}

func (s *GoalStores) Close() {
	s.mu.Lock()
	stores := s.stores
	s.stores = make(map[string]*storeEntry)
	s.mu.Unlock()

	for _, entry := range stores {
		entry.store.Close()
	}
}
