package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wellnest/backend/internal/domain/shared"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// MemoryStore is a process-local TTL map. It stands in for Redis in tests and
// single-instance deployments: idempotency keys, payment locks, carts and
// carrier tokens all live here when Redis is unavailable.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates a store and starts its expiry sweeper
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkProcessed records key for ttl. Returns false if it was already recorded
func (s *MemoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.setNX(key, []byte("1"), ttl), nil
}

// IsProcessed checks if a key has been recorded and not expired
func (s *MemoryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.lookup(key)
	return ok, nil
}

// TryLock takes key for ttl unless someone else holds it
func (s *MemoryStore) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.setNX("lock:"+key, []byte("1"), ttl), nil
}

// Unlock releases key
func (s *MemoryStore) Unlock(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, "lock:"+key)
	s.mu.Unlock()
	return nil
}

// Get returns the value stored under key
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lookup(key)
	return v, ok, nil
}

// Set stores value under key for ttl
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = entry{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes key
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call multiple times
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries, expired or not
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) setNX(key string, value []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.entries[key]; ok && e.live(now) {
		return false
	}
	s.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (s *MemoryStore) lookup(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !e.live(time.Now()) {
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, key)
		}
	}
}

var (
	_ shared.IdempotencyStore = (*MemoryStore)(nil)
	_ shared.KeyLocker        = (*MemoryStore)(nil)
	_ KV                      = (*MemoryStore)(nil)
)
