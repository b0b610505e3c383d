package cache

import (
	"sync"
	"time"

	"rendita/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries out of registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// Sweep runs one cleanup pass and returns the number of removed entries.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
