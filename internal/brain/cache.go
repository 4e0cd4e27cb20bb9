package brain

import (
	"sync"
	"time"
)

// Cache keeps the deserialized brain per name together with the modification
// time of the file it came from. Entries are replaced on a stamp mismatch and
// never evicted, so the cache grows with the number of brains, which is
// expected to stay in the tens.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	stamp time.Time
	brain *Brain
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached brain if it was loaded from a file with this stamp.
func (c *Cache) Get(name string, stamp time.Time) (*Brain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok || !entry.stamp.Equal(stamp) {
		return nil, false
	}
	return entry.brain, true
}

func (c *Cache) Put(name string, stamp time.Time, b *Brain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = cacheEntry{stamp: stamp, brain: b}
}

func (c *Cache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// nameLocks serializes writers of the same brain.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *nameLocks) lock(name string) func() {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
