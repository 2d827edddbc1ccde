package aggregator

import (
	"sync"
	"time"
)

// InstitutionCache memoizes connector names per connection with a bounded
// TTL, so repeated syncs of the same connection skip the item lookup. It is
// injected into the sync processor instead of living as process-wide state.
type InstitutionCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]institutionEntry
}

type institutionEntry struct {
	name    string
	expires time.Time
}

func NewInstitutionCache(ttl time.Duration) *InstitutionCache {
	return &InstitutionCache{
		ttl:     ttl,
		entries: make(map[string]institutionEntry),
	}
}

func (c *InstitutionCache) Get(itemID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[itemID]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, itemID)
		return "", false
	}
	return entry.name, true
}

func (c *InstitutionCache) Put(itemID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[itemID] = institutionEntry{
		name:    name,
		expires: time.Now().Add(c.ttl),
	}
}
