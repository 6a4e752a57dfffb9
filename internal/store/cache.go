package store

import (
	"github.com/tutordesk/tutordesk-agent/internal/cache"
)

// Cached wraps a Store with an LRU over display-name lookups. Every
// inbound message and most notifications resolve a name, so this keeps
// the hot path off SQLite. Writes go through and refresh the cache.
type Cached struct {
	*Store
	names *cache.LRU[string, string]
}

// NewCached wraps the store with a name cache of the given capacity.
func NewCached(s *Store, capacity int) *Cached {
	return &Cached{
		Store: s,
		names: cache.New[string, string](capacity),
	}
}

// DisplayName returns the registered name, serving repeats from cache.
// Misses (unregistered users) are not cached; registration follows soon
// after and would only serve a stale negative.
func (c *Cached) DisplayName(userID string) (string, error) {
	if name, ok := c.names.Get(userID); ok {
		return name, nil
	}
	name, err := c.Store.DisplayName(userID)
	if err != nil {
		return "", err
	}
	c.names.Put(userID, name)
	return name, nil
}

// SaveUser writes through to the store and refreshes the cached name.
func (c *Cached) SaveUser(userID, name, email, class string) error {
	if err := c.Store.SaveUser(userID, name, email, class); err != nil {
		return err
	}
	c.names.Put(userID, name)
	return nil
}
