package calendar

import (
	"sync"
	"time"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// Cache retains the last successfully fetched event list. When the feed is
// down, downstream components keep working on stale-but-available data; the
// poller escalates to a warning only once staleness crosses its threshold.
type Cache struct {
	mu        sync.RWMutex
	events    []domain.ExternalBookingEvent
	fetchedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Store replaces the cached events after a successful fetch.
func (c *Cache) Store(events []domain.ExternalBookingEvent, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
	c.fetchedAt = fetchedAt
}

// Events returns the cached event list and when it was fetched.
// ok is false until the first successful fetch.
func (c *Cache) Events() (events []domain.ExternalBookingEvent, fetchedAt time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() {
		return nil, time.Time{}, false
	}
	// Copy so callers cannot mutate the cached slice.
	out := make([]domain.ExternalBookingEvent, len(c.events))
	copy(out, c.events)
	return out, c.fetchedAt, true
}

// StaleBy reports whether the cached data is older than threshold at now.
// An empty cache is not "stale" — there is nothing to be stale.
func (c *Cache) StaleBy(now time.Time, threshold time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() {
		return false
	}
	return now.Sub(c.fetchedAt) > threshold
}
