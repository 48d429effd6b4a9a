package calendar

import (
	"context"
	"log/slog"
	"time"
)

// Poller fetches the feed on a fixed interval and keeps the cache current.
// It runs as a background task; operator and guest requests only ever read
// the cache, never the network.
type Poller struct {
	client     *Client
	cache      *Cache
	interval   time.Duration
	staleAfter time.Duration
	log        *slog.Logger
}

// NewPoller constructs a poller over client and cache.
// staleAfter controls when repeated failures escalate from info to warning.
func NewPoller(client *Client, cache *Cache, interval, staleAfter time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		client:     client,
		cache:      cache,
		interval:   interval,
		staleAfter: staleAfter,
		log:        log.With("component", "calendar-poller"),
	}
}

// Run polls until ctx is cancelled. The first fetch happens immediately so
// the cache is warm shortly after startup.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one fetch-and-store cycle. Failures keep the previous cache
// contents; only staleness past the threshold is worth a warning.
func (p *Poller) poll(ctx context.Context) {
	events, err := p.client.Fetch(ctx)
	if err != nil {
		now := time.Now()
		if p.cache.StaleBy(now, p.staleAfter) {
			p.log.Warn("feed unavailable and cache stale", "error", err, "stale_after", p.staleAfter)
		} else {
			p.log.Info("feed fetch failed, serving cached events", "error", err)
		}
		return
	}

	p.cache.Store(events, time.Now())
	p.log.Debug("feed refreshed", "events", len(events))
}
