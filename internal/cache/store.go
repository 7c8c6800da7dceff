// Package cache holds the most recent raw event list and guards refresh so
// that at most one fetch is ever in flight, no matter how many callers ask.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"pogoslides/internal/feed"
	appLog "pogoslides/internal/log"
	"pogoslides/internal/metrics"
	"pogoslides/internal/model"
)

// FetchFunc produces a fresh raw event list. feed.ErrNotModified means the
// upstream content is unchanged since the last successful fetch.
type FetchFunc func(ctx context.Context) ([]model.Event, error)

// RefreshStatus is the outcome of a Refresh call.
type RefreshStatus string

const (
	// RefreshStarted means this call performed the fetch.
	RefreshStarted RefreshStatus = "ok"
	// RefreshAlreadyRunning means another refresh was in flight; this call
	// did nothing. It is a signal, not an error, and never blocks.
	RefreshAlreadyRunning RefreshStatus = "already_running"
)

// Store is the single process-wide event cache: the last fetched list, its
// timestamp and the busy flag, all guarded by one mutex so the triple is
// read and replaced atomically.
type Store struct {
	fetch FetchFunc
	now   func() time.Time

	mu        sync.Mutex
	events    []model.Event
	updatedAt time.Time // zero until the first successful fetch
	busy      bool
}

// New creates an empty Store around the given fetch capability. now may be
// nil, in which case time.Now is used; tests inject a fixed clock.
func New(fetch FetchFunc, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{fetch: fetch, now: now}
}

// Refresh fetches the feed and replaces the cached list wholesale. When a
// refresh is already running it returns RefreshAlreadyRunning immediately.
// A failed fetch leaves the existing list untouched, so transient feed
// trouble degrades to stale-but-valid rather than empty; on the very first
// fetch there is nothing to fall back to and the cache stays empty.
func (s *Store) Refresh(ctx context.Context) RefreshStatus {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		metrics.RefreshSkipped.Inc()
		return RefreshAlreadyRunning
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	events, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.events = events
		s.updatedAt = s.now()
		metrics.FeedFetches.WithLabelValues("ok").Inc()
		metrics.CachedEvents.Set(float64(len(events)))
		appLog.Info("cache refreshed", "event_count", len(events))
	case errors.Is(err, feed.ErrNotModified):
		// Unchanged upstream counts as a successful refresh of the list we
		// already hold.
		s.updatedAt = s.now()
		metrics.FeedFetches.WithLabelValues("not_modified").Inc()
	default:
		metrics.FeedFetches.WithLabelValues("error").Inc()
		appLog.Error("cache refresh failed, keeping previous events", err, "event_count", len(s.events))
	}
	return RefreshStarted
}

// Read returns the cached list and its timestamp. An empty cache triggers
// exactly one synchronous refresh attempt first; the result may still be
// empty if the feed is unreachable. The returned slice is a copy.
func (s *Store) Read(ctx context.Context) ([]model.Event, time.Time) {
	s.mu.Lock()
	empty := len(s.events) == 0
	s.mu.Unlock()

	if empty {
		s.Refresh(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	events := append([]model.Event(nil), s.events...)
	return events, s.updatedAt
}

// Snapshot reports the guard state for the refresh endpoint without touching
// the feed.
func (s *Store) Snapshot() (inProgress bool, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy, s.updatedAt
}
