package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pogoslides/internal/feed"
	"pogoslides/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func events(names ...string) []model.Event {
	out := make([]model.Event, 0, len(names))
	for _, n := range names {
		out = append(out, model.Event{Name: n})
	}
	return out
}

func TestRefreshStoresEvents(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(func(context.Context) ([]model.Event, error) {
		return events("a", "b"), nil
	}, fixedClock(now))

	if got := s.Refresh(context.Background()); got != RefreshStarted {
		t.Fatalf("Refresh = %v, want %v", got, RefreshStarted)
	}

	got, updatedAt := s.Read(context.Background())
	if len(got) != 2 {
		t.Errorf("cached events = %d, want 2", len(got))
	}
	if !updatedAt.Equal(now) {
		t.Errorf("updatedAt = %v, want %v", updatedAt, now)
	}
}

func TestRefreshFailureKeepsPreviousEvents(t *testing.T) {
	fail := false
	s := New(func(context.Context) ([]model.Event, error) {
		if fail {
			return nil, errors.New("feed down")
		}
		return events("a"), nil
	}, nil)

	s.Refresh(context.Background())
	fail = true
	s.Refresh(context.Background())

	got, _ := s.Read(context.Background())
	if len(got) != 1 || got[0].Name != "a" {
		t.Errorf("cache did not stay stale-but-valid: %+v", got)
	}

	busy, _ := s.Snapshot()
	if busy {
		t.Error("busy flag not cleared after failed refresh")
	}
}

func TestRefreshNotModifiedBumpsTimestamp(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	s := New(func(context.Context) ([]model.Event, error) {
		calls++
		if calls > 1 {
			return nil, feed.ErrNotModified
		}
		return events("a"), nil
	}, func() time.Time { return clock })

	s.Refresh(context.Background())
	clock = clock.Add(time.Hour)
	s.Refresh(context.Background())

	got, updatedAt := s.Read(context.Background())
	if len(got) != 1 {
		t.Errorf("events replaced on not-modified: %+v", got)
	}
	if !updatedAt.Equal(time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("updatedAt = %v, want the second refresh time", updatedAt)
	}
}

func TestReadTriggersRefreshWhenEmpty(t *testing.T) {
	fetches := 0
	s := New(func(context.Context) ([]model.Event, error) {
		fetches++
		return events("a"), nil
	}, nil)

	got, _ := s.Read(context.Background())
	if fetches != 1 {
		t.Fatalf("fetches = %d, want 1", fetches)
	}
	if len(got) != 1 {
		t.Errorf("read after triggered refresh = %+v", got)
	}

	// A warm cache must not fetch again.
	s.Read(context.Background())
	if fetches != 1 {
		t.Errorf("fetches = %d after warm read, want 1", fetches)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := New(func(context.Context) ([]model.Event, error) {
		return events("a", "b"), nil
	}, nil)
	s.Refresh(context.Background())

	first, _ := s.Read(context.Background())
	first[0].Name = "mutated"
	second, _ := s.Read(context.Background())
	if second[0].Name != "a" {
		t.Error("Read exposed the internal slice")
	}
}

// Two simultaneous refreshes: exactly one fetches, the other returns
// already_running immediately without blocking on the in-flight fetch.
func TestConcurrentRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fetches := 0
	var mu sync.Mutex

	s := New(func(context.Context) ([]model.Event, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		close(entered)
		<-release
		return events("a"), nil
	}, nil)

	done := make(chan RefreshStatus, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	<-entered // first refresh is now inside the fetch

	start := time.Now()
	if got := s.Refresh(context.Background()); got != RefreshAlreadyRunning {
		t.Errorf("second Refresh = %v, want %v", got, RefreshAlreadyRunning)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("contended Refresh blocked for %v", elapsed)
	}

	close(release)
	if got := <-done; got != RefreshStarted {
		t.Errorf("first Refresh = %v, want %v", got, RefreshStarted)
	}

	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Errorf("fetches = %d, want exactly 1", fetches)
	}

	busy, _ := s.Snapshot()
	if busy {
		t.Error("busy flag not cleared")
	}
}
