package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	appLog "pogoslides/internal/log"
	"pogoslides/internal/model"
)

// DefaultURL is the scraped events feed this service was built around.
const DefaultURL = "https://raw.githubusercontent.com/bigfoott/ScrapedDuck/data/events.json"

const userAgent = "pogoslides/1.0"

// ErrNotModified reports a conditional fetch answered with 304: the feed has
// not changed since the last successful fetch.
var ErrNotModified = errors.New("feed not modified")

// Fetcher performs the upstream feed GET, honoring ETag and Last-Modified
// from the previous successful fetch. Validators live in memory only; a
// restart simply refetches.
type Fetcher struct {
	client *http.Client
	url    string

	mu           sync.Mutex
	etag         string
	lastModified string
}

// NewFetcher creates a Fetcher for the given feed URL.
//
// The client carries no timeout on purpose: refreshes are serialized by the
// cache guard and a hung upstream call is an accepted risk here, preferred
// over a refresh that silently truncates a slow response.
func NewFetcher(url string) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	return &Fetcher{
		client: &http.Client{},
		url:    url,
	}
}

// Fetch GETs the feed and decodes the JSON event array. It returns
// ErrNotModified when the upstream answers 304; any other non-OK status or
// transport error is returned as-is for the caller to log.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	f.mu.Lock()
	if f.etag != "" {
		req.Header.Set("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.Header.Set("If-Modified-Since", f.lastModified)
	}
	f.mu.Unlock()

	appLog.Debug("feed fetch start", "url", f.url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		var events []model.Event
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}

		f.mu.Lock()
		f.etag = resp.Header.Get("ETag")
		f.lastModified = resp.Header.Get("Last-Modified")
		f.mu.Unlock()

		appLog.Info("feed fetch success", "url", f.url, "event_count", len(events))
		return events, nil

	case http.StatusNotModified:
		appLog.Info("feed not modified", "url", f.url)
		return nil, ErrNotModified

	default:
		return nil, fmt.Errorf("feed fetch: %s", resp.Status)
	}
}
