package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pogoslides/internal/cache"
	"pogoslides/internal/config"
	"pogoslides/internal/model"
)

// Saturday, late morning UTC: both feed events below are active and the
// default Sunday synthetic stays out.
var testNow = time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)

func testFeed() []model.Event {
	img := "https://example.com/cd.png"
	link := "https://example.com/cd"
	return []model.Event{
		{Name: "Community Day", Heading: "Event", Start: "2024-06-01T10:00:00Z", End: "2024-06-01T13:00:00Z", Image: &img, Link: &link},
		{Name: "Mega Rayquaza", Heading: "Raid Battles", Start: "2024-06-01T00:00:00Z", End: "2024-06-08T00:00:00Z"},
		{Name: "GBL Season", Heading: "GO Battle League", Start: "2024-06-01T00:00:00Z", End: "2024-06-08T00:00:00Z"},
		{Name: "Soon", Heading: "Event", Start: "2024-06-10T00:00:00Z", End: "2024-06-11T00:00:00Z"},
	}
}

func testServer(events []model.Event) *Server {
	store := cache.New(func(context.Context) ([]model.Event, error) {
		return events, nil
	}, func() time.Time { return testNow })

	cfg := config.DefaultConfig()
	cfg.Synthetic = []config.SyntheticConfig{} // keep test output day-independent
	return NewServer(cfg, store, func() time.Time { return testNow })
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSlidesEndpoint(t *testing.T) {
	rec := get(t, testServer(testFeed()), "/api/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Slides []model.Slide `json:"slides"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Raids first, then the Event group, then the single upcoming slide.
	wantTitles := []string{"Current Raid Battles", "Current Event", "Upcoming events"}
	if len(resp.Slides) != len(wantTitles) {
		t.Fatalf("slides = %+v", resp.Slides)
	}
	for i, want := range wantTitles {
		if resp.Slides[i].Title != want {
			t.Errorf("slide[%d] = %q, want %q", i, resp.Slides[i].Title, want)
		}
	}
	item := resp.Slides[1].Items[0]
	if item.Value != "Jun 01, 10:00 - Jun 01, 13:00" {
		t.Errorf("item value = %q", item.Value)
	}
	if item.ImageURL != "https://example.com/cd.png" {
		t.Errorf("item image = %q", item.ImageURL)
	}

	if strings.Contains(rec.Body.String(), "GBL Season") {
		t.Error("excluded heading leaked into slide output")
	}
}

func TestSlidesIdempotent(t *testing.T) {
	s := testServer(testFeed())
	first := get(t, s, "/api/events").Body.String()
	second := get(t, s, "/api/events").Body.String()
	if first != second {
		t.Error("two reads with the same now produced different bodies")
	}
}

func TestSlidesFallbackOnEmptyFeed(t *testing.T) {
	rec := get(t, testServer(nil), "/api/events")

	var resp struct {
		Slides []model.Slide `json:"slides"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slides) != 1 || resp.Slides[0].Title != "No current events" {
		t.Errorf("slides = %+v, want the single fallback slide", resp.Slides)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := testServer(testFeed())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status      string  `json:"status"`
		InProgress  bool    `json:"in_progress"`
		LastUpdated *string `json:"last_updated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.InProgress {
		t.Error("in_progress should be false after a synchronous refresh")
	}
	if resp.LastUpdated == nil || *resp.LastUpdated != testNow.Format(time.RFC3339) {
		t.Errorf("last_updated = %v", resp.LastUpdated)
	}

	// Refresh is POST-only.
	if rec := get(t, s, "/api/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/refresh status = %d, want 405", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, testServer(nil), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" || resp["service"] != ServiceName {
		t.Errorf("health body = %v", resp)
	}
}

func TestICSExport(t *testing.T) {
	rec := get(t, testServer(testFeed()), "/api/events.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "SUMMARY:Community Day") {
		t.Errorf("ICS body missing expected entries:\n%s", body)
	}
	if strings.Contains(body, "GBL Season") {
		t.Error("excluded heading leaked into ICS export")
	}
}
