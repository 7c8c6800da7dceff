package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pogoslides/internal/cache"
	"pogoslides/internal/config"
	appLog "pogoslides/internal/log"
	"pogoslides/internal/metrics"
	"pogoslides/internal/model"
	"pogoslides/internal/pipeline"
)

// ServiceName identifies this service in the liveness response and the
// dashboard registration payload.
const ServiceName = "pokemon-go-events"

// Server exposes the slide view of the event cache over HTTP.
type Server struct {
	store *cache.Store
	mux   *http.ServeMux
	now   func() time.Time

	// Pipeline settings swap wholesale on config hot reload.
	optMu      sync.RWMutex
	window     time.Duration
	excluded   map[string]bool
	synthetics []pipeline.Synthetic
}

// NewServer constructs a Server. now may be nil (time.Now); tests inject a
// fixed clock so slide output is reproducible.
func NewServer(cfg *config.Config, store *cache.Store, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
		now:   now,
	}
	s.ApplyConfig(cfg)
	s.registerRoutes()
	return s
}

// ApplyConfig installs the pipeline-relevant settings from cfg. Safe to call
// while serving; the config watcher uses it for hot reload.
func (s *Server) ApplyConfig(cfg *config.Config) {
	synthetics := make([]pipeline.Synthetic, 0, len(cfg.Synthetic))
	for _, sc := range cfg.Synthetic {
		syn := pipeline.Synthetic{
			Name:  sc.Name,
			RRule: sc.RRule,
			Image: sc.Image,
			Link:  sc.Link,
		}
		if syn.Image == "" {
			syn.Image = pipeline.PlaceholderImage
		}
		if syn.Link == "" {
			syn.Link = pipeline.PlaceholderLink
		}
		synthetics = append(synthetics, syn)
	}

	s.optMu.Lock()
	s.window = time.Duration(cfg.WindowDays) * 24 * time.Hour
	s.excluded = pipeline.ExclusionSet(cfg.Excluded)
	s.synthetics = synthetics
	s.optMu.Unlock()
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleSlides)
	s.mux.HandleFunc("GET /api/events.ics", s.handleICS)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// slidesResponse is the JSON response shape for /api/events.
type slidesResponse struct {
	Slides []model.Slide `json:"slides"`
}

// handleSlides runs the full pipeline over the cached feed: classify at the
// current instant, compose, respond. An empty cache triggers one synchronous
// refresh inside Read.
func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	cl, _ := s.classify(r)
	now := s.now()

	s.optMu.RLock()
	composer := pipeline.Composer{
		Window:     s.window,
		Synthetics: s.synthetics,
	}
	s.optMu.RUnlock()

	slides := composer.Compose(cl, now)
	metrics.SlidesComposed.Observe(float64(len(slides)))

	writeJSON(w, http.StatusOK, slidesResponse{Slides: slides})
}

// refreshResponse is the JSON response shape for /api/refresh.
type refreshResponse struct {
	Status      string  `json:"status"`
	InProgress  bool    `json:"in_progress"`
	LastUpdated *string `json:"last_updated"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status := s.store.Refresh(r.Context())

	inProgress, updatedAt := s.store.Snapshot()
	var last *string
	if !updatedAt.IsZero() {
		v := updatedAt.UTC().Format(time.RFC3339)
		last = &v
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Status:      string(status),
		InProgress:  inProgress,
		LastUpdated: last,
	})
}

// handleICS exports the classified sets as an iCalendar feed, so the same
// events can be subscribed to from a regular calendar client.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	cl, now := s.classify(r)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//pogoslides//EN")

	for _, ev := range append(cl.Current, cl.Upcoming...) {
		// Deterministic UID per (name, start) so clients de-dup across
		// refreshes.
		uid := uuid.NewSHA1(uuid.NameSpaceURL, []byte(ev.Raw.Name+"|"+ev.Raw.Start)).String()
		ve := cal.AddEvent(uid + "@pogoslides")
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Raw.Name)
		ve.SetDescription(ev.Category)
		if link := ev.Raw.LinkURL(); link != "" {
			ve.SetURL(link)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		appLog.Error("failed to write ICS response", err)
	}
}

// classify reads the cache and partitions it at the current instant.
func (s *Server) classify(r *http.Request) (pipeline.Classification, time.Time) {
	events, _ := s.store.Read(r.Context())
	now := s.now()

	s.optMu.RLock()
	window := s.window
	excluded := s.excluded
	s.optMu.RUnlock()

	return pipeline.Classify(events, now, window, excluded), now
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
