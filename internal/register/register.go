// Package register announces this service to the dashboard host that owns
// the slideshow rotation. Registration is best-effort: the dashboard may not
// be up yet, and the slides API works fine without it.
package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pogoslides/internal/config"
	appLog "pogoslides/internal/log"
)

// startupDelay gives the local HTTP server time to come up before the
// dashboard probes the registered URL.
const startupDelay = 5 * time.Second

// descriptor is the payload the dashboard expects for a slideshow tile.
type descriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	APIURL   string `json:"apiUrl"`
	Type     string `json:"type"`
	Size     string `json:"size"`
	Instance string `json:"instance"`
}

// Announce posts the service descriptor to the dashboard, retrying with
// backoff. It blocks until registered, the attempts run out, or ctx is
// canceled; callers run it in a goroutine. Failure is logged, never fatal.
func Announce(ctx context.Context, cfg *config.RegistrationConfig, serviceID, serviceName string) {
	if cfg == nil || cfg.URL == "" {
		appLog.Debug("registration disabled")
		return
	}

	select {
	case <-time.After(startupDelay):
	case <-ctx.Done():
		return
	}

	d := descriptor{
		ID:       serviceID,
		Name:     serviceName,
		URL:      cfg.PublicURL,
		APIURL:   cfg.PublicURL + "/api/events",
		Type:     "slideshow",
		Size:     "1x1",
		Instance: uuid.New().String(),
	}
	body, err := json.Marshal(d)
	if err != nil {
		appLog.Error("registration payload marshal failed", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// Exponential backoff with a cap; the dashboard often starts after us.
	const attempts = 5
	delay := 2 * time.Second
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			if delay < 30*time.Second {
				delay *= 2
			}
		}

		err := post(ctx, client, cfg.URL, body)
		if err == nil {
			appLog.Info("registered with dashboard", "url", cfg.URL, "instance", d.Instance)
			return
		}
		appLog.Warn("dashboard registration attempt failed", "err", err, "attempt", i+1, "url", cfg.URL)
	}
	appLog.Error("dashboard registration gave up", fmt.Errorf("exhausted %d attempts", attempts), "url", cfg.URL)
}

func post(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("register: %s", resp.Status)
	}
	return nil
}
