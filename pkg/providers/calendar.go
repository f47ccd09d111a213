package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/homepulse/homepulse/pkg/config"
)

type calendarResponse struct {
	Items []struct {
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"items"`
}

// Calendar polls upcoming calendar events and derives an occupancy
// prediction. The bearer credential is managed out of band and handed
// in via configuration.
type Calendar struct {
	*poller
	url    string
	token  string
	client *http.Client
	now    func() time.Time
}

// NewCalendar creates the calendar provider.
func NewCalendar(cfg *config.ProviderConfig, logger *slog.Logger) *Calendar {
	q := url.Values{}
	q.Set("calendarId", cfg.CalendarID)
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	c := &Calendar{
		url:    cfg.URL + "?" + q.Encode(),
		token:  cfg.APIKey,
		client: &http.Client{},
		now:    time.Now,
	}
	c.poller = newPoller(config.ProviderCalendar, cfg, c.fetch, logger)
	return c
}

func (c *Calendar) fetch(ctx context.Context) (map[string]any, error) {
	var resp calendarResponse
	headers := map[string]string{"Authorization": "Bearer " + c.token}
	if err := getJSON(ctx, c.client, c.url, headers, &resp); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	fields := map[string]any{
		"occupied": false,
	}

	for _, item := range resp.Items {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}

		// An event in progress right now predicts occupancy.
		if !now.Before(start) && now.Before(end) {
			fields["occupied"] = true
			continue
		}
		if start.After(now) {
			fields["next_event_summary"] = item.Summary
			fields["next_event_in_minutes"] = start.Sub(now).Minutes()
			break
		}
	}
	return fields, nil
}
