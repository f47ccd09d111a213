package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/homepulse/homepulse/pkg/config"
)

// weatherResponse is the upstream current-conditions payload
// (OpenWeatherMap-compatible shape).
type weatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Weather polls current conditions for the configured location.
type Weather struct {
	*poller
	url    string
	client *http.Client
}

// NewWeather creates the weather provider.
func NewWeather(cfg *config.ProviderConfig, logger *slog.Logger) *Weather {
	q := url.Values{}
	q.Set("q", cfg.Location)
	q.Set("appid", cfg.APIKey)
	q.Set("units", "metric")

	w := &Weather{
		url:    cfg.URL + "?" + q.Encode(),
		client: &http.Client{},
	}
	w.poller = newPoller(config.ProviderWeather, cfg, w.fetch, logger)
	return w
}

func (w *Weather) fetch(ctx context.Context) (map[string]any, error) {
	var resp weatherResponse
	if err := getJSON(ctx, w.client, w.url, nil, &resp); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"temperature_c": resp.Main.Temp,
		"humidity_pct":  resp.Main.Humidity,
		"pressure_hpa":  resp.Main.Pressure,
		"wind_speed_ms": resp.Wind.Speed,
	}
	if len(resp.Weather) > 0 {
		fields["condition"] = resp.Weather[0].Main
		fields["description"] = resp.Weather[0].Description
	}
	return fields, nil
}
