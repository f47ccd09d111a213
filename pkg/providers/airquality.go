package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/homepulse/homepulse/pkg/config"
)

type airQualityResponse struct {
	List []struct {
		Main struct {
			AQI float64 `json:"aqi"`
		} `json:"main"`
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			O3   float64 `json:"o3"`
			NO2  float64 `json:"no2"`
		} `json:"components"`
	} `json:"list"`
}

// AirQuality polls the air-quality index and pollutant concentrations
// for the configured location.
type AirQuality struct {
	*poller
	url    string
	client *http.Client
}

// NewAirQuality creates the air-quality provider.
func NewAirQuality(cfg *config.ProviderConfig, logger *slog.Logger) *AirQuality {
	q := url.Values{}
	q.Set("q", cfg.Location)
	q.Set("appid", cfg.APIKey)

	a := &AirQuality{
		url:    cfg.URL + "?" + q.Encode(),
		client: &http.Client{},
	}
	a.poller = newPoller(config.ProviderAirQuality, cfg, a.fetch, logger)
	return a
}

func (a *AirQuality) fetch(ctx context.Context) (map[string]any, error) {
	var resp airQualityResponse
	if err := getJSON(ctx, a.client, a.url, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return map[string]any{}, nil
	}

	r := resp.List[0]
	return map[string]any{
		"aqi":   r.Main.AQI,
		"pm2_5": r.Components.PM25,
		"pm10":  r.Components.PM10,
		"o3":    r.Components.O3,
		"no2":   r.Components.NO2,
	}, nil
}
