package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/homepulse/homepulse/pkg/config"
)

type carbonResponse struct {
	Data struct {
		Intensity    float64 `json:"carbonIntensity"`
		RenewablePct float64 `json:"renewablePercentage"`
	} `json:"data"`
}

// Carbon polls the regional grid carbon intensity.
type Carbon struct {
	*poller
	url    string
	apiKey string
	client *http.Client
}

// NewCarbon creates the carbon-intensity provider.
func NewCarbon(cfg *config.ProviderConfig, logger *slog.Logger) *Carbon {
	q := url.Values{}
	q.Set("zone", cfg.Region)

	c := &Carbon{
		url:    cfg.URL + "?" + q.Encode(),
		apiKey: cfg.APIKey,
		client: &http.Client{},
	}
	c.poller = newPoller(config.ProviderCarbon, cfg, c.fetch, logger)
	return c
}

func (c *Carbon) fetch(ctx context.Context) (map[string]any, error) {
	var resp carbonResponse
	headers := map[string]string{"auth-token": c.apiKey}
	if err := getJSON(ctx, c.client, c.url, headers, &resp); err != nil {
		return nil, err
	}
	return map[string]any{
		"intensity_gco2_kwh": resp.Data.Intensity,
		"renewable_pct":      resp.Data.RenewablePct,
	}, nil
}
