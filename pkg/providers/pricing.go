package providers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/homepulse/homepulse/pkg/config"
)

type pricingResponse struct {
	Currency string `json:"currency"`
	Current  struct {
		PricePerKWh float64 `json:"price_per_kwh"`
	} `json:"current"`
	// Forecast holds hourly prices for up to the next 24 hours.
	Forecast []struct {
		PricePerKWh float64 `json:"price_per_kwh"`
	} `json:"forecast"`
}

// Pricing polls the current electricity price and its 24 h forecast.
type Pricing struct {
	*poller
	url    string
	apiKey string
	client *http.Client
}

// NewPricing creates the electricity-pricing provider.
func NewPricing(cfg *config.ProviderConfig, logger *slog.Logger) *Pricing {
	p := &Pricing{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{},
	}
	p.poller = newPoller(config.ProviderPricing, cfg, p.fetch, logger)
	return p
}

func (p *Pricing) fetch(ctx context.Context) (map[string]any, error) {
	var resp pricingResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := getJSON(ctx, p.client, p.url, headers, &resp); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"price_per_kwh":  resp.Current.PricePerKWh,
		"price_currency": resp.Currency,
	}

	// Collapse the forecast window into flat summary fields.
	if n := min(len(resp.Forecast), 24); n > 0 {
		sum := 0.0
		minPrice := resp.Forecast[0].PricePerKWh
		maxPrice := minPrice
		for _, f := range resp.Forecast[:n] {
			sum += f.PricePerKWh
			minPrice = min(minPrice, f.PricePerKWh)
			maxPrice = max(maxPrice, f.PricePerKWh)
		}
		fields["price_next_hour"] = resp.Forecast[0].PricePerKWh
		fields["price_avg_24h"] = sum / float64(n)
		fields["price_min_24h"] = minPrice
		fields["price_max_24h"] = maxPrice
	}
	return fields, nil
}
