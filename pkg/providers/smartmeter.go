package providers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/homepulse/homepulse/pkg/config"
)

type smartMeterResponse struct {
	PowerW         float64            `json:"power_w"`
	EnergyTodayKWh float64            `json:"energy_today_kwh"`
	Circuits       map[string]float64 `json:"circuits"`
}

// SmartMeter polls whole-home power draw and, when the meter reports
// them, per-circuit breakdowns.
type SmartMeter struct {
	*poller
	url    string
	apiKey string
	client *http.Client
}

// NewSmartMeter creates the smart-meter provider.
func NewSmartMeter(cfg *config.ProviderConfig, logger *slog.Logger) *SmartMeter {
	s := &SmartMeter{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{},
	}
	s.poller = newPoller(config.ProviderSmartMeter, cfg, s.fetch, logger)
	return s
}

func (s *SmartMeter) fetch(ctx context.Context) (map[string]any, error) {
	var resp smartMeterResponse
	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + s.apiKey}
	}
	if err := getJSON(ctx, s.client, s.url, headers, &resp); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"power_w":          resp.PowerW,
		"energy_today_kwh": resp.EnergyTodayKWh,
	}
	for name, watts := range resp.Circuits {
		key := "circuit_" + sanitizeKey(name) + "_w"
		fields[key] = watts
	}
	return fields, nil
}

// sanitizeKey turns a circuit label into a field-name segment.
func sanitizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
