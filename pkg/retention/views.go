package retention

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// runViews refreshes each configured materialized view over its
// previous full window. A failing view is logged and does not block
// the others; the job reports failure if any view failed so the run
// is retried.
func (e *Engine) runViews(ctx context.Context) error {
	var errs []error
	for _, view := range e.cfg.Views {
		if err := e.refreshView(ctx, view); err != nil {
			e.logger.Error("View refresh failed", "view", view.Name, "error", err)
			errs = append(errs, fmt.Errorf("view %s: %w", view.Name, err))
			continue
		}
		metricViewRefreshes.WithLabelValues(view.Name).Inc()
	}
	return errors.Join(errs...)
}

func (e *Engine) refreshView(ctx context.Context, view config.ViewConfig) error {
	start, end := previousWindow(e.now(), view.Window.Std())

	field := "state_numeric"
	if view.Aggregate == "count" {
		field = "state"
	}
	recs, err := e.store.Query(ctx, fieldRangeQuery(e.store.Bucket(), view.Source, field, start, end))
	if err != nil {
		return err
	}

	samples := make(map[groupKey][]sample)
	counts := make(map[groupKey]int)
	for _, rec := range recs {
		key := recordKey(rec)
		counts[key]++
		if view.Aggregate == "count" {
			continue
		}
		value, verr := strconv.ParseFloat(rec.Value(), 64)
		if verr != nil {
			continue
		}
		at, terr := time.Parse(time.RFC3339Nano, rec["_time"])
		if terr != nil {
			continue
		}
		samples[key] = append(samples[key], sample{at: at, value: value})
	}

	keys := make([]groupKey, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].domain != keys[j].domain {
			return keys[i].domain < keys[j].domain
		}
		return keys[i].entityID < keys[j].entityID
	})

	points := make([]models.Point, 0, len(keys))
	for _, key := range keys {
		value, ok := aggregateValue(view.Aggregate, counts[key], samples[key])
		if !ok {
			continue
		}
		points = append(points, models.Point{
			Measurement: view.Destination,
			Tags: map[string]string{
				"entity_id": key.entityID,
				"domain":    key.domain,
			},
			Fields: map[string]any{view.Aggregate: value},
			Time:   start,
		})
	}

	if len(points) == 0 {
		return nil
	}
	return e.store.WritePoints(ctx, points)
}

// aggregateValue applies one view aggregate to a group. Aggregates over
// numeric samples return no value for groups with none.
func aggregateValue(aggregate string, count int, group []sample) (any, bool) {
	if aggregate == "count" {
		return int64(count), true
	}
	if len(group) == 0 {
		return nil, false
	}
	sort.Slice(group, func(i, j int) bool { return group[i].at.Before(group[j].at) })

	switch aggregate {
	case "last":
		return group[len(group)-1].value, true
	case "sum", "mean":
		sum := 0.0
		for _, s := range group {
			sum += s.value
		}
		if aggregate == "sum" {
			return sum, true
		}
		return sum / float64(len(group)), true
	case "min":
		min := group[0].value
		for _, s := range group {
			if s.value < min {
				min = s.value
			}
		}
		return min, true
	case "max":
		max := group[0].value
		for _, s := range group {
			if s.value > max {
				max = s.value
			}
		}
		return max, true
	default:
		return nil, false
	}
}
