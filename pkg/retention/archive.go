package retention

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/store"
)

// runArchive moves cold rows past the cold retention horizon to object
// storage. Rows are serialized as line protocol, one object per UTC
// day. A day's rows are deleted from the store only after its object
// upload is confirmed, so a failed upload leaves the data queryable and
// the next run retries it.
func (e *Engine) runArchive(ctx context.Context) error {
	if e.objects == nil {
		return errors.New("no archive object store configured")
	}

	cutoff := e.now().UTC().Add(-e.cfg.Cold.RetentionHorizon.Std()).Truncate(24 * time.Hour)
	epoch := time.Unix(0, 0).UTC()

	recs, err := e.store.Query(ctx, measurementRangeQuery(e.store.Bucket(), e.cfg.Cold.MeasurementName, epoch, cutoff))
	if err != nil {
		return fmt.Errorf("querying expired cold rows: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	byDay := groupPointsByDay(recs, e.cfg.Cold.MeasurementName)
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		points := byDay[day]
		body, err := store.EncodePoints(points)
		if err != nil {
			return fmt.Errorf("encoding archive for %s: %w", day.Format(time.DateOnly), err)
		}

		key := path.Join(e.cfg.Archive.Prefix, day.Format("2006/01/02"), e.store.Bucket()+".lp")
		putCtx, cancel := context.WithTimeout(ctx, e.cfg.Archive.UploadTimeout.Std())
		err = e.objects.Put(putCtx, key, body)
		cancel()
		if err != nil {
			return fmt.Errorf("uploading %s: %w", key, err)
		}

		predicate := fmt.Sprintf("_measurement=%q", e.cfg.Cold.MeasurementName)
		if err := e.store.Delete(ctx, day, day.Add(24*time.Hour), predicate); err != nil {
			return fmt.Errorf("deleting archived rows for %s: %w", day.Format(time.DateOnly), err)
		}

		e.logger.Info("Archived cold rows",
			"key", key,
			"points", len(points),
			"bytes", len(body))
		metricRowsArchived.Add(float64(len(points)))
	}
	return nil
}

// groupPointsByDay reassembles query records into points, bucketed by
// the UTC day of their timestamp. Records arrive one field per row;
// rows sharing (_time, entity_id, domain) fold into one point.
func groupPointsByDay(recs []store.Record, measurement string) map[time.Time][]models.Point {
	type pointKey struct {
		at       int64
		entityID string
		domain   string
	}

	points := make(map[pointKey]*models.Point)
	var order []pointKey
	for _, rec := range recs {
		at, err := time.Parse(time.RFC3339Nano, rec["_time"])
		if err != nil {
			continue
		}
		key := pointKey{at: at.UnixNano(), entityID: rec.Tag("entity_id"), domain: rec.Tag("domain")}
		pt, ok := points[key]
		if !ok {
			pt = &models.Point{
				Measurement: measurement,
				Tags: map[string]string{
					"entity_id": key.entityID,
					"domain":    key.domain,
				},
				Fields: make(map[string]any),
				Time:   at.UTC(),
			}
			points[key] = pt
			order = append(order, key)
		}
		pt.Fields[rec["_field"]] = parseFieldValue(rec["_field"], rec.Value())
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].at != order[j].at {
			return order[i].at < order[j].at
		}
		if order[i].domain != order[j].domain {
			return order[i].domain < order[j].domain
		}
		return order[i].entityID < order[j].entityID
	})

	byDay := make(map[time.Time][]models.Point)
	for _, key := range order {
		pt := points[key]
		day := pt.Time.Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], *pt)
	}
	return byDay
}

// parseFieldValue restores the stored type: count is integral,
// everything else numeric, with a string fallback.
func parseFieldValue(field, raw string) any {
	if field == "count" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func measurementRangeQuery(bucket, measurement string, start, end time.Time) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)`,
		bucket,
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
		measurement)
}
