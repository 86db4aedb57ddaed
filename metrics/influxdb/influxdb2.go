package influxdb

import (
	"errors"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/record"
)

var ErrNotConfigured = errors.New("influxdb not configured")

const (
	measurementRecord = "catfuse_record"
	measurementFused  = "catfuse_fused"
)

// RecordPoints renders one summary point for the record, stamped at its
// end time, plus one point per fused location if withPath is set.
// Fused points are spread evenly between start and end time.
func RecordPoints(rec *record.Record, withPath bool) []*write.Point {
	ts := rec.EndTime
	if ts.IsZero() {
		ts = time.Now()
	}
	out := []*write.Point{
		influxdb2.NewPointWithMeasurement(measurementRecord).
			SetTime(ts).
			AddTag("activity", rec.Label.String()).
			AddTag("session", rec.SessionID).
			SortTags().
			AddField("duration", rec.Duration).
			AddField("raw_distance", rec.RawDistance).
			AddField("matched_distance", rec.MatchedDistance).
			AddField("avg_confidence", rec.AvgConfidence).
			AddField("avg_trust", rec.AvgTrust).
			AddField("anomaly_count", rec.AnomalyCount).
			AddField("accepted_count", rec.AcceptedCount).
			AddField("avg_cadence", rec.AvgCadence).
			AddField("avg_pace", rec.AvgPace).
			AddField("kalman_speed", rec.KalmanSpeed),
	}
	if !withPath || len(rec.FusedPath) == 0 {
		return out
	}
	span := rec.EndTime.Sub(rec.StartTime)
	n := len(rec.FusedPath)
	for i, pt := range rec.FusedPath {
		t := rec.StartTime
		if n > 1 {
			t = t.Add(span * time.Duration(i) / time.Duration(n-1))
		}
		out = append(out, influxdb2.NewPointWithMeasurement(measurementFused).
			SetTime(t).
			AddTag("activity", rec.Label.String()).
			AddTag("session", rec.SessionID).
			SortTags().
			AddField("latitude", pt.Lat()).
			AddField("longitude", pt.Lon()).
			AddField("index", i))
	}
	return out
}

// ExportRecords posts records to an InfluxDB Write API.
// The Write API buffers and flushes; the last async error is returned.
func ExportRecords(cfg *params.InfluxConfig, records []*record.Record, withPath bool) error {
	if !cfg.Enabled() {
		return ErrNotConfigured
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	// Errors must be requested before any write to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, p := range RecordPoints(rec, withPath) {
			writeAPI.WritePoint(p)
		}
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
