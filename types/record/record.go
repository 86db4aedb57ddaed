/*
Package record defines the activity record produced when a tracking
session is finalized. It is what storage and export consume.
*/
package record

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/types/activity"
)

type Record struct {
	SessionID string    `json:"sessionId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  float64   `json:"duration"` // seconds, as reported by the caller

	Label activity.Activity `json:"activity"`

	RawPath     orb.LineString `json:"rawPath"`
	FusedPath   orb.LineString `json:"fusedPath"`
	MatchedPath orb.LineString `json:"matchedPath"`

	RawDistance     float64 `json:"rawDistance"`     // meters
	MatchedDistance float64 `json:"matchedDistance"` // meters

	AvgConfidence float64 `json:"avgConfidence"`
	AvgTrust      float64 `json:"avgTrust"`
	AnomalyCount  int     `json:"anomalyCount"`
	AcceptedCount int     `json:"acceptedCount"`

	AvgCadence  float64 `json:"avgCadence"`  // steps/s
	AvgPace     float64 `json:"avgPace"`     // seconds/km
	KalmanSpeed float64 `json:"kalmanSpeed"` // m/s
}

// IsEmpty reports whether no fix was ever accepted.
func (r *Record) IsEmpty() bool {
	return r.AcceptedCount == 0
}

func (r *Record) properties(path string) geojson.Properties {
	return geojson.Properties{
		"SessionID":       r.SessionID,
		"Path":            path,
		"Activity":        r.Label.String(),
		"StartTime":       r.StartTime.Format(time.RFC3339),
		"EndTime":         r.EndTime.Format(time.RFC3339),
		"Duration":        r.Duration,
		"RawDistance":     common.DecimalToFixed(r.RawDistance, 1),
		"MatchedDistance": common.DecimalToFixed(r.MatchedDistance, 1),
		"AvgConfidence":   common.DecimalToFixed(r.AvgConfidence, 3),
		"AvgTrust":        common.DecimalToFixed(r.AvgTrust, 3),
		"AnomalyCount":    r.AnomalyCount,
		"AvgCadence":      common.DecimalToFixed(r.AvgCadence, 2),
		"AvgPace":         common.DecimalToFixed(r.AvgPace, 0),
	}
}

// FeatureCollection renders the raw, fused and matched paths as
// LineString features. Paths with fewer than two points are omitted.
func (r *Record) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range []struct {
		name string
		ls   orb.LineString
	}{
		{"raw", r.RawPath},
		{"fused", r.FusedPath},
		{"matched", r.MatchedPath},
	} {
		if len(p.ls) < 2 {
			continue
		}
		f := geojson.NewFeature(p.ls)
		f.Properties = r.properties(p.name)
		fc.Append(f)
	}
	return fc
}
