/*
Package refine turns a fused trace into a clean, distance-accurate path.

Every stage is total: it never fails and always returns a usable
sequence, in the input's order.
*/
package refine

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/geo/geodesy"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/route"
	"github.com/rotblauer/catfuse/types/activity"
)

// Result holds the output of each stage.
type Result struct {
	Cleaned    orb.LineString
	Simplified orb.LineString
	Smoothed   orb.LineString
	Matched    orb.LineString
	Distance   float64 // meters, along Matched
}

// Refine runs outlier removal, simplification, smoothing and route
// snapping over path. The activity selects the simplification tolerance
// and the routing mode. A nil router snaps nothing.
func Refine(ctx context.Context, path orb.LineString, act activity.Activity, router route.Router, config *params.RefineConfig) Result {
	if config == nil {
		config = params.DefaultRefineConfig()
	}
	if router == nil {
		router = route.Identity{}
	}
	started := time.Now()

	res := Result{}
	res.Cleaned = RemoveOutliers(path, config.OutlierMaxSpeed, config.OutlierInterval)
	res.Simplified = Simplify(res.Cleaned, Tolerance(act, config))
	res.Smoothed = Smooth(res.Simplified, config.SmoothingWindow)
	res.Matched = Snap(ctx, res.Smoothed, router, route.ModeFor(act), config)
	res.Distance = Distance(res.Matched)

	slog.Debug("Refined path",
		"activity", act.String(),
		"in", len(path),
		"cleaned", len(res.Cleaned),
		"simplified", len(res.Simplified),
		"matched", len(res.Matched),
		"distance", res.Distance,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return res
}

// Tolerance is the simplification tolerance for an activity, meters.
func Tolerance(act activity.Activity, config *params.RefineConfig) float64 {
	if act == activity.Run {
		return config.SimplifyToleranceRun
	}
	return config.SimplifyTolerance
}

// Distance is the sum of consecutive great-circle distances.
func Distance(path orb.LineString) float64 {
	return geodesy.Length(path)
}

// RemoveOutliers keeps a point only if reaching it from the last kept
// point, over the assumed interval, needs no more than maxSpeed.
// The first point is always kept.
func RemoveOutliers(path orb.LineString, maxSpeed float64, interval time.Duration) orb.LineString {
	if len(path) == 0 {
		return orb.LineString{}
	}
	seconds := interval.Seconds()
	if seconds <= 0 {
		seconds = 1
	}
	out := make(orb.LineString, 0, len(path))
	out = append(out, path[0])
	for _, p := range path[1:] {
		if geodesy.Distance(out[len(out)-1], p)/seconds <= maxSpeed {
			out = append(out, p)
		}
	}
	return out
}

// Simplify is Douglas-Peucker simplification. A point survives if it is
// farther than tolerance meters from the chord of its enclosing segment.
// Distances are measured with geodesy.PerpendicularDistance.
func Simplify(path orb.LineString, tolerance float64) orb.LineString {
	if len(path) < 3 {
		return path.Clone()
	}
	keep := make([]bool, len(path))
	keep[0], keep[len(path)-1] = true, true

	type span struct{ start, end int }
	stack := []span{{0, len(path) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.end-s.start < 2 {
			continue
		}
		maxDist, maxIdx := -1.0, -1
		for i := s.start + 1; i < s.end; i++ {
			d := geodesy.PerpendicularDistance(path[i], path[s.start], path[s.end])
			if d > maxDist {
				maxDist, maxIdx = d, i
			}
		}
		if maxDist > tolerance {
			keep[maxIdx] = true
			stack = append(stack, span{s.start, maxIdx}, span{maxIdx, s.end})
		}
	}

	out := make(orb.LineString, 0, len(path))
	for i, p := range path {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Smooth is a centered moving average over latitude and longitude.
// Windows shrink symmetrically near the ends, so endpoints are kept.
func Smooth(path orb.LineString, window int) orb.LineString {
	out := make(orb.LineString, len(path))
	half := window / 2
	for i := range path {
		r := min(half, i, len(path)-1-i)
		var lon, lat float64
		for j := i - r; j <= i+r; j++ {
			lon += path[j].Lon()
			lat += path[j].Lat()
		}
		n := float64(2*r + 1)
		out[i] = orb.Point{lon / n, lat / n}
	}
	return out
}
