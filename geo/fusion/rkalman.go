package fusion

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	rkalman "github.com/regnull/kalman"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/sample"
)

// ReferenceFilter runs a matrix Kalman filter over the same fixes as the
// Estimator. Its speed estimate is reported next to the fused outputs.
type ReferenceFilter struct {
	config *params.ReferenceFilterConfig
	filter *rkalman.GeoFilter
	last   time.Time
	speed  float64
}

func NewReferenceFilter(config *params.ReferenceFilterConfig) *ReferenceFilter {
	if config == nil {
		config = params.DefaultFusionConfig().ReferenceFilter
	}
	return &ReferenceFilter{config: config}
}

func newGeoFilter(latitude, speed, acceleration float64) (*rkalman.GeoFilter, error) {
	processNoise := &rkalman.GeoProcessNoise{
		// We assume the measurements will take place at approximately the
		// same location, so that we can disregard the earth's curvature.
		BaseLat: latitude,
		// How much do we expect the user to move, meters per second.
		DistancePerSecond: speed,
		// How much do we expect the user's speed to change, meters per second squared.
		SpeedPerSecond: acceleration,
	}
	return rkalman.NewGeoFilter(processNoise)
}

// Observe feeds a fix. The filter restarts on the first fix and after
// gaps longer than the reset interval or backwards in time.
func (r *ReferenceFilter) Observe(fix sample.RawFix) {
	span := fix.Time.Sub(r.last)
	if r.filter == nil || span > r.config.ResetInterval || span < 0 {
		r.reset(fix)
		return
	}
	if span == 0 {
		return
	}

	// The filter diverges without a speed observation.
	if !fix.HasSpeed() {
		return
	}
	direction := 0.0
	if fix.HasCourse() {
		direction = fix.Course
	}
	accuracy := fix.Accuracy
	if accuracy <= 0 || math.IsNaN(accuracy) {
		accuracy = params.DefaultTrustConfig.UnknownAccuracy
	}
	altitude := 0.0
	if fix.Altitude != nil {
		altitude = *fix.Altitude
	}

	est, err := r.observe(span, &rkalman.GeoObserved{
		Lat:                fix.Lat(),
		Lng:                fix.Lon(),
		Altitude:           altitude,
		Speed:              fix.Speed,
		SpeedAccuracy:      r.config.SpeedAccuracy,
		Direction:          direction,
		DirectionAccuracy:  0,
		HorizontalAccuracy: accuracy,
		VerticalAccuracy:   2.0,
	})
	if err != nil {
		slog.Warn("Kalman filter failed, restarting", "error", err)
		r.reset(fix)
		return
	}
	r.last = fix.Time
	if est != nil && !math.IsNaN(est.Speed) && !math.IsInf(est.Speed, 0) {
		r.speed = math.Abs(est.Speed)
	}
}

// observe runs one filter step. A diverged filter can panic when
// estimating; that is returned as an error.
func (r *ReferenceFilter) observe(span time.Duration, obs *rkalman.GeoObserved) (est *rkalman.GeoEstimated, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			est, err = nil, fmt.Errorf("kalman: %v", rec)
		}
	}()
	if err := r.filter.Observe(span.Seconds(), obs); err != nil {
		return nil, err
	}
	return r.filter.Estimate(), nil
}

func (r *ReferenceFilter) reset(fix sample.RawFix) {
	r.filter = nil
	r.last = fix.Time
	r.speed = 0
	if fix.HasSpeed() {
		r.speed = fix.Speed
	}
	f, err := newGeoFilter(fix.Lat(), r.config.DistancePerSecond, r.config.SpeedPerSecond)
	if err != nil {
		slog.Warn("Failed to initialize Kalman filter", "error", err)
		return
	}
	r.filter = f
}

// Speed is the latest filtered speed, m/s.
func (r *ReferenceFilter) Speed() float64 {
	return r.speed
}

func (r *ReferenceFilter) Reset() {
	r.filter = nil
	r.last = time.Time{}
	r.speed = 0
}
