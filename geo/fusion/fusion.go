/*
Package fusion estimates position, speed and heading from positional
fixes and inertial samples.

An Estimator holds the state of exactly one tracking session. It is
not safe for concurrent use; sessions own their estimators.
*/
package fusion

import (
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/geo/geodesy"
	"github.com/rotblauer/catfuse/geo/trust"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/sample"
)

// State is the estimator's single mutable record.
// Covariance is a scalar uncertainty, seeded with the first fix's
// accuracy in meters.
type State struct {
	Time       time.Time
	Point      orb.Point
	Speed      float64
	Heading    float64
	Covariance float64
}

type Estimator struct {
	config *params.FusionConfig
	logger *slog.Logger

	state *State
	last  sample.FusedLocation

	// clock is the time of the last update, applied or skipped.
	// It only moves forward.
	clock time.Time

	ref *ReferenceFilter
}

func NewEstimator(config *params.FusionConfig) *Estimator {
	if config == nil {
		config = params.DefaultFusionConfig()
	}
	return &Estimator{
		config: config,
		logger: slog.With("estimator", "fusion"),
		ref:    NewReferenceFilter(config.ReferenceFilter),
	}
}

// Initialized reports whether a fix has seeded the state.
func (e *Estimator) Initialized() bool {
	return e.state != nil
}

// State returns a copy of the current state.
func (e *Estimator) State() (State, bool) {
	if e.state == nil {
		return State{}, false
	}
	return *e.state, true
}

// Current returns the latest fusion output.
func (e *Estimator) Current() (sample.FusedLocation, bool) {
	return e.last, e.state != nil
}

// KalmanSpeed is the speed reported by the reference filter.
func (e *Estimator) KalmanSpeed() float64 {
	return e.ref.Speed()
}

// Update feeds one accepted fix, with an optional concurrent inertial
// sample, through a predict-correct cycle.
// The first fix seeds the state. Later fixes whose interval since the
// last update is non-positive or beyond the configured ceiling are not
// applied; the state is retained and applied is false.
// A skipped forward fix still moves the clock, so tracking resumes on
// the next fix. The prediction then spans the time since the state was
// last applied, not since the skipped fix.
func (e *Estimator) Update(fix sample.RawFix, inertial *sample.InertialSample) (loc sample.FusedLocation, applied bool) {
	if e.state == nil {
		e.seed(fix)
		e.ref.Observe(fix)
		return e.last, true
	}

	dt := fix.Time.Sub(e.clock)
	if dt <= 0 || dt > e.config.MaxInterval {
		e.logger.Debug("Skipping fix outside update interval",
			"dt", dt, "max", e.config.MaxInterval, "time", fix.Time)
		if dt > 0 {
			e.clock = fix.Time
		}
		return e.last, false
	}

	e.predict(fix.Time.Sub(e.state.Time).Seconds(), inertial)
	e.correct(fix, inertial)
	e.state.Time = fix.Time
	e.clock = fix.Time
	e.ref.Observe(fix)

	e.last = e.output(fix, inertial != nil)
	return e.last, true
}

func (e *Estimator) seed(fix sample.RawFix) {
	e.state = &State{
		Time:       fix.Time,
		Point:      fix.Point,
		Covariance: trust.Accuracy(fix, nil),
	}
	if fix.HasSpeed() {
		e.state.Speed = fix.Speed
	}
	if fix.HasCourse() {
		e.state.Heading = geodesy.NormalizeAngle(fix.Course)
	}
	e.clock = fix.Time
	e.last = e.output(fix, false)
}

// predict projects the state forward dt seconds.
func (e *Estimator) predict(dt float64, inertial *sample.InertialSample) {
	s := e.state
	s.Point = geodesy.Project(s.Point, s.Heading, s.Speed*dt)
	s.Covariance += e.config.ProcessNoise * dt

	if inertial != nil {
		w := e.config.InertialWeight
		s.Speed = (1-w)*s.Speed + w*(s.Speed+inertial.AccelMagnitude()*dt)
		s.Heading = geodesy.BlendAngle(s.Heading, inertial.Attitude.Yaw, e.config.HeadingSmoothing)
	}
}

// correct moves the predicted state toward the fix.
func (e *Estimator) correct(fix sample.RawFix, inertial *sample.InertialSample) {
	s := e.state
	acc := trust.Accuracy(fix, nil)
	gain := s.Covariance / (s.Covariance + acc*acc + e.config.MeasurementNoise)

	corrected := orb.Point{
		s.Point.Lon() + gain*(fix.Lon()-s.Point.Lon()),
		s.Point.Lat() + gain*(fix.Lat()-s.Point.Lat()),
	}
	if inertial != nil {
		// Second blend, toward the raw fix.
		w := e.config.GPSTrust
		corrected = orb.Point{
			w*fix.Lon() + (1-w)*corrected.Lon(),
			w*fix.Lat() + (1-w)*corrected.Lat(),
		}
	}
	s.Point = corrected
	s.Covariance = (1 - gain) * s.Covariance

	cw := e.config.CourseWeight
	if fix.HasCourse() {
		if inertial != nil {
			s.Heading = geodesy.BlendAngle(fix.Course, inertial.Attitude.Yaw, cw)
		} else {
			s.Heading = geodesy.NormalizeAngle(fix.Course)
		}
	}
	if fix.HasSpeed() {
		s.Speed = cw*fix.Speed + (1-cw)*s.Speed
	}
}

func (e *Estimator) output(fix sample.RawFix, inertial bool) sample.FusedLocation {
	return sample.FusedLocation{
		Time:       e.state.Time,
		Point:      e.state.Point,
		Accuracy:   e.state.Covariance,
		Confidence: e.confidence(trust.Accuracy(fix, nil), inertial),
		Speed:      e.state.Speed,
		Heading:    e.state.Heading,
	}
}

func (e *Estimator) confidence(accuracy float64, inertial bool) float64 {
	c := 1 - math.Min(1, accuracy/params.DefaultTrustConfig.AccuracyCeiling)
	if inertial {
		c *= e.config.InertialConfidenceBoost
	}
	return common.Clamp(c, 0, 1)
}

// DeadReckon projects the last fused position forward over interval
// using acceleration magnitude as a speed proxy and attitude yaw as
// heading. The state is not modified. It reports false if no fix has
// seeded the state.
func (e *Estimator) DeadReckon(inertial sample.InertialSample, interval time.Duration) (sample.FusedLocation, bool) {
	if e.state == nil {
		return sample.FusedLocation{}, false
	}
	out := e.last
	dt := interval.Seconds()
	if dt <= 0 {
		return out, true
	}
	speed := inertial.AccelMagnitude() * dt
	heading := geodesy.NormalizeAngle(inertial.Attitude.Yaw)

	out.Time = e.state.Time.Add(interval)
	out.Point = geodesy.Project(e.state.Point, heading, speed*dt)
	out.Speed = speed
	out.Heading = heading
	out.Accuracy = e.state.Covariance + e.config.ProcessNoise*dt
	return out, true
}

// Reset returns the estimator to its uninitialized state.
func (e *Estimator) Reset() {
	e.state = nil
	e.last = sample.FusedLocation{}
	e.clock = time.Time{}
	e.ref.Reset()
}
