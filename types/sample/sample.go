/*
Package sample defines the sensor samples fed to a tracking session
and the values derived from them.
*/
package sample

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// RawFix is one positional sample from a location provider.
// Accuracy is the horizontal accuracy in meters; negative means unknown.
// Speed and Course use -1 for unavailable.
type RawFix struct {
	Time     time.Time `json:"time"`
	Point    orb.Point `json:"point"` // [lon, lat]
	Accuracy float64   `json:"accuracy"`
	Speed    float64   `json:"speed"`
	Course   float64   `json:"course"`
	Altitude *float64  `json:"altitude,omitempty"`
}

func (f RawFix) Lat() float64 { return f.Point.Lat() }
func (f RawFix) Lon() float64 { return f.Point.Lon() }

// HasSpeed reports whether the provider reported a speed.
func (f RawFix) HasSpeed() bool {
	return f.Speed >= 0 && !math.IsNaN(f.Speed)
}

// HasCourse reports whether the provider reported a course.
func (f RawFix) HasCourse() bool {
	return f.Course >= 0 && f.Course <= 360 && !math.IsNaN(f.Course)
}

// Attitude is device orientation in degrees.
type Attitude struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// InertialSample is one motion sample. Acceleration has gravity removed.
type InertialSample struct {
	Time         time.Time `json:"time"`
	Acceleration Vector3   `json:"accel"`
	Attitude     Attitude  `json:"attitude"`
	MagHeading   *float64  `json:"magHeading,omitempty"`
}

// AccelMagnitude returns |acceleration| in m/s^2.
func (s InertialSample) AccelMagnitude() float64 {
	return s.Acceleration.Magnitude()
}

// PedometerSample is one step counter sample.
type PedometerSample struct {
	Time    time.Time `json:"time"`
	Steps   int64     `json:"steps"`
	Cadence float64   `json:"cadence"` // steps/s
}

// TrustedFix is a RawFix with its trust score and anomaly flag.
type TrustedFix struct {
	RawFix
	Trust     float64 `json:"trust"`
	Anomalous bool    `json:"anomalous"`
}

// FusedLocation is one output of the state estimator.
type FusedLocation struct {
	Time       time.Time `json:"time"`
	Point      orb.Point `json:"point"`
	Accuracy   float64   `json:"accuracy"`
	Confidence float64   `json:"confidence"`
	Speed      float64   `json:"speed"`
	Heading    float64   `json:"heading"`
}

// Kind tags a Sample.
type Kind int

const (
	KindUnknown Kind = iota
	KindFix
	KindInertial
	KindPedometer
)

func (k Kind) String() string {
	switch k {
	case KindFix:
		return "fix"
	case KindInertial:
		return "inertial"
	case KindPedometer:
		return "pedometer"
	}
	return "unknown"
}

// Sample is exactly one of a fix, an inertial sample, or a pedometer sample.
type Sample struct {
	Kind      Kind
	Fix       *RawFix
	Inertial  *InertialSample
	Pedometer *PedometerSample
}

func (s Sample) Time() time.Time {
	switch s.Kind {
	case KindFix:
		return s.Fix.Time
	case KindInertial:
		return s.Inertial.Time
	case KindPedometer:
		return s.Pedometer.Time
	}
	return time.Time{}
}
