package testdata

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/catfuse/types/sample"
)

// Epoch is the start time of every generated trace.
var Epoch = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// Origin is the start point of every generated trace, [lon, lat].
var Origin = orb.Point{-93.2555, 44.9890}

// TraceOpts describes a generated trace.
type TraceOpts struct {
	Start    orb.Point
	Time     time.Time
	N        int
	Interval time.Duration
	Speed    float64 // m/s
	Heading  float64 // degrees
	Accuracy float64 // meters
	// ReportSpeed sets Speed and Course on each fix from the motion.
	// Otherwise both are unavailable (-1).
	ReportSpeed bool
}

func (o TraceOpts) withDefaults() TraceOpts {
	if o.Start == (orb.Point{}) {
		o.Start = Origin
	}
	if o.Time.IsZero() {
		o.Time = Epoch
	}
	if o.Interval == 0 {
		o.Interval = time.Second
	}
	return o
}

// Straight is a constant speed and heading trace.
func Straight(o TraceOpts) []sample.RawFix {
	o = o.withDefaults()
	out := make([]sample.RawFix, 0, o.N)
	pt := o.Start
	step := o.Speed * o.Interval.Seconds()
	for i := 0; i < o.N; i++ {
		f := sample.RawFix{
			Time:     o.Time.Add(time.Duration(i) * o.Interval),
			Point:    pt,
			Accuracy: o.Accuracy,
			Speed:    -1,
			Course:   -1,
		}
		if o.ReportSpeed {
			f.Speed = o.Speed
			f.Course = o.Heading
		}
		out = append(out, f)
		pt = geo.PointAtBearingAndDistance(pt, o.Heading, step)
	}
	return out
}

// Zigzag alternates heading by ±amplitude degrees around o.Heading
// every fix.
func Zigzag(o TraceOpts, amplitude float64) []sample.RawFix {
	o = o.withDefaults()
	out := make([]sample.RawFix, 0, o.N)
	pt := o.Start
	step := o.Speed * o.Interval.Seconds()
	for i := 0; i < o.N; i++ {
		h := o.Heading + amplitude
		if i%2 == 1 {
			h = o.Heading - amplitude
		}
		f := sample.RawFix{
			Time:     o.Time.Add(time.Duration(i) * o.Interval),
			Point:    pt,
			Accuracy: o.Accuracy,
			Speed:    -1,
			Course:   -1,
		}
		if o.ReportSpeed {
			f.Speed = o.Speed
			f.Course = math.Mod(h+360, 360)
		}
		out = append(out, f)
		pt = geo.PointAtBearingAndDistance(pt, h, step)
	}
	return out
}

// Jitter displaces every fix by meters in a fixed rotating pattern,
// keeping times. It is deterministic.
func Jitter(fixes []sample.RawFix, meters float64) []sample.RawFix {
	out := make([]sample.RawFix, len(fixes))
	for i, f := range fixes {
		f.Point = geo.PointAtBearingAndDistance(f.Point, float64((i*137)%360), meters)
		out[i] = f
	}
	return out
}

// Teleport returns a copy of fix moved distance meters east with its
// time unchanged.
func Teleport(fix sample.RawFix, distance float64) sample.RawFix {
	fix.Point = geo.PointAtBearingAndDistance(fix.Point, 90, distance)
	return fix
}
