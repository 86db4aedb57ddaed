/*
Package act infers the activity of a tracked subject from windows of
accepted fixes and motion samples.
*/
package act

import (
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/geo/geodesy"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/sample"
)

// Features is the flat record of scalars a classification is made from.
type Features struct {
	AvgSpeed         float64 `json:"avgSpeed"`
	MaxSpeed         float64 `json:"maxSpeed"`
	SpeedVariance    float64 `json:"speedVariance"`
	SpeedSamples     int     `json:"speedSamples"`
	AvgAccuracy      float64 `json:"avgAccuracy"`
	CourseChangeRate float64 `json:"courseChangeRate"` // degrees/sample
	AccelMagnitude   float64 `json:"accelMagnitude"`
	StepFrequency    float64 `json:"stepFrequency"` // Hz, approximate
	StepsPerSecond   float64 `json:"stepsPerSecond"`
	TotalDistance    float64 `json:"totalDistance"` // meters
	Duration         float64 `json:"duration"`      // seconds
	AvgPace          float64 `json:"avgPace"`       // seconds/km
}

func statsMustFloat(fn func(stats.Float64Data) (float64, error), data []float64, def float64) float64 {
	out, err := fn(data)
	if err != nil {
		return def
	}
	return out
}

// Extract derives features from an ordered window of accepted fixes and
// the latest inertial and pedometer samples, either of which may be nil.
// An empty window yields zero features with worst-case accuracy.
func Extract(fixes []sample.RawFix, inertial *sample.InertialSample, pedometer *sample.PedometerSample, config *params.FeatureConfig) Features {
	if config == nil {
		config = params.DefaultFeatureConfig
	}
	if len(fixes) == 0 {
		return Features{AvgAccuracy: config.EmptyAccuracy}
	}

	speeds := make([]float64, 0, len(fixes))
	accuracies := make([]float64, 0, len(fixes))
	courses := make([]float64, 0, len(fixes))
	path := make([]float64, 0, len(fixes))
	for i, f := range fixes {
		if f.HasSpeed() {
			speeds = append(speeds, f.Speed)
		}
		acc := f.Accuracy
		if acc < 0 {
			acc = config.EmptyAccuracy
		}
		accuracies = append(accuracies, acc)
		if f.HasCourse() {
			courses = append(courses, f.Course)
		}
		if i > 0 {
			path = append(path, geodesy.Distance(fixes[i-1].Point, f.Point))
		}
	}

	courseChanges := make([]float64, 0, len(courses))
	for i := 1; i < len(courses); i++ {
		courseChanges = append(courseChanges, geodesy.AngleDelta(courses[i-1], courses[i]))
	}

	out := Features{
		AvgSpeed:         statsMustFloat(stats.Mean, speeds, 0),
		MaxSpeed:         statsMustFloat(stats.Max, speeds, 0),
		SpeedVariance:    statsMustFloat(stats.Variance, speeds, 0),
		SpeedSamples:     len(speeds),
		AvgAccuracy:      statsMustFloat(stats.Mean, accuracies, config.EmptyAccuracy),
		CourseChangeRate: statsMustFloat(stats.Mean, courseChanges, 0),
		TotalDistance:    statsMustFloat(stats.Sum, path, 0),
		Duration:         fixes[len(fixes)-1].Time.Sub(fixes[0].Time).Seconds(),
	}

	if inertial != nil {
		out.AccelMagnitude = inertial.AccelMagnitude()
	}
	out.StepFrequency = stepFrequency(out.AccelMagnitude, out.AvgSpeed, config)

	if pedometer != nil && pedometer.Cadence > 0 {
		out.StepsPerSecond = pedometer.Cadence
	}
	if out.TotalDistance > 0 {
		out.AvgPace = out.Duration / out.TotalDistance * 1000
	}
	return out
}

// stepFrequency is a heuristic, not a cadence sensor. Acceleration
// magnitude maps linearly onto the allowed range; without it, average
// speed over a nominal stride length stands in.
func stepFrequency(accel, avgSpeed float64, config *params.FeatureConfig) float64 {
	var f float64
	if accel > 0 {
		f = config.StepFrequencyMin + accel/config.AccelPerHz
	} else {
		f = avgSpeed / config.StrideLength
	}
	return common.Clamp(f, config.StepFrequencyMin, config.StepFrequencyMax)
}
