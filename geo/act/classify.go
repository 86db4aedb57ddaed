package act

import (
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/activity"
)

// Classify maps features to an activity with ordered threshold rules;
// the first matching rule wins. All comparisons are strict.
// Too few reported speeds is Unknown; a lone speed has no variance.
func Classify(f Features, config *params.ClassifierConfig) activity.Activity {
	if config == nil {
		config = params.DefaultClassifierConfig
	}
	if f.SpeedSamples < config.MinSpeedSamples {
		return activity.Unknown
	}
	switch {
	case f.AvgSpeed > config.RunMinSpeed &&
		f.StepFrequency > config.RunMinStepFrequency &&
		f.SpeedVariance < config.RunMaxSpeedVariance:
		return activity.Run
	case f.AvgSpeed > config.WalkMinSpeed && f.AvgSpeed < config.WalkMaxSpeed &&
		f.StepFrequency > config.WalkMinStepFrequency && f.StepFrequency < config.WalkMaxStepFrequency:
		return activity.Walk
	case f.AvgSpeed > config.HikeMinSpeed && f.AvgSpeed < config.HikeMaxSpeed &&
		f.CourseChangeRate > config.HikeMinCourseChangeRate:
		return activity.Hike
	}
	return activity.Unknown
}

// Window classifies the last N feature records and reports the majority.
type Window struct {
	config *params.ClassifierConfig
	ring   *common.RingBuffer[Features]
}

func NewWindow(config *params.ClassifierConfig) *Window {
	if config == nil {
		config = params.DefaultClassifierConfig
	}
	return &Window{
		config: config,
		ring:   common.NewRingBuffer[Features](config.WindowSize),
	}
}

// Push adds a feature record, evicting the oldest if the window is
// full, and returns the new majority label.
func (w *Window) Push(f Features) activity.Activity {
	w.ring.Add(f)
	return w.Label()
}

// Labels classifies each record in the window, oldest first.
func (w *Window) Labels() []activity.Activity {
	labels := make([]activity.Activity, 0, w.ring.Len())
	w.ring.Scan(func(f Features) bool {
		labels = append(labels, Classify(f, w.config))
		return true
	})
	return labels
}

// Label is the majority label of the window. Ties go to the label
// encountered first, scanning oldest to newest. An empty window is
// Unknown.
func (w *Window) Label() activity.Activity {
	return activity.Tally(w.Labels()).Majority()
}

func (w *Window) Len() int {
	return w.ring.Len()
}

func (w *Window) Reset() {
	w.ring.Reset()
}
