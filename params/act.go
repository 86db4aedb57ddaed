package params

type FeatureConfig struct {
	// StepFrequencyMin and StepFrequencyMax bound the heuristic step
	// frequency estimate, Hz.
	StepFrequencyMin float64
	StepFrequencyMax float64

	// AccelPerHz converts acceleration magnitude (m/s^2) into step
	// frequency above StepFrequencyMin. This is an approximation, not
	// peak detection.
	AccelPerHz float64

	// StrideLength (meters) derives a step frequency from average speed
	// when no inertial sample is available.
	StrideLength float64

	// EmptyAccuracy is the average accuracy reported for empty windows.
	EmptyAccuracy float64
}

var DefaultFeatureConfig = &FeatureConfig{
	StepFrequencyMin: 1.0,
	StepFrequencyMax: 3.0,
	AccelPerHz:       4.0,
	StrideLength:     0.75,
	EmptyAccuracy:    100,
}

// ClassifierConfig holds the threshold rules for activity classification.
// All bounds are exclusive.
//
// CourseChangeRate is measured in degrees per sample and was tuned
// against fixes sampled at about 1 Hz.
type ClassifierConfig struct {
	// MinSpeedSamples is the number of reported speeds needed before
	// any rule applies.
	MinSpeedSamples int

	RunMinSpeed         float64
	RunMinStepFrequency float64
	RunMaxSpeedVariance float64

	WalkMinSpeed         float64
	WalkMaxSpeed         float64
	WalkMinStepFrequency float64
	WalkMaxStepFrequency float64

	HikeMinSpeed            float64
	HikeMaxSpeed            float64
	HikeMinCourseChangeRate float64

	// WindowSize is the number of feature records voting in the
	// windowed classifier.
	WindowSize int

	// FeatureWindow is the number of most recent accepted fixes
	// used to extract features for the live (windowed) classification.
	FeatureWindow int
}

var DefaultClassifierConfig = &ClassifierConfig{
	MinSpeedSamples: 2,

	RunMinSpeed:         2.5,
	RunMinStepFrequency: 2.5,
	RunMaxSpeedVariance: 1.0,

	WalkMinSpeed:         0.8,
	WalkMaxSpeed:         2.5,
	WalkMinStepFrequency: 1.5,
	WalkMaxStepFrequency: 2.5,

	HikeMinSpeed:            0.5,
	HikeMaxSpeed:            1.5,
	HikeMinCourseChangeRate: 0.3,

	WindowSize:    10,
	FeatureWindow: 10,
}
