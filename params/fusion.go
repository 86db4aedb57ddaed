package params

import "time"

type FusionConfig struct {
	// ProcessNoise is the uncertainty growth per second of prediction.
	ProcessNoise float64

	// MeasurementNoise is added to the squared fix accuracy when
	// computing the correction gain.
	MeasurementNoise float64

	// InertialWeight blends the predicted speed toward the
	// acceleration-integrated speed when an inertial sample is present.
	InertialWeight float64

	// HeadingSmoothing is the weight kept on the current heading when
	// blending toward the inertial yaw during prediction.
	HeadingSmoothing float64

	// GPSTrust is the weight of the raw fix position in the second
	// correction blend, applied only when inertial data contributed.
	GPSTrust float64

	// CourseWeight is the weight of a valid fix course (vs. inertial yaw)
	// when fusing heading, and of a valid fix speed (vs. predicted speed)
	// when fusing speed.
	CourseWeight float64

	// MaxInterval is the sanity ceiling for the time between updates.
	// Fixes arriving later than this after the previous update are not applied.
	MaxInterval time.Duration

	// InertialConfidenceBoost multiplies the reported confidence when
	// inertial data contributed to the update.
	InertialConfidenceBoost float64

	// ReferenceFilter configures the matrix Kalman filter run alongside
	// the estimator to report an independent speed estimate.
	ReferenceFilter *ReferenceFilterConfig
}

type ReferenceFilterConfig struct {
	// DistancePerSecond is how far we expect the subject to move, m/s.
	DistancePerSecond float64
	// SpeedPerSecond is how much we expect speed to change, m/s^2.
	SpeedPerSecond float64
	// SpeedAccuracy is the assumed accuracy of reported speeds.
	SpeedAccuracy float64
	// ResetInterval restarts the filter after a signal gap.
	ResetInterval time.Duration
}

func DefaultFusionConfig() *FusionConfig {
	return &FusionConfig{
		ProcessNoise:            1.0,
		MeasurementNoise:        5.0,
		InertialWeight:          0.3,
		HeadingSmoothing:        0.98,
		GPSTrust:                0.7,
		CourseWeight:            0.7,
		MaxInterval:             10 * time.Second,
		InertialConfidenceBoost: 1.1,
		ReferenceFilter: &ReferenceFilterConfig{
			DistancePerSecond: 4.0,
			SpeedPerSecond:    1.0,
			SpeedAccuracy:     0.2,
			ResetInterval:     2 * time.Minute,
		},
	}
}
