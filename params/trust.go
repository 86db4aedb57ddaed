package params

import "github.com/rotblauer/catfuse/common"

type TrustConfig struct {
	// AccuracyCeiling is the horizontal accuracy (meters) at which the base
	// trust score reaches zero.
	AccuracyCeiling float64

	// MaxSpeed is the hard physical ceiling (m/s) for the supported
	// activities. Reported speeds above it halve the trust score;
	// implied speeds above it flag the fix as anomalous.
	MaxSpeed float64

	// SpeedJump is the absolute change in reported speed (m/s) between
	// consecutive fixes considered a discontinuity.
	SpeedJump float64

	// AnomalyAccuracy is the horizontal accuracy (meters) above which
	// a fix is anomalous outright.
	AnomalyAccuracy float64

	// UnknownAccuracy is substituted for negative or NaN accuracies.
	UnknownAccuracy float64

	HighSpeedPenalty  float64
	SpeedJumpPenalty  float64
	SharpTurnPenalty  float64
	SharpTurnMinDelta float64
	SharpTurnMaxDelta float64
}

var DefaultTrustConfig = &TrustConfig{
	AccuracyCeiling:   50,
	MaxSpeed:          common.SpeedOfSprintingMax,
	SpeedJump:         5,
	AnomalyAccuracy:   100,
	UnknownAccuracy:   100,
	HighSpeedPenalty:  0.5,
	SpeedJumpPenalty:  0.8,
	SharpTurnPenalty:  0.9,
	SharpTurnMinDelta: 90,
	SharpTurnMaxDelta: 270,
}
