/*
Package trust scores raw fixes and flags physically impossible ones.

Nothing is retained between calls; the caller supplies whatever prior
state is relevant.
*/
package trust

import (
	"math"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/geo/geodesy"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/sample"
)

// Prior is the previous fix's reported speed and course, if known.
// Negative values are treated as unknown.
type Prior struct {
	Speed  float64
	Course float64
}

// NoPrior is used for the first fix in a session.
var NoPrior = Prior{Speed: common.SpeedUnavailable, Course: common.HeadingUnavailable}

// PriorOf returns the prior carried by fix f.
func PriorOf(f sample.RawFix) Prior {
	return Prior{Speed: f.Speed, Course: f.Course}
}

// Accuracy returns the fix accuracy, substituting the configured
// unknown accuracy for negative or NaN values.
func Accuracy(f sample.RawFix, config *params.TrustConfig) float64 {
	if config == nil {
		config = params.DefaultTrustConfig
	}
	if f.Accuracy < 0 || math.IsNaN(f.Accuracy) || math.IsInf(f.Accuracy, 0) {
		return config.UnknownAccuracy
	}
	return f.Accuracy
}

// Score returns the trust score of fix f in [0, 1].
//
// The base score falls linearly from 1 at perfect accuracy to 0 at the
// accuracy ceiling. It is then penalized for an impossible speed,
// for a speed discontinuity against the prior, and for a sharp turn
// against the prior course.
func Score(f sample.RawFix, prior Prior, config *params.TrustConfig) float64 {
	if config == nil {
		config = params.DefaultTrustConfig
	}
	score := math.Max(0, 1-Accuracy(f, config)/config.AccuracyCeiling)

	if f.HasSpeed() {
		if f.Speed > config.MaxSpeed {
			score *= config.HighSpeedPenalty
		}
		if prior.Speed >= 0 && math.Abs(f.Speed-prior.Speed) > config.SpeedJump {
			score *= config.SpeedJumpPenalty
		}
	}

	if f.HasCourse() && prior.Course >= 0 {
		delta := geodesy.AngleDelta(f.Course, prior.Course)
		if delta > config.SharpTurnMinDelta && delta < config.SharpTurnMaxDelta {
			score *= config.SharpTurnPenalty
		}
	}

	return common.Clamp(score, 0, 1)
}

// IsAnomalous reports whether cur is physically implausible given prev,
// the last accepted fix. A nil prev is never anomalous.
func IsAnomalous(cur sample.RawFix, prev *sample.RawFix, config *params.TrustConfig) bool {
	if prev == nil {
		return false
	}
	if config == nil {
		config = params.DefaultTrustConfig
	}
	if Accuracy(cur, config) > config.AnomalyAccuracy {
		return true
	}
	elapsed := cur.Time.Sub(prev.Time).Seconds()
	if elapsed <= 0 {
		return true
	}
	return geodesy.Distance(prev.Point, cur.Point)/elapsed > config.MaxSpeed
}

// Evaluate scores and anomaly-checks cur against the last accepted fix.
func Evaluate(cur sample.RawFix, prev *sample.RawFix, config *params.TrustConfig) sample.TrustedFix {
	prior := NoPrior
	if prev != nil {
		prior = PriorOf(*prev)
	}
	return sample.TrustedFix{
		RawFix:    cur,
		Trust:     Score(cur, prior, config),
		Anomalous: IsAnomalous(cur, prev, config),
	}
}
