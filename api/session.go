/*
Package api is the per-session core: it scores, estimates, classifies
and refines the samples of one tracking session.
*/
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/geo/act"
	"github.com/rotblauer/catfuse/geo/fusion"
	"github.com/rotblauer/catfuse/geo/geodesy"
	"github.com/rotblauer/catfuse/geo/refine"
	"github.com/rotblauer/catfuse/geo/trust"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/route"
	"github.com/rotblauer/catfuse/types/activity"
	"github.com/rotblauer/catfuse/types/record"
	"github.com/rotblauer/catfuse/types/sample"
)

// Session owns all mutable state of one tracking session.
// Sessions share nothing. A Session is not safe for concurrent use;
// it must be driven by a single owner.
type Session struct {
	ID     string
	config *params.SessionConfig
	router route.Router
	logger *slog.Logger

	estimator *fusion.Estimator
	window    *act.Window

	// audit holds every scored fix, anomalies included.
	audit  *common.RingBuffer[sample.TrustedFix]
	recent *common.RingBuffer[sample.RawFix]

	accepted    []sample.RawFix
	fused       orb.LineString
	trusts      []float64
	confidences []float64
	cadences    []float64
	anomalies   int

	lastAccepted    *sample.RawFix
	pendingInertial *sample.InertialSample
	latestInertial  *sample.InertialSample
	latestPedometer *sample.PedometerSample

	// version counts mutations; a finalized record is reused while
	// the version and duration are unchanged.
	version           int
	finalized         *record.Record
	finalizedVersion  int
	finalizedDuration time.Duration
}

// NewSession creates an empty session. Nil config uses defaults;
// a nil router snaps nothing.
func NewSession(id string, config *params.SessionConfig, router route.Router) *Session {
	if config == nil {
		config = params.DefaultSessionConfig()
	}
	if router == nil {
		router = route.Identity{}
	}
	s := &Session{
		ID:     id,
		config: config,
		router: router,
		logger: slog.With("session", id),
	}
	s.resetState()
	return s
}

func (s *Session) resetState() {
	s.estimator = fusion.NewEstimator(s.config.Fusion)
	s.window = act.NewWindow(s.config.Classifier)
	s.audit = common.NewRingBuffer[sample.TrustedFix](s.config.RawLogSize)
	s.recent = common.NewRingBuffer[sample.RawFix](s.config.Classifier.FeatureWindow)
	s.accepted = nil
	s.fused = nil
	s.trusts = nil
	s.confidences = nil
	s.cadences = nil
	s.anomalies = 0
	s.lastAccepted = nil
	s.pendingInertial = nil
	s.latestInertial = nil
	s.latestPedometer = nil
	s.version++
	s.finalized = nil
}

// Accept scores one fix against the last accepted fix. Anomalous fixes
// are counted and logged for audit but go no further. Accepted fixes
// are paired with the latest unpaired inertial sample, if any, and fed
// to the estimator and the live classifier.
func (s *Session) Accept(fix sample.RawFix) (accepted bool, tf sample.TrustedFix) {
	s.version++
	tf = trust.Evaluate(fix, s.lastAccepted, s.config.Trust)
	s.audit.Add(tf)

	if tf.Anomalous {
		s.anomalies++
		s.logger.Debug("Rejected anomalous fix",
			"time", fix.Time, "accuracy", fix.Accuracy, "trust", tf.Trust)
		return false, tf
	}

	f := fix
	s.lastAccepted = &f
	s.accepted = append(s.accepted, fix)
	s.trusts = append(s.trusts, tf.Trust)
	s.recent.Add(fix)

	inertial := s.pendingInertial
	s.pendingInertial = nil
	if loc, applied := s.estimator.Update(fix, inertial); applied {
		s.fused = append(s.fused, loc.Point)
		s.confidences = append(s.confidences, loc.Confidence)
	}

	features := act.Extract(s.recent.Get(), s.latestInertial, s.latestPedometer, s.config.Features)
	s.window.Push(features)
	return true, tf
}

// AcceptInertial buffers a motion sample. It is paired with the next
// accepted fix and kept as the latest sample for feature extraction
// and dead reckoning.
func (s *Session) AcceptInertial(in sample.InertialSample) {
	s.version++
	v := in
	s.pendingInertial = &v
	s.latestInertial = &v
}

// AcceptPedometer buffers a step counter sample.
func (s *Session) AcceptPedometer(p sample.PedometerSample) {
	s.version++
	v := p
	s.latestPedometer = &v
	if p.Cadence > 0 {
		s.cadences = append(s.cadences, p.Cadence)
	}
}

// AcceptSample dispatches a tagged sample. Only fixes report acceptance.
func (s *Session) AcceptSample(smp sample.Sample) (accepted bool, tf *sample.TrustedFix) {
	switch smp.Kind {
	case sample.KindFix:
		ok, t := s.Accept(*smp.Fix)
		return ok, &t
	case sample.KindInertial:
		s.AcceptInertial(*smp.Inertial)
		return true, nil
	case sample.KindPedometer:
		s.AcceptPedometer(*smp.Pedometer)
		return true, nil
	}
	return false, nil
}

// CurrentEstimate is the latest fusion output. It reports false until a
// fix has been accepted.
func (s *Session) CurrentEstimate() (sample.FusedLocation, bool) {
	return s.estimator.Current()
}

// CurrentActivity is the majority label over the recent feature window.
func (s *Session) CurrentActivity() activity.Activity {
	return s.window.Label()
}

// DeadReckon bridges a gap in fixes from the latest inertial sample.
// The session state is not changed.
func (s *Session) DeadReckon(interval time.Duration) (sample.FusedLocation, bool) {
	if s.latestInertial == nil {
		return sample.FusedLocation{}, false
	}
	return s.estimator.DeadReckon(*s.latestInertial, interval)
}

// AnomalyCount is the number of fixes rejected as anomalous.
func (s *Session) AnomalyCount() int {
	return s.anomalies
}

// AcceptedCount is the number of fixes accepted.
func (s *Session) AcceptedCount() int {
	return len(s.accepted)
}

// Span is the time between the first and last accepted fixes.
func (s *Session) Span() time.Duration {
	if len(s.accepted) < 2 {
		return 0
	}
	return s.accepted[len(s.accepted)-1].Time.Sub(s.accepted[0].Time)
}

// Audit returns every scored fix still in the audit log, oldest first.
func (s *Session) Audit() []sample.TrustedFix {
	return s.audit.Get()
}

// Finalize classifies the whole session and refines its fused path.
// Duration is the session duration reported by the caller; pace is
// derived from it. Finalizing again with no new samples and the same
// duration returns the same record.
func (s *Session) Finalize(ctx context.Context, duration time.Duration) *record.Record {
	if s.finalized != nil && s.finalizedVersion == s.version && s.finalizedDuration == duration {
		return s.finalized
	}
	started := time.Now()

	r := &record.Record{
		SessionID:     s.ID,
		Duration:      duration.Seconds(),
		Label:         activity.Unknown,
		RawPath:       orb.LineString{},
		FusedPath:     s.fused.Clone(),
		AnomalyCount:  s.anomalies,
		AcceptedCount: len(s.accepted),
		AvgCadence:    mean(s.cadences),
		AvgConfidence: mean(s.confidences),
		AvgTrust:      mean(s.trusts),
		KalmanSpeed:   s.estimator.KalmanSpeed(),
	}
	if r.FusedPath == nil {
		r.FusedPath = orb.LineString{}
	}
	for _, f := range s.accepted {
		r.RawPath = append(r.RawPath, f.Point)
	}
	if len(s.accepted) > 0 {
		r.StartTime = s.accepted[0].Time
		r.EndTime = s.accepted[len(s.accepted)-1].Time
	}
	r.RawDistance = geodesy.Length(r.RawPath)

	features := act.Extract(s.accepted, s.latestInertial, s.latestPedometer, s.config.Features)
	r.Label = act.Classify(features, s.config.Classifier)

	refined := refine.Refine(ctx, r.FusedPath, r.Label, s.router, s.config.Refine)
	r.MatchedPath = refined.Matched
	if r.MatchedPath == nil {
		r.MatchedPath = orb.LineString{}
	}
	r.MatchedDistance = refined.Distance
	if r.MatchedDistance > 0 {
		r.AvgPace = duration.Seconds() / r.MatchedDistance * 1000
	}

	s.logger.Info("Finalized session",
		"activity", r.Label.String(),
		"accepted", r.AcceptedCount,
		"anomalies", r.AnomalyCount,
		"distance", common.DecimalToFixed(r.MatchedDistance, 1),
		"confidence", common.DecimalToFixed(r.AvgConfidence, 3),
		"elapsed", time.Since(started).Round(time.Millisecond))

	s.finalized = r
	s.finalizedVersion = s.version
	s.finalizedDuration = duration
	return r
}

// Reset clears all session state. It is idempotent.
func (s *Session) Reset() {
	s.resetState()
}

func mean(data []float64) float64 {
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}
