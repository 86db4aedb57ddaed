package api

import (
	"context"
	"time"

	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types/sample"
)

// IngestStats counts what Ingest did with its input.
type IngestStats struct {
	Fixes      int `json:"fixes"`
	Accepted   int `json:"accepted"`
	Anomalous  int `json:"anomalous"`
	Inertial   int `json:"inertial"`
	Pedometer  int `json:"pedometer"`
	Duplicates int `json:"duplicates"`

	// Results holds the trust evaluation of each fix, in order.
	Results []sample.TrustedFix `json:"results,omitempty"`
}

// Ingest feeds samples to the session in arrival order, dropping exact
// duplicates, until in is closed or ctx is done. It blocks; the caller
// remains the session's single owner.
func (s *Session) Ingest(ctx context.Context, in <-chan sample.Sample, keepResults bool) IngestStats {
	st := IngestStats{}
	started := time.Now()

	dedupe := sample.NewDedupeLRUFunc(params.DefaultDedupeCacheSize)
	deduped := stream.Filter(ctx, func(smp sample.Sample) bool {
		if !dedupe(smp) {
			st.Duplicates++
			return false
		}
		return true
	}, in)

	for smp := range deduped {
		switch smp.Kind {
		case sample.KindFix:
			st.Fixes++
			ok, tf := s.AcceptSample(smp)
			if ok {
				st.Accepted++
			} else {
				st.Anomalous++
			}
			if keepResults && tf != nil {
				st.Results = append(st.Results, *tf)
			}
		case sample.KindInertial:
			st.Inertial++
			s.AcceptSample(smp)
		case sample.KindPedometer:
			st.Pedometer++
			s.AcceptSample(smp)
		}
	}

	s.logger.Debug("Ingested samples",
		"fixes", st.Fixes, "accepted", st.Accepted, "anomalous", st.Anomalous,
		"inertial", st.Inertial, "pedometer", st.Pedometer, "duplicates", st.Duplicates,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return st
}
