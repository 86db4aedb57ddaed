package webd

import (
	"context"

	"github.com/rotblauer/catfuse/catz"
	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types/sample"
)

const samplesArchiveDir = "samples"

func archiveName(sessionID string) string {
	return catz.SafeName(sessionID) + ".ndjson.gz"
}

// archiveSamples tees in to the session's raw sample archive.
// Each call appends one gzip member. The returned func closes it and
// must be called once in has been drained.
func (s *WebDaemon) archiveSamples(ctx context.Context, sessionID string, in <-chan sample.Sample) (<-chan sample.Sample, func()) {
	if !s.Config.ArchiveSamples || s.Config.DataDir == "" {
		return in, func() {}
	}
	flat := catz.NewFlatWithRoot(s.Config.DataDir).Joins(samplesArchiveDir)
	gzw, err := flat.NewGZFileWriter(archiveName(sessionID), nil)
	if err != nil {
		s.logger.Error("Failed to open sample archive", "session", sessionID, "error", err)
		return in, func() {}
	}
	logger := s.logger.With("archive", gzw.Path())
	failed := false
	tapped := stream.Tap(ctx, func(smp sample.Sample) {
		if failed {
			return
		}
		b, err := sample.Encode(smp)
		if err == nil {
			_, err = gzw.Write(append(b, '\n'))
		}
		if err != nil {
			failed = true
			logger.Error("Failed to archive sample", "error", err)
		}
	}, in)

	// Forward until the tap closes so the archive is never written
	// after it is closed, even if the consumer quits early.
	out := make(chan sample.Sample)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		for smp := range tapped {
			select {
			case <-ctx.Done():
			case out <- smp:
			}
		}
	}()
	return out, func() {
		<-done
		if err := gzw.Close(); err != nil {
			logger.Error("Failed to close sample archive", "error", err)
		}
	}
}
