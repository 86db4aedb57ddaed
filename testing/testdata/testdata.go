package testdata

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types/sample"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(basepath, rel)
}

// Source_WalkNorth20 is a FeatureCollection of 20 fixes, one per second,
// walking north at 1.4 m/s near Minneapolis, with one inertial and one
// pedometer sample interleaved as NDJSON lines.
//
//	zcat testing/testdata/walk_north_20.json.gz | wc -l
//	3
var Source_WalkNorth20 = "./walk_north_20.json.gz"

// ReadSamplesGZ decodes every sample in the gzipped file at path.
func ReadSamplesGZ(ctx context.Context, path string) ([]sample.Sample, error) {
	f, err := os.Open(Path(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gzr.Close()
	return ReadSamples(ctx, gzr)
}

// ReadSamples decodes every sample in r. The first decode error is returned.
func ReadSamples(ctx context.Context, r io.Reader) ([]sample.Sample, error) {
	var first error
	out := stream.Collect(ctx, sample.Stream(ctx, r, func(err error) {
		if first == nil {
			first = err
		}
	}))
	return out, first
}

// SampleChan sends fixes as tagged samples.
func SampleChan(ctx context.Context, fixes []sample.RawFix) <-chan sample.Sample {
	return stream.Transform(ctx, func(f sample.RawFix) sample.Sample {
		v := f
		return sample.Sample{Kind: sample.KindFix, Fix: &v}
	}, stream.Slice(ctx, fixes))
}
