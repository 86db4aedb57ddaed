/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/catfuse/api"
	"github.com/rotblauer/catfuse/catz"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/metrics/influxdb"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/route"
	"github.com/rotblauer/catfuse/state"
	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types/record"
	"github.com/rotblauer/catfuse/types/sample"
	"github.com/spf13/cobra"
)

type fuseOptions struct {
	SessionID string
	Duration  time.Duration
	GeoJSON   bool
	Progress  time.Duration
	Session   *params.SessionConfig
	Router    route.Router
}

var (
	optFuseSession  string
	optFuseDuration time.Duration
	optFuseGeoJSON  bool
	optFuseStore    bool
	optFuseInflux   bool
	optFuseProgress time.Duration
)

// fuseCmd represents the fuse command
var fuseCmd = &cobra.Command{
	Use:   "fuse [file|-]",
	Short: "Fuse one session of samples into an activity record",
	Long: `Reads one session's samples from a file or stdin, runs them through
trust scoring, fusion and classification, then finalizes the session and
prints its record as JSON.

Input is a JSON array, newline-delimited JSON, or GeoJSON
FeatureCollections, optionally gzipped.

Examples:

  zcat run.json.gz | catfuse fuse --geojson > run.geojson
  catfuse fuse --session morning-run --store --router osrm run.json.gz
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := common.InterruptContext(context.Background())
		defer cancel()

		name := "-"
		if len(args) == 1 {
			name = args[0]
		}
		in, closeIn, err := openInput(name)
		if err != nil {
			slog.Error("Failed to open input", "error", err)
			os.Exit(1)
		}
		defer closeIn()

		router, err := route.New(routeConfig())
		if err != nil {
			slog.Error("Failed to build router", "error", err)
			os.Exit(1)
		}
		id := optFuseSession
		if id == "" {
			id = sessionIDFromName(name)
		}
		rec, err := runFuse(ctx, in, os.Stdout, fuseOptions{
			SessionID: id,
			Duration:  optFuseDuration,
			GeoJSON:   optFuseGeoJSON,
			Progress:  optFuseProgress,
			Session:   params.DefaultSessionConfig(),
			Router:    router,
		})
		if err != nil {
			slog.Error("Failed to fuse", "error", err)
			os.Exit(1)
		}

		if optFuseStore {
			s, err := state.OpenDatadirStore(params.DatadirRoot, false)
			if err != nil {
				slog.Error("Failed to open records store", "error", err)
				os.Exit(1)
			}
			defer s.Close()
			if err := s.Put(rec); err != nil {
				slog.Error("Failed to store record", "error", err)
				os.Exit(1)
			}
			slog.Info("Stored record", "session", rec.SessionID, "datadir", params.DatadirRoot)
		}
		if optFuseInflux {
			if err := influxdb.ExportRecords(params.DefaultInfluxConfig(), []*record.Record{rec}, true); err != nil {
				slog.Error("Failed to export record", "error", err)
				os.Exit(1)
			}
		}
	},
}

// runFuse ingests every sample from in into one session, finalizes it,
// and writes the record (or its FeatureCollection) to out.
func runFuse(ctx context.Context, in io.Reader, out io.Writer, opts fuseOptions) (*record.Record, error) {
	started := time.Now()
	session := api.NewSession(opts.SessionID, opts.Session, opts.Router)

	meter := stream.NewTickMeter("samples", opts.Progress, nil)
	defer meter.Stop()

	decodeErrors := 0
	samples := sample.Stream(ctx, in, func(err error) {
		decodeErrors++
		slog.Warn("Skipping undecodable sample", "error", err)
	})
	metered := stream.Tap(ctx, func(s sample.Sample) {
		meter.Mark(s.Time(), 0)
	}, samples)

	st := session.Ingest(ctx, metered, false)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if st.Fixes == 0 && decodeErrors > 0 {
		return nil, fmt.Errorf("no fixes decoded (%d errors)", decodeErrors)
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = session.Span()
	}
	rec := session.Finalize(ctx, duration)

	slog.Info("Fused session",
		"session", rec.SessionID,
		"samples", humanize.Comma(meter.Count()),
		"fixes", humanize.Comma(int64(st.Fixes)),
		"anomalous", st.Anomalous,
		"duplicates", st.Duplicates,
		"decode.errors", decodeErrors,
		"activity", rec.Label.String(),
		"distance", humanize.SIWithDigits(rec.MatchedDistance, 1, "m"),
		"elapsed", time.Since(started).Round(time.Millisecond))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	var v any = rec
	if opts.GeoJSON {
		v = rec.FeatureCollection()
	}
	if err := enc.Encode(v); err != nil {
		return rec, err
	}
	return rec, nil
}

// openInput opens a file, or stdin for "-", transparently gunzipping.
func openInput(name string) (io.Reader, func(), error) {
	var f io.ReadCloser = os.Stdin
	if name != "-" {
		var err error
		f, err = os.Open(name)
		if err != nil {
			return nil, nil, err
		}
	}
	r, err := catz.MaybeGunzip(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, func() { _ = f.Close() }, nil
}

func sessionIDFromName(name string) string {
	if name == "-" {
		return "stdin"
	}
	base := filepath.Base(name)
	for _, ext := range []string{".gz", ".json", ".geojson", ".ndjson"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func init() {
	rootCmd.AddCommand(fuseCmd)

	flags := fuseCmd.Flags()
	flags.StringVar(&optFuseSession, "session", "", "session id (default is the input file name)")
	flags.DurationVar(&optFuseDuration, "duration", 0, "session duration (default is the span of accepted fixes)")
	flags.BoolVar(&optFuseGeoJSON, "geojson", false, "print the record as a GeoJSON FeatureCollection")
	flags.BoolVar(&optFuseStore, "store", false, "store the record in the datadir records db")
	flags.BoolVar(&optFuseInflux, "influx", false, "export the record to InfluxDB (INFLUXDB_* env)")
	flags.DurationVar(&optFuseProgress, "progress", 5*time.Second, "progress log interval (0 disables)")
}
