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
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/catfuse/metrics/influxdb"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/state"
	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types/record"
	"github.com/spf13/cobra"
)

var optRecordsGeoJSON bool

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored activity records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withStore(true, func(s *state.RecordStore) error {
			recs, err := s.List()
			if err != nil {
				return err
			}
			return printRecordTable(os.Stdout, recs)
		})
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <session>",
	Short: "Print one stored record as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withStore(true, func(s *state.RecordStore) error {
			rec, err := s.Get(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if optRecordsGeoJSON {
				return enc.Encode(rec.FeatureCollection())
			}
			return enc.Encode(rec)
		})
	},
}

var recordsRmCmd = &cobra.Command{
	Use:   "rm <session>...",
	Short: "Delete stored records",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withStore(false, func(s *state.RecordStore) error {
			for _, id := range args {
				if err := s.Delete(id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				slog.Info("Deleted record", "session", id)
			}
			return nil
		})
	},
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored records to InfluxDB (INFLUXDB_* env)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withStore(true, func(s *state.RecordStore) error {
			recs, err := s.List()
			if err != nil {
				return err
			}
			ctx := context.Background()
			config := params.DefaultInfluxConfig()
			exported := 0
			for batch := range stream.Batch(ctx, params.DefaultExportBatchSize, stream.Slice(ctx, recs)) {
				if err := influxdb.ExportRecords(config, batch, true); err != nil {
					return err
				}
				exported += len(batch)
				slog.Debug("Exported batch", "size", len(batch), "exported", exported)
			}
			slog.Info("Exported records", "count", exported)
			return nil
		})
	},
}

var recordsImportCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Store records read as a stream of JSON values (gzip ok), e.g. saved from records get",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		name := "-"
		if len(args) == 1 {
			name = args[0]
		}
		r, closeInput, err := openInput(name)
		if err != nil {
			slog.Error("Failed to open input", "input", name, "error", err)
			os.Exit(1)
		}
		defer closeInput()
		withStore(false, func(s *state.RecordStore) error {
			n, err := importRecords(context.Background(), s, r)
			slog.Info("Imported records", "count", n)
			return err
		})
	},
}

// importRecords stores each record decoded from r. Records without a
// session ID are skipped. The first decode or store error is returned.
func importRecords(ctx context.Context, s *state.RecordStore, r io.Reader) (int, error) {
	var decodeErr error
	imported := 0
	for rec := range stream.NDJSON[*record.Record](ctx, r, func(err error) {
		if decodeErr == nil {
			decodeErr = err
		}
	}) {
		if rec == nil || rec.SessionID == "" {
			slog.Warn("Skipping record without session")
			continue
		}
		if err := s.Put(rec); err != nil {
			return imported, fmt.Errorf("%s: %w", rec.SessionID, err)
		}
		imported++
	}
	return imported, decodeErr
}

func withStore(readOnly bool, fn func(s *state.RecordStore) error) {
	s, err := state.OpenDatadirStore(params.DatadirRoot, readOnly)
	if err != nil {
		slog.Error("Failed to open records store", "datadir", params.DatadirRoot, "error", err)
		os.Exit(1)
	}
	err = fn(s)
	_ = s.Close()
	if err != nil {
		slog.Error("Records command failed", "error", err)
		os.Exit(1)
	}
}

func printRecordTable(w io.Writer, recs []*record.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tACTIVITY\tSTART\tDURATION\tDISTANCE\tPACE\tCONFIDENCE\tANOMALIES")
	for _, r := range recs {
		pace := "-"
		if r.AvgPace > 0 {
			pace = (time.Duration(r.AvgPace) * time.Second).String() + "/km"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%s\t%.2f\t%d\n",
			r.SessionID,
			r.Label.Emoji(), r.Label.String(),
			humanize.Time(r.StartTime),
			(time.Duration(r.Duration) * time.Second).String(),
			humanize.SIWithDigits(r.MatchedDistance, 1, "m"),
			pace,
			r.AvgConfidence,
			r.AnomalyCount)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd, recordsGetCmd, recordsRmCmd, recordsExportCmd, recordsImportCmd)
	recordsGetCmd.Flags().BoolVar(&optRecordsGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
}
