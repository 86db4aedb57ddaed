package influxdb

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/activity"
	"github.com/rotblauer/catfuse/types/record"
)

func testRecord() *record.Record {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &record.Record{
		SessionID:       "s1",
		StartTime:       start,
		EndTime:         start.Add(10 * time.Second),
		Duration:        10,
		Label:           activity.Hike,
		FusedPath:       orb.LineString{{13.4, 52.5}, {13.4, 52.5001}, {13.4, 52.5002}},
		MatchedDistance: 22.2,
		AcceptedCount:   3,
	}
}

func TestRecordPoints(t *testing.T) {
	rec := testRecord()
	pts := RecordPoints(rec, false)
	if len(pts) != 1 {
		t.Fatalf("expected 1 point without path, got %d", len(pts))
	}
	line := write.PointToLineProtocol(pts[0], time.Second)
	if !strings.HasPrefix(line, "catfuse_record,activity=hike,session=s1 ") {
		t.Errorf("unexpected line: %s", line)
	}
	if !strings.Contains(line, "accepted_count=3i") {
		t.Errorf("expected integer accepted_count, got %s", line)
	}

	pts = RecordPoints(rec, true)
	if len(pts) != 4 {
		t.Fatalf("expected summary plus 3 path points, got %d", len(pts))
	}
	if l := write.PointToLineProtocol(pts[2], time.Second); !strings.HasPrefix(l, "catfuse_fused,activity=hike,session=s1 ") {
		t.Errorf("unexpected path line: %s", l)
	}
	if !pts[1].Time().Equal(rec.StartTime) || !pts[3].Time().Equal(rec.EndTime) {
		t.Errorf("path points should span start..end, got %v..%v", pts[1].Time(), pts[3].Time())
	}
}

func TestExportRecordsNotConfigured(t *testing.T) {
	err := ExportRecords(&params.InfluxConfig{}, []*record.Record{testRecord()}, false)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExportRecords(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/api/v2/write") {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies = append(bodies, string(b))
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := &params.InfluxConfig{URL: srv.URL, Token: "t", Org: "o", Bucket: "b"}
	if err := ExportRecords(cfg, []*record.Record{testRecord(), nil}, true); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	all := strings.Join(bodies, "\n")
	if strings.Count(all, "catfuse_record,") != 1 || strings.Count(all, "catfuse_fused,") != 3 {
		t.Errorf("unexpected write body: %q", all)
	}
}
