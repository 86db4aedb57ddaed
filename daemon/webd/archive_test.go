package webd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotblauer/catfuse/catz"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/testing/testdata"
)

func TestWebDaemon_ArchiveSamples(t *testing.T) {
	config := params.DefaultTestWebDaemonConfig()
	config.DataDir = t.TempDir()
	config.ArchiveSamples = true
	d, err := NewWebDaemon(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	// The second upload repeats every fix. The archive keeps the raw
	// uploads, duplicates included.
	for i := 0; i < 2; i++ {
		code, body := do(t, http.MethodPost, srv.URL+"/sessions/a%20b/samples", runBody(t), nil)
		if code != http.StatusOK {
			t.Fatalf("upload %d: %d %s", i, code, body)
		}
	}

	r, err := catz.NewFlatWithRoot(config.DataDir).Joins(samplesArchiveDir).NamedGZReader(archiveName("a b"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	samples, err := testdata.ReadSamples(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 20 {
		t.Errorf("want 20 archived samples, got %d", len(samples))
	}
}

func TestArchiveName(t *testing.T) {
	if got := archiveName("../x"); got != ".._x.ndjson.gz" {
		t.Errorf("unexpected archive name %q", got)
	}
}
