package webd

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/params"
)

func init() {
	common.SlogResetLevel(slog.LevelWarn)
	accessLog = accessLogger(io.Discard)
}

// newTestWebDaemon creates a WebDaemon for testing purposes.
// With store set, records are kept in a bbolt db under a temp dir.
func newTestWebDaemon(t *testing.T, store bool) *WebDaemon {
	t.Helper()
	config := params.DefaultTestWebDaemonConfig()
	if store {
		config.StoreRecords = true
		config.DataDir = t.TempDir()
	}
	d, err := NewWebDaemon(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}
