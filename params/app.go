package params

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

func init() {
	metrics.Enabled = true
}

var DatadirRoot = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".catfuse")
	}
	return filepath.Join(home, ".catfuse")
}()

var RecordsDBName = "records.db"
var RecordsBucket = []byte("records")

// RecordsDBOpenTimeout bounds the wait for another process holding the records db lock.
var RecordsDBOpenTimeout = 5 * time.Second

var DefaultGZipCompressionLevel = gzip.BestCompression

// DefaultExportBatchSize is the number of records sent per Influx write.
var DefaultExportBatchSize = 100

// DefaultDedupeCacheSize is the number of recent sample hashes remembered
// when suppressing duplicate input.
var DefaultDedupeCacheSize = 10_000

var (
	SessionIdleTTL = 30 * time.Minute
)
