package params

import (
	"os"
	"path/filepath"
	"time"
)

type WebDaemonConfig struct {
	ListenerConfig
	DataDir string

	// StoreRecords persists finalized activity records under DataDir.
	StoreRecords bool

	// ArchiveSamples appends every uploaded sample, gzipped, under
	// DataDir/samples.
	ArchiveSamples bool

	// ExportInflux posts finalized records to Influx, when configured.
	ExportInflux bool

	// Token, if set, is required on requests that change sessions.
	Token string

	// SessionTTL evicts sessions not touched for this long.
	// Evicted sessions with accepted fixes are finalized first.
	SessionTTL time.Duration

	Session *SessionConfig
	Route   *RouteConfig
	Influx  *InfluxConfig
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir:        filepath.Join(DatadirRoot, "webd"),
		StoreRecords:   true,
		ArchiveSamples: true,
		ExportInflux:   true,
		Token:          os.Getenv("CATFUSE_TOKEN"),
		SessionTTL:     SessionIdleTTL,
		ListenerConfig: DefaultWebListenerConfig(),
		Session:        DefaultSessionConfig(),
		Route:          DefaultRouteConfig(),
		Influx:         DefaultInfluxConfig(),
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir: "",
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
		StoreRecords:   false,
		ArchiveSamples: false,
		SessionTTL:     time.Minute,
		Session:        DefaultSessionConfig(),
		Route:          DefaultRouteConfig(),
		Influx:         nil,
	}
}
