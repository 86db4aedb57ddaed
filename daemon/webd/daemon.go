package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/metrics"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/route"
	"github.com/rotblauer/catfuse/state"
)

type WebDaemon struct {
	Config         *params.WebDaemonConfig
	logger         *slog.Logger
	started        time.Time
	melodyInstance *melody.Melody
	feedFused      event.FeedOf[fusedEvent]
	feedSub        event.Subscription

	router   route.Router
	sessions *sessionRegistry
	store    *state.RecordStore

	registry       metrics.Registry
	samplesCounter metrics.Counter
	anomalyCounter metrics.Counter
	finalizeMeter  metrics.Meter
	sessionsGauge  metrics.Gauge
}

func NewWebDaemon(config *params.WebDaemonConfig) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	if config.Session == nil {
		config.Session = params.DefaultSessionConfig()
	}
	router, err := route.New(config.Route)
	if err != nil {
		return nil, err
	}
	reg := metrics.NewRegistry()
	s := &WebDaemon{
		Config:         config,
		logger:         slog.With("d", "web"),
		started:        time.Now(),
		feedFused:      event.FeedOf[fusedEvent]{},
		router:         router,
		registry:       reg,
		samplesCounter: metrics.GetOrRegisterCounter("webd/samples", reg),
		anomalyCounter: metrics.GetOrRegisterCounter("webd/anomalies", reg),
		finalizeMeter:  metrics.GetOrRegisterMeter("webd/finalized", reg),
		sessionsGauge:  metrics.GetOrRegisterGauge("webd/sessions", reg),
	}
	if config.StoreRecords {
		if config.DataDir == "" {
			return nil, errors.New("records store needs a data dir")
		}
		if err := os.MkdirAll(config.DataDir, 0770); err != nil {
			return nil, err
		}
		s.store, err = state.OpenDatadirStore(config.DataDir, false)
		if err != nil {
			return nil, err
		}
	}
	s.sessions = newSessionRegistry(config.SessionTTL, s.onSessionEvicted)
	s.initMelody()
	return s, nil
}

// Run serves HTTP on the configured listener until ctx is done,
// then shuts down and closes the daemon.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.sessions.start()

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web daemon", "network", s.Config.Network, "address", ln.Addr().String())
		errs <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Stopping web daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return s.Close()
	case err := <-errs:
		_ = s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close stops session expiry, drops websocket clients and closes the
// records store. Live sessions are discarded unfinalized.
func (s *WebDaemon) Close() error {
	s.sessions.stop()
	s.feedSub.Unsubscribe()
	_ = s.melodyInstance.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Handler is the daemon's full HTTP handler.
func (s *WebDaemon) Handler() http.Handler {
	return ghandlers.RecoveryHandler(
		ghandlers.RecoveryLogger(recoveryLogger{s.logger}),
	)(s.NewRouter())
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	// The websocket is served outside the JSON subrouters.
	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/sessions").HandlerFunc(s.handleListSessions).Methods(http.MethodGet)
	apiJSONRoutes.Path("/sessions/{id}/estimate").HandlerFunc(s.handleEstimate).Methods(http.MethodGet)
	apiJSONRoutes.Path("/sessions/{id}/activity").HandlerFunc(s.handleActivity).Methods(http.MethodGet)
	apiJSONRoutes.Path("/sessions/{id}/deadreckon").HandlerFunc(s.handleDeadReckon).Methods(http.MethodGet)

	recordRoutes := apiJSONRoutes.NewRoute().Subrouter()
	recordRoutes.Use(ghandlers.CompressHandler)
	recordRoutes.Path("/records").HandlerFunc(s.handleListRecords).Methods(http.MethodGet)
	recordRoutes.Path("/records/{id}").HandlerFunc(s.handleGetRecord).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(tokenAuthenticationMiddleware(s.Config.Token))

	authenticatedAPIRoutes.Path("/sessions/{id}/samples").HandlerFunc(s.handleSamples).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/sessions/{id}/finalize").HandlerFunc(s.handleFinalize).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/sessions/{id}").HandlerFunc(s.handleDeleteSession).Methods(http.MethodDelete)

	return router
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", "panic", fmt.Sprint(v...))
}
