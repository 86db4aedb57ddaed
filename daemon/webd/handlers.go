package webd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotblauer/catfuse/api"
	"github.com/rotblauer/catfuse/metrics/influxdb"
	"github.com/rotblauer/catfuse/state"
	"github.com/rotblauer/catfuse/types/activity"
	"github.com/rotblauer/catfuse/types/record"
	"github.com/rotblauer/catfuse/types/sample"
)

// maxSamplesBody bounds one samples upload.
const maxSamplesBody = 32 << 20

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	WSOpen    bool      `json:"ws_open"`
	WSConns   int       `json:"ws_conns"`
	Sessions  int       `json:"sessions"`
	Samples   int64     `json:"samples"`
	Anomalies int64     `json:"anomalies"`
	Finalized int64     `json:"finalized"`
	Stored    bool      `json:"stored"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	s.sessionsGauge.Update(int64(s.sessions.len()))
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSOpen:    !s.melodyInstance.IsClosed(),
		WSConns:   s.melodyInstance.Len(),
		Sessions:  int(s.sessionsGauge.Snapshot().Value()),
		Samples:   s.samplesCounter.Snapshot().Count(),
		Anomalies: s.anomalyCounter.Snapshot().Count(),
		Finalized: s.finalizeMeter.Snapshot().Count(),
		Stored:    s.store != nil,
	}
	s.writeJSON(w, st)
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(j); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func getRequestSessionID(r *http.Request) string {
	if id, ok := mux.Vars(r)["id"]; ok {
		return id
	}
	return r.URL.Query().Get("session")
}

func (s *WebDaemon) handleGetSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := getRequestSessionID(r)
	if id == "" {
		s.logger.Warn("Missing session id", "url", r.URL)
		http.Error(w, "Missing session id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// handleGetSession looks up a live session, writing 404 if there is none.
func (s *WebDaemon) handleGetSession(w http.ResponseWriter, r *http.Request) (string, *sessionEntry, bool) {
	id, ok := s.handleGetSessionID(w, r)
	if !ok {
		return "", nil, false
	}
	e, ok := s.sessions.get(id)
	if !ok {
		http.Error(w, "No such session", http.StatusNotFound)
		return "", nil, false
	}
	return id, e, true
}

func (s *WebDaemon) newSession(id string) *api.Session {
	return api.NewSession(id, s.Config.Session, s.router)
}

type samplesResponse struct {
	api.IngestStats
	DecodeErrors int                   `json:"decodeErrors"`
	Activity     activity.Activity     `json:"activity"`
	Estimate     *sample.FusedLocation `json:"estimate,omitempty"`
}

// handleSamples feeds posted samples to a session, creating it on
// first use. The body is a JSON array, newline-delimited JSON, or
// GeoJSON FeatureCollection of samples.
func (s *WebDaemon) handleSamples(w http.ResponseWriter, r *http.Request) {
	id, ok := s.handleGetSessionID(w, r)
	if !ok {
		return
	}
	if r.Body == nil {
		http.Error(w, "Please send a request body", http.StatusBadRequest)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxSamplesBody)
	ctx := r.Context()

	decodeErrors := 0
	in := sample.Stream(ctx, body, func(err error) {
		decodeErrors++
		s.logger.Warn("Failed to decode sample", "session", id, "error", err)
	})

	e := s.sessions.getOrCreate(id, s.newSession)
	var (
		st     api.IngestStats
		est    sample.FusedLocation
		hasEst bool
		act    activity.Activity
	)
	e.with(func(session *api.Session) {
		in, closeArchive := s.archiveSamples(ctx, id, in)
		st = session.Ingest(ctx, in, r.URL.Query().Get("results") == "true")
		closeArchive()
		est, hasEst = session.CurrentEstimate()
		act = session.CurrentActivity()
	})

	total := st.Fixes + st.Inertial + st.Pedometer + st.Duplicates
	s.samplesCounter.Inc(int64(total))
	s.anomalyCounter.Inc(int64(st.Anomalous))

	if total == 0 && decodeErrors > 0 {
		http.Error(w, "Failed to decode", http.StatusUnprocessableEntity)
		return
	}

	resp := samplesResponse{IngestStats: st, DecodeErrors: decodeErrors, Activity: act}
	if hasEst {
		resp.Estimate = &est
		s.feedFused.Send(fusedEvent{
			Action:    websocketActionEstimate,
			SessionID: id,
			Estimate:  &est,
			Activity:  act,
		})
	}
	s.writeJSON(w, resp)
}

func (s *WebDaemon) handleEstimate(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.handleGetSession(w, r)
	if !ok {
		return
	}
	var est sample.FusedLocation
	e.with(func(session *api.Session) {
		est, ok = session.CurrentEstimate()
	})
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, est)
}

type sessionSummary struct {
	SessionID string            `json:"sessionId"`
	Activity  activity.Activity `json:"activity"`
	Accepted  int               `json:"accepted"`
	Anomalies int               `json:"anomalies"`
}

func summarize(id string, e *sessionEntry) (sum sessionSummary) {
	e.with(func(session *api.Session) {
		sum = sessionSummary{
			SessionID: id,
			Activity:  session.CurrentActivity(),
			Accepted:  session.AcceptedCount(),
			Anomalies: session.AnomalyCount(),
		}
	})
	return sum
}

func (s *WebDaemon) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.handleGetSession(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, summarize(id, e))
}

func (s *WebDaemon) handleListSessions(w http.ResponseWriter, r *http.Request) {
	out := []sessionSummary{}
	for _, id := range s.sessions.ids() {
		if e, ok := s.sessions.get(id); ok {
			out = append(out, summarize(id, e))
		}
	}
	s.writeJSON(w, out)
}

// handleDeadReckon projects the session forward ?interval= (default 1s)
// from its latest inertial sample.
func (s *WebDaemon) handleDeadReckon(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.handleGetSession(w, r)
	if !ok {
		return
	}
	interval, err := durationParam(r, "interval", time.Second)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var loc sample.FusedLocation
	e.with(func(session *api.Session) {
		loc, ok = session.DeadReckon(interval)
	})
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, loc)
}

// handleFinalize finalizes a session into a record.
// ?duration= is the session duration; it defaults to the span of
// accepted fixes. ?format=geojson renders a FeatureCollection.
func (s *WebDaemon) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.handleGetSession(w, r)
	if !ok {
		return
	}
	var (
		rec *record.Record
		err error
	)
	e.with(func(session *api.Session) {
		var duration time.Duration
		duration, err = durationParam(r, "duration", session.Span())
		if err != nil {
			return
		}
		rec = session.Finalize(r.Context(), duration)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.finalizeMeter.Mark(1)
	if err := s.persist(rec); err != nil {
		http.Error(w, "Failed to store record", http.StatusInternalServerError)
		return
	}
	s.feedFused.Send(fusedEvent{
		Action:    websocketActionFinalize,
		SessionID: id,
		Activity:  rec.Label,
	})

	if r.URL.Query().Get("format") == "geojson" {
		s.writeJSON(w, rec.FeatureCollection())
		return
	}
	s.writeJSON(w, rec)
}

// persist stores rec and queues its export, when either is enabled.
func (s *WebDaemon) persist(rec *record.Record) error {
	if s.store != nil {
		if err := s.store.Put(rec); err != nil {
			return err
		}
	}
	if s.Config.ExportInflux && s.Config.Influx.Enabled() {
		go func() {
			if err := influxdb.ExportRecords(s.Config.Influx, []*record.Record{rec}, true); err != nil {
				s.logger.Warn("Failed to export record", "session", rec.SessionID, "error", err)
			}
		}()
	}
	return nil
}

func (s *WebDaemon) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.handleGetSessionID(w, r)
	if !ok {
		return
	}
	if _, ok := s.sessions.remove(id); !ok {
		http.Error(w, "No such session", http.StatusNotFound)
		return
	}
	s.logger.Info("Deleted session", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// onSessionEvicted finalizes and persists an idle session that
// accepted any fixes.
func (s *WebDaemon) onSessionEvicted(id string, e *sessionEntry) {
	var rec *record.Record
	e.with(func(session *api.Session) {
		if session.AcceptedCount() == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		rec = session.Finalize(ctx, session.Span())
	})
	if rec == nil {
		s.logger.Info("Expired empty session", "session", id)
		return
	}
	s.finalizeMeter.Mark(1)
	if err := s.persist(rec); err != nil {
		s.logger.Error("Failed to persist expired session", "session", id, "error", err)
		return
	}
	s.logger.Info("Expired session", "session", id, "activity", rec.Label.String())
}

func (s *WebDaemon) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Records are not stored", http.StatusNotFound)
		return
	}
	recs, err := s.store.List()
	if err != nil {
		s.logger.Error("Failed to list records", "error", err)
		http.Error(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, recs)
}

func (s *WebDaemon) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Records are not stored", http.StatusNotFound)
		return
	}
	id, ok := s.handleGetSessionID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(id)
	if errors.Is(err, state.ErrNotFound) {
		http.Error(w, "No such record", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read record", "session", id, "error", err)
		http.Error(w, "Failed to read record", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("format") == "geojson" {
		s.writeJSON(w, rec.FeatureCollection())
		return
	}
	s.writeJSON(w, rec)
}

func durationParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New(name + " must not be negative")
	}
	return d, nil
}
