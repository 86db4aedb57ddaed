package webd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotblauer/catfuse/testing/testdata"
	"github.com/rotblauer/catfuse/types/record"
	"github.com/rotblauer/catfuse/types/sample"
	"github.com/tidwall/gjson"
)

func runBody(t *testing.T) []byte {
	t.Helper()
	fixes := testdata.Straight(testdata.TraceOpts{
		N: 10, Speed: 3, Heading: 0, Accuracy: 5, ReportSpeed: true,
	})
	buf := bytes.Buffer{}
	for _, f := range fixes {
		f := f
		b, err := sample.Encode(sample.Sample{Kind: sample.KindFix, Fix: &f})
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func do(t *testing.T, method, url string, body []byte, header http.Header) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://localhost/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_statusReport(t *testing.T) {
	d := newTestWebDaemon(t, false)
	req := httptest.NewRequest("GET", "http://localhost/status", nil)
	w := httptest.NewRecorder()
	d.statusReport(w, req)
	body, _ := io.ReadAll(w.Result().Body)
	status := webDaemonStatus{}
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if status.Uptime == "" {
		t.Fatal("uptime is empty")
	}
	if status.Sessions != 0 || status.Stored {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestWebDaemon_SessionLifecycle(t *testing.T) {
	d := newTestWebDaemon(t, true)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	code, _ := do(t, http.MethodGet, srv.URL+"/sessions/run1/estimate", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("estimate before samples: want 404, got %d", code)
	}

	code, body := do(t, http.MethodPost, srv.URL+"/sessions/run1/samples?results=true", runBody(t), nil)
	if code != http.StatusOK {
		t.Fatalf("post samples: %d %s", code, body)
	}
	if gjson.GetBytes(body, "accepted").Int() != 10 || gjson.GetBytes(body, "results.#").Int() != 10 {
		t.Errorf("unexpected ingest response: %s", body)
	}
	if gjson.GetBytes(body, "activity").String() != "run" {
		t.Errorf("want live activity run: %s", body)
	}

	code, body = do(t, http.MethodGet, srv.URL+"/sessions/run1/estimate", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "confidence").Float() < 0.89 {
		t.Errorf("estimate: %d %s", code, body)
	}
	code, body = do(t, http.MethodGet, srv.URL+"/sessions/run1/activity", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "accepted").Int() != 10 {
		t.Errorf("activity: %d %s", code, body)
	}
	code, _ = do(t, http.MethodGet, srv.URL+"/sessions/run1/deadreckon", nil, nil)
	if code != http.StatusNoContent {
		t.Errorf("dead reckoning without inertial: want 204, got %d", code)
	}
	code, body = do(t, http.MethodGet, srv.URL+"/sessions", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "#").Int() != 1 {
		t.Errorf("sessions: %d %s", code, body)
	}

	code, body = do(t, http.MethodPost, srv.URL+"/sessions/run1/finalize?duration=9s", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("finalize: %d %s", code, body)
	}
	rec := record.Record{}
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Label.String() != "run" || rec.AcceptedCount != 10 || rec.Duration != 9 {
		t.Errorf("unexpected record: %+v", rec)
	}

	code, body = do(t, http.MethodGet, srv.URL+"/records/run1", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "sessionId").String() != "run1" {
		t.Errorf("stored record: %d %s", code, body)
	}
	code, body = do(t, http.MethodGet, srv.URL+"/records/run1?format=geojson", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "type").String() != "FeatureCollection" {
		t.Errorf("stored record geojson: %d %s", code, body)
	}
	code, body = do(t, http.MethodGet, srv.URL+"/records", nil, nil)
	if code != http.StatusOK || gjson.GetBytes(body, "#").Int() != 1 {
		t.Errorf("records: %d %s", code, body)
	}

	code, _ = do(t, http.MethodDelete, srv.URL+"/sessions/run1", nil, nil)
	if code != http.StatusNoContent {
		t.Errorf("delete: want 204, got %d", code)
	}
	code, _ = do(t, http.MethodDelete, srv.URL+"/sessions/run1", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("second delete: want 404, got %d", code)
	}
	code, _ = do(t, http.MethodGet, srv.URL+"/sessions/run1/estimate", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("estimate after delete: want 404, got %d", code)
	}

	// The record outlives the session.
	code, _ = do(t, http.MethodGet, srv.URL+"/records/run1", nil, nil)
	if code != http.StatusOK {
		t.Errorf("record after session delete: want 200, got %d", code)
	}
}

func TestWebDaemon_BadSamples(t *testing.T) {
	d := newTestWebDaemon(t, false)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	code, _ := do(t, http.MethodPost, srv.URL+"/sessions/x/samples", []byte(`{"kind":"nope"}`), nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("want 422, got %d", code)
	}
	code, _ = do(t, http.MethodGet, srv.URL+"/records", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("records without a store: want 404, got %d", code)
	}
	code, _ = do(t, http.MethodPost, srv.URL+"/sessions/x/finalize?duration=nope", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad duration: want 400, got %d", code)
	}
}

func TestWebDaemon_Token(t *testing.T) {
	d := newTestWebDaemon(t, false)
	d.Config.Token = "secret"
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	code, _ := do(t, http.MethodPost, srv.URL+"/sessions/a/samples", runBody(t), nil)
	if code != http.StatusForbidden {
		t.Errorf("no token: want 403, got %d", code)
	}
	code, _ = do(t, http.MethodPost, srv.URL+"/sessions/a/samples", runBody(t),
		http.Header{"X-Catfuse-Token": []string{"secret"}})
	if code != http.StatusOK {
		t.Errorf("header token: want 200, got %d", code)
	}
	code, _ = do(t, http.MethodPost, srv.URL+"/sessions/a/finalize?api_token=secret", nil, nil)
	if code != http.StatusOK {
		t.Errorf("query token: want 200, got %d", code)
	}
	// Reads are open.
	code, _ = do(t, http.MethodGet, srv.URL+"/sessions/a/activity", nil, nil)
	if code != http.StatusOK {
		t.Errorf("read: want 200, got %d", code)
	}
}

func TestWebDaemon_Socket(t *testing.T) {
	d := newTestWebDaemon(t, false)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for d.melodyInstance.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	code, body := do(t, http.MethodPost, srv.URL+"/sessions/live/samples", runBody(t), nil)
	if code != http.StatusOK {
		t.Fatalf("post samples: %d %s", code, body)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(msg, "action").String() != "estimate" || gjson.GetBytes(msg, "sessionId").String() != "live" {
		t.Errorf("unexpected event: %s", msg)
	}
	if !gjson.GetBytes(msg, "estimate.point").Exists() {
		t.Errorf("event has no estimate: %s", msg)
	}
}

func TestWebDaemon_ExpiredSessionIsStored(t *testing.T) {
	d := newTestWebDaemon(t, true)
	d.sessions = newSessionRegistry(20*time.Millisecond, d.onSessionEvicted)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	code, body := do(t, http.MethodPost, srv.URL+"/sessions/idle/samples", runBody(t), nil)
	if code != http.StatusOK {
		t.Fatalf("post samples: %d %s", code, body)
	}
	time.Sleep(50 * time.Millisecond)
	d.sessions.deleteExpired()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, err := d.store.Get("idle")
		if err == nil {
			if rec.Duration != 9 {
				t.Errorf("expired session duration: want 9 s span, got %v", rec.Duration)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expired session was not stored: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if d.sessions.len() != 0 {
		t.Errorf("want no live sessions, got %d", d.sessions.len())
	}
}
