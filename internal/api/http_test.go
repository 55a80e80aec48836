// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/capture"
	"github.com/ManuGH/replayd/internal/control"
	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/inject"
	"github.com/ManuGH/replayd/internal/macro"
	"github.com/ManuGH/replayd/internal/recorder"
	"github.com/ManuGH/replayd/internal/store"
)

type apiFixture struct {
	srv     *httptest.Server
	ctrl    *control.Controller
	backend *inject.Memory
	pipe    *capture.Pipe
	store   *store.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	backend := inject.NewMemory(inject.Options{PacketCap: 10})
	pipe := capture.NewPipe()
	ctrl := control.New(control.Options{
		Backend:  backend,
		Recorder: recorder.New(pipe),
	})
	macros, err := store.New(t.TempDir())
	require.NoError(t, err)

	server := NewServer(Options{
		Controller:   ctrl,
		Store:        macros,
		SpeedDefault: 1.0,
	})
	srv := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		srv.Close()
		ctrl.EmergencyStop()
	})
	return &apiFixture{srv: srv, ctrl: ctrl, backend: backend, pipe: pipe, store: macros}
}

func (f *apiFixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.ctrl.State() == control.StateIdle
	}, 5*time.Second, 5*time.Millisecond)
}

func saveQuickMacro(t *testing.T, f *apiFixture) string {
	t.Helper()
	m := macro.New("api-demo", time.Now(), []event.Event{
		{Kind: event.KindKeyDown, Code: 0x1E},
		{Kind: event.KindKeyUp, Code: 0x1E, Offset: 10 * time.Millisecond},
	})
	id, err := f.store.Save(m)
	require.NoError(t, err)
	return id
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestStateEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.get(t, "/api/v1/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "idle", decodeBody(t, resp)["state"])
}

func TestRecordFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/record/start", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	f.pipe.Emit(capture.Notification{Kind: event.KindKeyDown, Code: 0x10})
	f.pipe.Emit(capture.Notification{Kind: event.KindKeyUp, Code: 0x10})
	time.Sleep(20 * time.Millisecond)

	resp = f.post(t, "/api/v1/record/stop", map[string]any{"name": "via-api", "save": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "via-api", body["name"])
	require.Equal(t, float64(2), body["events"])
	require.Equal(t, "via-api", body["id"])

	_, err := f.store.Load("via-api")
	require.NoError(t, err)
}

func TestPlaybackFromStore(t *testing.T) {
	f := newAPIFixture(t)
	id := saveQuickMacro(t, f)

	resp := f.post(t, "/api/v1/playback/start", map[string]any{"macro": id})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()
	f.waitIdle(t)

	require.Len(t, f.backend.Dispatches(), 2)
	require.Empty(t, f.backend.HeldKeys())
}

func TestPlaybackUnknownMacro(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.post(t, "/api/v1/playback/start", map[string]any{"macro": "nope"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", decodeBody(t, resp)["kind"])
}

func TestPlaybackUnknownProfile(t *testing.T) {
	f := newAPIFixture(t)
	id := saveQuickMacro(t, f)
	resp := f.post(t, "/api/v1/playback/start", map[string]any{"macro": id, "profile": "turbo"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestPlaybackWithoutMacro(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.post(t, "/api/v1/playback/start", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "empty_macro", decodeBody(t, resp)["kind"])
}

func TestStopWhileIdleConflicts(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.post(t, "/api/v1/playback/stop", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "invalid_transition", decodeBody(t, resp)["kind"])
}

func TestEmergencyStopAlwaysSucceeds(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 2; i++ {
		resp := f.post(t, "/api/v1/emergency-stop", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "idle", decodeBody(t, resp)["state"])
	}
}

func TestMacroCRUD(t *testing.T) {
	f := newAPIFixture(t)
	id := saveQuickMacro(t, f)

	resp := f.get(t, "/api/v1/macros")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["macros"], 1)

	resp = f.get(t, "/api/v1/macros/" + id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "api-demo", decodeBody(t, resp)["name"])

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/v1/macros/"+id, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, del.StatusCode)
	_ = del.Body.Close()

	resp = f.get(t, "/api/v1/macros/" + id)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHumanizationReport(t *testing.T) {
	f := newAPIFixture(t)
	id := saveQuickMacro(t, f)
	resp := f.post(t, "/api/v1/playback/start", map[string]any{"macro": id, "profile": "safe"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()
	f.waitIdle(t)

	resp = f.get(t, "/api/v1/humanization/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, true, body["enabled"])
	require.Greater(t, body["instructions"], float64(0))
}

func TestHistoryWithoutSink(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.get(t, "/api/v1/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decodeBody(t, resp)["playbacks"])
}

func TestSpammerEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/spammer/start", map[string]any{
		"key": "space", "tap": true, "interval_ms": 60, "count": 2,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.post(t, "/api/v1/spammer/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.post(t, "/api/v1/spammer/start", map[string]any{
		"key": "warp-drive", "interval_ms": 60,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestClickerEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/clicker/start", map[string]any{
		"button": "left", "interval_ms": 60, "count": 1,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.post(t, "/api/v1/clicker/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.post(t, "/api/v1/clicker/start", map[string]any{
		"button": "pinky", "interval_ms": 60,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRequestIDPropagation(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "test-req-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "test-req-1", resp.Header.Get("X-Request-Id"))

	resp2 := f.get(t, "/healthz")
	defer func() { _ = resp2.Body.Close() }()
	require.NotEmpty(t, resp2.Header.Get("X-Request-Id"))
}
