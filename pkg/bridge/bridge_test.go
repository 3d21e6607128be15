package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/panel"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

type stubPanel struct {
	status panel.Status
}

func (p stubPanel) Status() panel.Status { return p.status }

type stubRecovery struct {
	pending  bool
	filename string
	progress uint8
}

func (r stubRecovery) Pending() bool    { return r.pending }
func (r stubRecovery) Filename() string { return r.filename }
func (r stubRecovery) Progress() uint8  { return r.progress }

func newTestServer(t *testing.T) (*Server, *printer.Simulator, *httptest.Server) {
	t.Helper()
	sim := printer.NewSimulator()
	srv := New(Config{
		Controller: sim,
		Panel: stubPanel{status: panel.Status{
			Page: 1, State: "idle", PauseReason: "idle", Language: "chs", AudioOn: true,
		}},
		Recovery:     stubRecovery{pending: true, filename: "/TEST.GCO", progress: 42},
		PushInterval: 10 * time.Millisecond,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, sim, ts
}

func TestStatusEndpoint(t *testing.T) {
	_, sim, ts := newTestServer(t)
	sim.SetHotendActual(205)
	sim.SetHotendTarget(210)
	sim.SetBedActual(58)
	sim.SetBedTarget(60)
	sim.SetJob(3672, 42)

	resp, err := http.Get(ts.URL + "/printer/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report StatusReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	assert.Equal(t, uint16(1), report.Panel.Page)
	assert.Equal(t, "idle", report.Panel.State)
	assert.Equal(t, 205.0, report.Hotend.Actual)
	assert.Equal(t, 210.0, report.Hotend.Target)
	assert.Equal(t, 60.0, report.Bed.Target)
	assert.Equal(t, uint8(42), report.Job.Progress)
	assert.Equal(t, uint32(3672), report.Job.Elapsed)
}

func TestRecoveryEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/printer/recovery")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report RecoveryReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.Pending)
	assert.Equal(t, "/TEST.GCO", report.Filename)
	assert.Equal(t, uint8(42), report.Progress)
}

func TestGCodeEndpoint(t *testing.T) {
	_, sim, ts := newTestServer(t)

	body := bytes.NewBufferString(`{"script":"M104 S200"}`)
	resp, err := http.Post(ts.URL+"/printer/gcode", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []string{"M104 S200"}, sim.Injected())
}

func TestGCodeEndpointRejectsEmptyScript(t *testing.T) {
	_, sim, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/printer/gcode", "application/json",
		bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, sim.Injected())
}

func TestCORSPreflight(t *testing.T) {
	_, _, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/printer/status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketPush(t *testing.T) {
	srv, sim, ts := newTestServer(t)
	srv.running.Store(true)
	go srv.pushLoop()
	defer srv.running.Store(false)

	sim.SetHotendActual(199)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var note statusNotification
	require.NoError(t, conn.ReadJSON(&note))

	assert.Equal(t, "notify_status", note.Method)
	assert.Equal(t, 199.0, note.Params.Hotend.Actual)
}
