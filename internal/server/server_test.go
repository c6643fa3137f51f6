package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidcs/libicsneo-sub002/internal/communication"
	"github.com/intrepidcs/libicsneo-sub002/internal/metrics"
	"github.com/intrepidcs/libicsneo-sub002/internal/simdevice"
	"github.com/intrepidcs/libicsneo-sub002/internal/transport"
	"github.com/intrepidcs/libicsneo-sub002/internal/version"
)

func startBridge(t *testing.T, dev Device, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Serial: "SIM001"}
	}
	srv, err := New(cfg, dev)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, hs
}

func wsURL(hs *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + path
}

func TestNewDefaults(t *testing.T) {
	srv, err := New(&Config{}, simdevice.New(simdevice.DefaultConfig()))
	require.NoError(t, err)
	assert.Equal(t, "/device", srv.config.Path)
	assert.Equal(t, 8765, srv.config.Port)
	assert.Equal(t, ":8765", srv.Addr())

	_, err = New(&Config{}, nil)
	assert.Error(t, err)
}

func TestNewTLSMissingFiles(t *testing.T) {
	_, err := New(&Config{CertPath: "/nonexistent/cert.pem", KeyPath: "/nonexistent/key.pem"},
		simdevice.New(simdevice.DefaultConfig()))
	assert.Error(t, err)
}

func TestGetTLSInfo(t *testing.T) {
	assert.Equal(t, false, GetTLSInfo(nil)["enabled"])
}

func TestBridgeSerialRoundTrip(t *testing.T) {
	dev := simdevice.New(simdevice.DefaultConfig())
	srv, hs := startBridge(t, dev, nil)

	com := communication.New(transport.NewWebSocket(wsURL(hs, "/device")))
	require.NoError(t, com.Open())

	sn, err := com.GetSerialNumberSync(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "SIM001", sn.DeviceSerial)

	st := srv.Status()
	assert.True(t, st.Busy)
	assert.NotEmpty(t, st.Client)
	assert.Equal(t, int64(1), st.Sessions)
	assert.Equal(t, 1, srv.GetActiveConnections())

	require.NoError(t, com.Close())
	require.Eventually(t, func() bool { return srv.GetActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)

	st = srv.Status()
	assert.False(t, st.Busy)
	assert.Positive(t, st.TxBytes)
	assert.Positive(t, st.RxBytes)
}

func TestBridgeRejectsSecondClient(t *testing.T) {
	dev := simdevice.New(simdevice.DefaultConfig())
	_, hs := startBridge(t, dev, nil)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "/device"), nil)
	require.NoError(t, err)
	defer first.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(hs, "/device"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBridgeReleasesDeviceForNextClient(t *testing.T) {
	dev := simdevice.New(simdevice.DefaultConfig())
	srv, hs := startBridge(t, dev, nil)

	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "/device"), nil)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		_ = conn.Close()
		require.Eventually(t, func() bool { return srv.GetActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
	}
	assert.Equal(t, int64(2), srv.Status().Sessions)
}

type failingDevice struct{}

func (failingDevice) Open() error { return errors.New("port busy") }
func (failingDevice) Close() error { return nil }
func (failingDevice) Read() ([]byte, error) { return nil, nil }
func (failingDevice) Write(b []byte) error { return nil }

func TestBridgeDeviceOpenFailure(t *testing.T) {
	srv, hs := startBridge(t, failingDevice{}, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "/device"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr))
	require.Eventually(t, func() bool { return srv.GetActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusEndpoint(t *testing.T) {
	_, hs := startBridge(t, simdevice.New(simdevice.DefaultConfig()), &Config{Serial: "AB1234", Path: "/can"})

	resp, err := http.Get(hs.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "AB1234", st.Serial)
	assert.Equal(t, "/can", st.Path)
	assert.Equal(t, version.Get(), st.Build)
	assert.False(t, st.Busy)

	post, err := http.Post(hs.URL+"/status", "text/plain", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.BytesRead(10)

	_, hs := startBridge(t, simdevice.New(simdevice.DefaultConfig()), &Config{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	resp, err := http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "icsneo_rx_bytes_total 10")
}

func TestMetricsEndpointAbsent(t *testing.T) {
	_, hs := startBridge(t, simdevice.New(simdevice.DefaultConfig()), nil)

	resp, err := http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
