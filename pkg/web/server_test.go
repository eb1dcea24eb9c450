package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc2228/pigrip/pkg/protocol"
	"github.com/frc2228/pigrip/pkg/targeting"
	"github.com/frc2228/pigrip/pkg/telemetry"
)

type fakeCamera struct {
	settings map[string]interface{}
	updates  []map[string]interface{}
	err      error
}

func (f *fakeCamera) GetConfigJSON() (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.settings, nil
}

func (f *fakeCamera) UpdateConfig(params map[string]interface{}) error {
	if _, ok := params["bogus"]; ok {
		return errors.New("unknown camera setting: bogus")
	}
	f.updates = append(f.updates, params)
	for k, v := range params {
		f.settings[k] = v
	}
	return nil
}

func newTestServer(t *testing.T, serverMode bool, opts ...Option) (*Server, *telemetry.Table) {
	t.Helper()
	table := telemetry.NewTable("")
	s := NewServer(Config{ServerMode: serverMode}, table, targeting.DefaultCalibration(), opts...)
	return s, table
}

func get(t *testing.T, s *Server, path string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHandleTargeting(t *testing.T) {
	s, table := newTestServer(t, false)
	table.Publish(targeting.Snapshot{
		Frame: 4,
		State: targeting.Acquiring,
		Estimate: &targeting.Estimate{
			DistanceInches:  60.2,
			RoundedDistance: 60,
		},
	})

	status, body := get(t, s, "/api/targeting")
	require.Equal(t, 200, status)

	var data protocol.TargetingData
	require.NoError(t, json.Unmarshal(body, &data))
	assert.Equal(t, "datatable", data.Table)
	assert.Equal(t, 1, data.TargState)
	assert.Equal(t, 60.2, data.DistTargetIn)
	assert.True(t, data.DistanceFresh())
	assert.False(t, data.OffsetFresh())
	assert.Equal(t, "Acquiring Target", data.Status)
}

func TestHandleCalibration(t *testing.T) {
	s, _ := newTestServer(t, false)

	status, body := get(t, s, "/api/calibration")
	require.Equal(t, 200, status)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &got))
	for _, key := range []string{"image_width", "fov_angle", "low_angle", "max_separation_pixels", "distance_table"} {
		assert.Contains(t, got, key)
	}

	var dist map[string]float64
	require.NoError(t, json.Unmarshal(got["distance_table"], &dist))
	assert.Len(t, dist, 31)
	assert.InDelta(t, 14.29213483, dist["21"], 1e-9)
}

func TestHandleHealth(t *testing.T) {
	s, table := newTestServer(t, false)

	status, body := get(t, s, "/api/health")
	require.Equal(t, 200, status)
	var before HealthResponse
	require.NoError(t, json.Unmarshal(body, &before))
	assert.Equal(t, "ok", before.Status)
	assert.Equal(t, int64(-1), before.LastUpdateMs)
	assert.Equal(t, "searching", before.State)

	table.Publish(targeting.Snapshot{Frame: 9})
	require.NoError(t, s.Send(table.Data()))
	s.SendOverlay(9, []byte{0xFF, 0xD8})

	_, body = get(t, s, "/api/health")
	var after HealthResponse
	require.NoError(t, json.Unmarshal(body, &after))
	assert.Equal(t, uint64(9), after.Frame)
	assert.GreaterOrEqual(t, after.LastUpdateMs, int64(0))
	assert.Equal(t, uint64(1), after.OverlayFrames)
}

func TestCameraEndpoints(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s, _ := newTestServer(t, false)
		status, _ := get(t, s, "/api/camera")
		assert.Equal(t, 404, status)
		status, _ = get(t, s, "/api/camera/capabilities")
		assert.Equal(t, 404, status)
	})

	cam := &fakeCamera{settings: map[string]interface{}{"width": float64(320), "fps": float64(30)}}
	s, _ := newTestServer(t, false, WithCamera(cam, map[string]interface{}{"max_fps": 120}))

	t.Run("get", func(t *testing.T) {
		status, body := get(t, s, "/api/camera")
		require.Equal(t, 200, status)
		assert.JSONEq(t, `{"width":320,"fps":30}`, string(body))
	})

	t.Run("capabilities", func(t *testing.T) {
		status, body := get(t, s, "/api/camera/capabilities")
		require.Equal(t, 200, status)
		assert.JSONEq(t, `{"max_fps":120}`, string(body))
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"update", `{"fps":60}`, 200},
		{"rejected", `{"bogus":1}`, 400},
		{"bad json", `{`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/camera", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.App().Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Len(t, cam.updates, 1)
	assert.Equal(t, float64(60), cam.settings["fps"])

	t.Run("settings error", func(t *testing.T) {
		broken := &fakeCamera{err: errors.New("encode camera config: boom")}
		s, _ := newTestServer(t, false, WithCamera(broken, nil))
		status, body := get(t, s, "/api/camera")
		assert.Equal(t, 500, status)
		assert.Contains(t, string(body), "boom")
	})
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, false)
	status, _ := get(t, s, "/ws/targeting")
	assert.Equal(t, 426, status)
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return")
		}
	})
	return "ws://" + ln.Addr().String()
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		ws, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestTargetingStream(t *testing.T) {
	s, table := newTestServer(t, false)
	base := serve(t, s)
	ws := dial(t, base+"/ws/targeting")

	require.Eventually(t, func() bool { return s.targetingHub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	table.Publish(targeting.Snapshot{Frame: 1, State: targeting.Searching})
	require.NoError(t, s.Send(table.Data()))

	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeTargeting, msg.Type)
	td, err := msg.GetTargetingData()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), td.Frame)
}

func readFrame(t *testing.T, ws *websocket.Conn, want protocol.MessageType) *protocol.FrameData {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	require.Equal(t, want, msg.Type)
	frame, err := msg.GetFrameData()
	require.NoError(t, err)
	return frame
}

func TestOverlayStream(t *testing.T) {
	table := telemetry.NewTable("")
	s := NewServer(Config{Width: 320, Height: 240}, table, targeting.DefaultCalibration())
	base := serve(t, s)
	ws := dial(t, base+"/ws/overlay")

	require.Eventually(t, func() bool { return s.overlayHub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.SendOverlay(17, []byte{0xFF, 0xD8, 0xFF})

	frame := readFrame(t, ws, protocol.TypeOverlay)
	assert.Equal(t, uint64(17), frame.FrameID, "overlay matches its targeting frame")
	assert.Equal(t, 320, frame.Width)
	assert.Equal(t, 240, frame.Height)
	jpeg, err := frame.DecodeFrameData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, jpeg)
}

func TestCameraStreams(t *testing.T) {
	s, _ := newTestServer(t, false, WithStreams("rear", "intake cam"))
	base := serve(t, s)

	t.Run("unknown camera", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/camera/front", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Error(t, s.SendFrame("front", 1, 160, 120, []byte{0xFF}))
	})

	t.Run("named camera", func(t *testing.T) {
		rear := dial(t, base+"/ws/camera/rear")
		intake := dial(t, base+"/ws/camera/"+url.PathEscape("intake cam"))
		require.Eventually(t, func() bool {
			return s.streams["rear"].ClientCount() == 1 && s.streams["intake cam"].ClientCount() == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, s.SendFrame("rear", 5, 160, 120, []byte{0xFF, 0xD8}))
		require.NoError(t, s.SendFrame("intake cam", 9, 320, 240, []byte{0xFF, 0xD9}))

		frame := readFrame(t, rear, protocol.TypeFrame)
		assert.Equal(t, "rear", frame.Camera)
		assert.Equal(t, uint64(5), frame.FrameID)
		assert.Equal(t, 160, frame.Width)

		frame = readFrame(t, intake, protocol.TypeFrame)
		assert.Equal(t, "intake cam", frame.Camera)
		assert.Equal(t, uint64(9), frame.FrameID)
	})

	t.Run("health", func(t *testing.T) {
		_, body := get(t, s, "/api/health")
		var health HealthResponse
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Contains(t, health.StreamClients, "rear")
		assert.Contains(t, health.StreamClients, "intake cam")
	})
}

func TestTelemetryRouteOnlyInServerMode(t *testing.T) {
	client, _ := newTestServer(t, false)
	clientBase := serve(t, client)
	_, resp, err := websocket.DefaultDialer.Dial(clientBase+"/ws/telemetry", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)

	server, table := newTestServer(t, true)
	base := serve(t, server)
	ws := dial(t, base+"/ws/telemetry")
	require.Eventually(t, func() bool { return server.targetingHub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	table.Publish(targeting.Snapshot{Frame: 2})
	require.NoError(t, server.Send(table.Data()))

	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeTargeting, msg.Type)
}
