package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/frc2228/pigrip/pkg/hub"
	"github.com/frc2228/pigrip/pkg/targeting"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Frame            uint64  `json:"frame"`
	State            string  `json:"state"`
	LastUpdateMs     int64   `json:"last_update_ms"` // -1 before the first frame
	OverlayFrames    uint64  `json:"overlay_frames"`
	TargetingClients int     `json:"targeting_clients"`
	OverlayClients   int     `json:"overlay_clients"`

	// StreamClients counts viewers per driver camera.
	StreamClients map[string]int `json:"stream_clients,omitempty"`
}

// CalibrationResponse is the calibration record plus its distance table.
type CalibrationResponse struct {
	targeting.Calibration
	DistanceTable map[int]float64 `json:"distance_table"`
}

// handleHealth reports liveness and frame progress
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:           "ok",
		UptimeSeconds:    time.Since(s.started).Seconds(),
		Frame:            s.table.Frame(),
		State:            s.table.State().String(),
		LastUpdateMs:     -1,
		OverlayFrames:    s.overlays.Load(),
		TargetingClients: s.targetingHub.ClientCount(),
		OverlayClients:   s.overlayHub.ClientCount(),
	}
	if len(s.streams) > 0 {
		resp.StreamClients = make(map[string]int, len(s.streams))
		for name, h := range s.streams {
			resp.StreamClients[name] = h.ClientCount()
		}
	}
	if last := s.lastUpdate.Load(); last != 0 {
		resp.LastUpdateMs = time.Since(time.Unix(0, last)).Milliseconds()
	}
	return c.JSON(resp)
}

// handleTargeting returns the latest telemetry table
func (s *Server) handleTargeting(c *fiber.Ctx) error {
	return c.JSON(s.table.Data())
}

// handleCalibration returns the constants the targeter runs with
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	return c.JSON(CalibrationResponse{
		Calibration:   s.calibration,
		DistanceTable: s.calibration.Table.Entries(),
	})
}

// handleGetCamera returns the vision camera settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera control not configured")
	}
	return s.cameraSettings(c)
}

// handleUpdateCamera applies a partial settings update or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera control not configured")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.log.Info("camera settings updated", "params", params)
	return s.cameraSettings(c)
}

func (s *Server) cameraSettings(c *fiber.Ctx) error {
	settings, err := s.camera.GetConfigJSON()
	if err != nil {
		s.log.Error("camera settings unavailable", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(settings)
}

// handleCameraCapabilities returns the accepted setting ranges
func (s *Server) handleCameraCapabilities(c *fiber.Ctx) error {
	if s.capabilities == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera control not configured")
	}
	return c.JSON(s.capabilities)
}

// requireStream rejects camera names that have no stream
func (s *Server) requireStream(c *fiber.Ctx) error {
	if _, ok := s.streams[c.Params("name")]; !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown camera")
	}
	return c.Next()
}

// serveStream attaches a viewer to the named camera's hub
func (s *Server) serveStream(conn *websocket.Conn) {
	s.serveHub(s.streams[conn.Params("name")])(conn)
}

// serveHub attaches a websocket connection to h until it closes
func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client, err := hub.NewClient(h, conn)
		if err != nil {
			conn.Close()
			return
		}
		client.Run()
	}
}
