// Package web serves the driver dashboard: targeting state over REST and
// websockets, and the annotated overlay stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/hub"
	"github.com/frc2228/pigrip/pkg/protocol"
	"github.com/frc2228/pigrip/pkg/targeting"
	"github.com/frc2228/pigrip/pkg/telemetry"
)

// CameraControl reads and changes the vision camera's settings.
// *camera.Manager satisfies it.
type CameraControl interface {
	GetConfigJSON() (map[string]interface{}, error)
	UpdateConfig(params map[string]interface{}) error
}

// Config configures the dashboard server.
type Config struct {
	Port int

	// ServerMode also exposes /ws/telemetry for the robot to connect to,
	// for robots configured with ntmode "server".
	ServerMode bool

	// StaticDir, when set, is served at /.
	StaticDir string

	// Overlay frame size, reported with every overlay frame.
	Width  int
	Height int
}

// Server is the web dashboard server
type Server struct {
	cfg Config
	app *fiber.App
	log *slog.Logger

	table       *telemetry.Table
	calibration targeting.Calibration

	camera       CameraControl
	capabilities map[string]interface{}

	// Hubs for websocket broadcast
	targetingHub *hub.Hub
	overlayHub   *hub.Hub
	streams      map[string]*hub.Hub // driver cameras by name

	started    time.Time
	overlays   atomic.Uint64
	lastUpdate atomic.Int64 // unix nanos of the last targeting update
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithCamera enables the /api/camera endpoints.
func WithCamera(ctl CameraControl, capabilities map[string]interface{}) Option {
	return func(s *Server) {
		s.camera = ctl
		s.capabilities = capabilities
	}
}

// WithStreams adds a /ws/camera/<name> stream for each driver camera.
func WithStreams(names ...string) Option {
	return func(s *Server) {
		for _, name := range names {
			s.streams[name] = hub.New("camera:" + name)
		}
	}
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config, table *telemetry.Table, cal targeting.Calibration, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		log:          log.Component("web"),
		table:        table,
		calibration:  cal,
		targetingHub: hub.New("targeting"),
		overlayHub:   hub.New("overlay"),
		streams:      make(map[string]*hub.Hub),
		started:      time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "pigrip",
		DisableStartupMessage: true,
		UnescapePath:          true, // camera names may contain spaces
	})

	// CORS for the driver station browser
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/targeting", s.handleTargeting)
	api.Get("/calibration", s.handleCalibration)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/camera/capabilities", s.handleCameraCapabilities)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/targeting", websocket.New(s.serveHub(s.targetingHub)))
	app.Get("/ws/overlay", websocket.New(s.serveHub(s.overlayHub)))
	if cfg.ServerMode {
		app.Get("/ws/telemetry", websocket.New(s.serveHub(s.targetingHub)))
	}
	app.Get("/ws/camera/:name", s.requireStream, websocket.New(s.serveStream))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.targetingHub.Run(ctx)
	go s.overlayHub.Run(ctx)
	for _, h := range s.streams {
		go h.Run(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listener(ln)
	}()
	s.log.Info("dashboard listening", "addr", ln.Addr().String(), "server_mode", s.cfg.ServerMode)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		s.log.Warn("dashboard shutdown", "error", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Send broadcasts one frame's targeting data to dashboard and robot clients.
func (s *Server) Send(data protocol.TargetingData) error {
	msg, err := protocol.NewTargetingMessage(data)
	if err != nil {
		return err
	}
	out, err := hub.FromProtocol(msg)
	if err != nil {
		return err
	}
	s.lastUpdate.Store(time.Now().UnixNano())
	s.targetingHub.Broadcast(out)
	return nil
}

// SendOverlay broadcasts an annotated JPEG frame to overlay viewers. frame
// is the targeting frame the overlay was drawn from.
func (s *Server) SendOverlay(frame uint64, jpeg []byte) {
	msg, err := protocol.NewOverlayMessage(s.cfg.Width, s.cfg.Height, jpeg, frame)
	if err == nil {
		var out hub.Message
		if out, err = hub.FromProtocol(msg); err == nil {
			s.overlays.Add(1)
			s.overlayHub.Broadcast(out)
			return
		}
	}
	s.log.Warn("overlay frame dropped", "frame", frame, "error", err)
}

// SendFrame broadcasts a raw JPEG frame to viewers of a driver camera.
func (s *Server) SendFrame(camera string, frame uint64, width, height int, jpeg []byte) error {
	h, ok := s.streams[camera]
	if !ok {
		return fmt.Errorf("web: no stream for camera %q", camera)
	}
	msg, err := protocol.NewCameraFrameMessage(camera, width, height, jpeg, frame)
	if err != nil {
		return err
	}
	out, err := hub.FromProtocol(msg)
	if err != nil {
		return err
	}
	h.Broadcast(out)
	return nil
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
