package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/crteal/shh/internal/chat"
	"github.com/crteal/shh/internal/config"
)

// submitRequest is the POST /chat body. Data is plain text for type "text"
// and a base64-encoded audio blob for type "audio".
type submitRequest struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Server bundles the Echo router and its dependencies.
type Server struct {
	log   *zap.Logger
	orch  *chat.Orchestrator
	queue chat.EventQueue

	Echo *echo.Echo
}

// New constructs the HTTP server with routes.
func New(cfg config.Config, log *zap.Logger, orch *chat.Orchestrator, queue chat.EventQueue) *Server {
	s := &Server{log: log, orch: orch, queue: queue}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger(log), middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/chat", s.submitChat)
	e.GET("/chat", s.streamChat)
	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}

	s.Echo = e
	return s
}

// submitChat accepts a chat submission and returns before the turn produces
// anything. An empty data field is accepted; the turn still runs.
func (s *Server) submitChat(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch req.Type {
	case "text":
		s.orch.SubmitText(req.Data)
	case "audio":
		s.orch.SubmitAudio(req.Data)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown message type %q", req.Type))
	}
	return c.NoContent(http.StatusAccepted)
}

// streamChat is the per-connection publisher loop: it drains the shared
// event queue and pushes each event as one SSE frame until the client
// disconnects. The blocking read is cancelled by the request context, so a
// dropped connection releases the loop promptly even when the queue is idle.
func (s *Server) streamChat(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	for {
		ev, err := s.queue.Get(ctx)
		if err != nil {
			// client disconnected; expected termination, not an error
			return nil
		}
		data, err := json.Marshal(ev)
		if err != nil {
			s.log.Error("marshal event", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
			return nil
		}
		w.Flush()
	}
}

// requestLogger is a minimal zap access-log middleware.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
