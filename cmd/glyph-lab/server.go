package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glyphapp/glyph-node/pkg/session"
)

// Config holds lab server configuration
type Config struct {
	Port       int
	Cadence    time.Duration
	EnableCORS bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:       8080,
		Cadence:    250 * time.Millisecond,
		EnableCORS: true,
	}
}

// Server serves one presented transfer over HTTP so browser-based
// scanners can be pointed at it.
type Server struct {
	presenter  *session.Presenter
	router     *gin.Engine
	config     *Config
	httpServer *http.Server
	startedAt  time.Time
}

// FrameResponse is the full cycle listing
type FrameResponse struct {
	Success    bool     `json:"success"`
	TransferID string   `json:"transferId"`
	FrameCount int      `json:"frameCount"`
	CadenceMs  int64    `json:"cadenceMs"`
	Frames     []string `json:"frames"`
}

// NextFrameResponse is one cycling frame
type NextFrameResponse struct {
	Success    bool   `json:"success"`
	Index      int    `json:"index"`
	FrameCount int    `json:"frameCount"`
	Frame      string `json:"frame"`
}

// NewServer creates the lab HTTP server around a prepared presenter
func NewServer(presenter *session.Presenter, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	s := &Server{
		presenter: presenter,
		router:    router,
		config:    config,
		startedAt: time.Now(),
	}

	if config.EnableCORS {
		router.Use(corsMiddleware())
	}
	router.Use(gin.Recovery())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/frames", s.handleFrames)
		v1.GET("/frames/next", s.handleNextFrame)
	}

	s.router.GET("/drop", s.handleDropPage)
	s.router.GET("/healthz", s.handleHealthz)
}

// handleFrames handles GET /api/v1/frames
func (s *Server) handleFrames(c *gin.Context) {
	c.JSON(http.StatusOK, FrameResponse{
		Success:    true,
		TransferID: fmt.Sprintf("%x", s.presenter.TransferID()),
		FrameCount: s.presenter.FrameCount(),
		CadenceMs:  s.config.Cadence.Milliseconds(),
		Frames:     s.presenter.Frames(),
	})
}

// handleNextFrame handles GET /api/v1/frames/next. The cycling index
// is derived from wall-clock elapsed time, so every client sees the
// same frame at the same moment.
func (s *Server) handleNextFrame(c *gin.Context) {
	tick := int(time.Since(s.startedAt) / s.config.Cadence)
	c.JSON(http.StatusOK, NextFrameResponse{
		Success:    true,
		Index:      tick % s.presenter.FrameCount(),
		FrameCount: s.presenter.FrameCount(),
		Frame:      s.presenter.Frame(tick),
	})
}

// handleDropPage handles GET /drop
func (s *Server) handleDropPage(c *gin.Context) {
	page := fmt.Sprintf(dropPageHTML, s.config.Cadence.Milliseconds())
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"frameCount": s.presenter.FrameCount(),
		"uptime":     time.Since(s.startedAt).String(),
	})
}

// Start runs the server until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Printf("🌐 Lab server listening on port %d...\n", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ Server error: %v\n", err)
		}
	}()

	<-ctx.Done()

	fmt.Println("\n🛑 Shutting down lab server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Minimal page that polls the cycling frame endpoint and renders it
// as text for a phone scanner pointed at the screen.
const dropPageHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Glyph Drop</title></head>
<body style="background:#111;color:#eee;font-family:monospace;text-align:center">
<h1>Glyph Drop</h1>
<pre id="frame" style="font-size:10px;word-break:break-all;white-space:pre-wrap;max-width:40em;margin:2em auto"></pre>
<p id="meta"></p>
<script>
const cadence = %d;
async function tick() {
  const res = await fetch('/api/v1/frames/next');
  const f = await res.json();
  document.getElementById('frame').textContent = f.frame;
  document.getElementById('meta').textContent = 'frame ' + (f.index + 1) + ' / ' + f.frameCount;
}
tick();
setInterval(tick, cadence);
</script>
</body>
</html>
`
