// Package httpapi exposes the inventory service over HTTP with gin, including
// server-sent event streams for the live views.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"roomtrack/internal/core"
)

// Options configures the router.
type Options struct {
	Logger core.Logger
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Version is reported by /health.
	Version string
}

type handler struct {
	svc     *core.Service
	logger  core.Logger
	started time.Time
	version string
}

// NewRouter builds the gin engine serving svc.
func NewRouter(svc *core.Service, opts Options) *gin.Engine {
	h := &handler{
		svc:     svc,
		logger:  opts.Logger,
		started: time.Now(),
		version: opts.Version,
	}
	if h.logger == nil {
		h.logger = core.NewLogger(nil)
	}
	if h.version == "" {
		h.version = "dev"
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.health)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := router.Group("/api/v1")
	api.GET("/items", h.listItems)
	api.POST("/items", h.addItem)
	api.GET("/items/rfid/:tag", h.findByRFID)
	api.GET("/movements", h.listMovements)
	api.POST("/movements", h.recordMovement)
	api.POST("/scans", h.scan)
	api.GET("/rooms/:room/items", h.roomInventory)
	api.POST("/demo", h.initializeDemo)
	api.POST("/demo/reset", h.resetDemo)
	api.GET("/exports", h.listExports)
	api.POST("/exports", h.createExport)
	api.GET("/consistency", h.consistency)

	stream := api.Group("/stream")
	stream.GET("/items", h.streamItems)
	stream.GET("/movements", h.streamMovements)
	stream.GET("/rooms/:room/items", h.streamRoom)

	return router
}

func requestLogger(logger core.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type healthStatus struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthStatus{
		Status:  "ok",
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: h.version,
	})
}
