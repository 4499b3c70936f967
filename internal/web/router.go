// Package web exposes the scanner over HTTP: a small JSON API for the
// controller plus the static front-end, served through the offline asset
// cache.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ironsheep/image-scanner/internal/assetcache"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Options configures the router builder.
type Options struct {
	App         *scanner.App
	Proxy       *assetcache.Proxy
	Static      http.Handler
	CORSOrigins []string
	Logger      *slog.Logger
	Debug       bool
}

// Build constructs a gin engine with recovery, request logging and CORS, the
// /api routes, and the cached static front-end for everything else.
func Build(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(loggingMiddleware(logger))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader, assetcache.CacheHeader},
		MaxAge:        12 * time.Hour,
	}))

	h := &handlers{app: opts.App, logger: logger}
	engine.GET("/health", h.health)

	api := engine.Group("/api")
	api.GET("/state", h.state)
	api.POST("/upload", h.upload)
	api.POST("/camera", h.toggleCamera)
	api.POST("/camera/stop", h.stopCamera)
	api.POST("/clear", h.clear)
	api.GET("/canvas", h.canvas)

	static := opts.Static
	if static == nil {
		static = http.NotFoundHandler()
	}
	if opts.Proxy != nil {
		static = opts.Proxy.Middleware(static)
	}
	engine.NoRoute(func(c *gin.Context) {
		// gin presets 404 for unmatched routes; the wrapped handler decides.
		c.Status(http.StatusOK)
		static.ServeHTTP(c.Writer, c.Request)
	})

	return engine
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		}
		if cache := c.Writer.Header().Get(assetcache.CacheHeader); cache != "" {
			attrs = append(attrs, "cache", cache)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Debug("request", attrs...)
		}
	}
}
