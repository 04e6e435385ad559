package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/api/middleware"
	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// defaultAllowedOrigins are the local dashboard dev servers.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, s *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), cors.New(buildCORSConfig(cfg)))
	router.Use(
		middleware.AccessLog("/api/v1/health/live", "/api/v1/health/ready"),
		middleware.ErrorHandler(),
	)

	v1 := router.Group("/api/v1")

	health := v1.Group("/health")
	health.GET("/live", s.GetLiveness)
	health.GET("/ready", s.GetReadiness)

	mixers := v1.Group("/mixers")
	mixers.GET("", s.ListMixers)
	mixers.GET("/available", s.ListAvailableMixers)
	mixers.GET("/:name/busy", s.GetMixerBusy)

	tickets := v1.Group("/tickets")
	tickets.POST("", s.CreateTicket)
	tickets.GET("", s.ListTickets)
	tickets.GET("/production", s.ListProductionTickets)
	tickets.GET("/lab", s.ListLabTickets)
	tickets.GET("/:id", s.GetTicket)
	tickets.POST("/:id/actions", s.ApplyTicketAction)
	tickets.GET("/:id/timeout", s.GetTicketTimeout)

	v1.GET("/archive", s.ListArchivedTickets)
	v1.GET("/stats", s.GetStats)
	v1.GET("/stats/dashboard", s.GetDashboard)
	v1.GET("/export/xlsx", s.ExportXLSX)

	admin := v1.Group("/admin")
	admin.POST("/clear", s.ClearActiveTickets)
	admin.POST("/backup", s.CreateBackup)
	admin.POST("/tickets/:id/close", s.ForceCloseTicket)

	level := gin.WrapH(logger.HTTPHandler())
	v1.GET("/log/level", level)
	v1.PUT("/log/level", level)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "route not found"})
	})
	return router
}

// buildCORSConfig derives the CORS policy. A wildcard origin is honoured only
// with UnsafeAllowAllOrigins, which also disables credentials.
func buildCORSConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	c.AllowOrigins = origins
	return c
}
