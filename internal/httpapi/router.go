package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendboard/internal/auth"
	"attendboard/internal/httpmiddleware"
)

// NewRouter wires every route on a fresh gin engine.
func NewRouter(h *Handler, limiter *httpmiddleware.TokenBucket) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	public := r.Group("/v1", limiter.Middleware())
	public.POST("/auth/token", h.adminToken)

	admin := r.Group("/v1", auth.Require(h.Signer, auth.RoleAdmin), limiter.Middleware())
	admin.POST("/devices/register", h.registerDevice)
	admin.GET("/students", h.listStudents)
	admin.POST("/students", h.createStudent)
	admin.GET("/students/:index", h.getStudent)
	admin.PUT("/students/:index", h.updateStudent)
	admin.DELETE("/students/:index", h.deleteStudent)
	admin.POST("/students/:index/attendance", h.markAttendance)
	admin.GET("/attendance", h.attendanceByDate)
	admin.GET("/dashboard", h.dashboardView)
	admin.POST("/dashboard/refresh", h.refreshDashboard)

	device := r.Group("/v1", auth.Require(h.Signer, auth.RoleDevice), limiter.Middleware())
	device.POST("/checkins", h.checkIn)

	return r
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
