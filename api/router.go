// Package api exposes the application services over HTTP with gin
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dddkit/api/middleware"
	"dddkit/config"
)

// ControllerRegister is implemented by controllers that mount their routes on the API group
type ControllerRegister interface {
	RegisterRoutes(group *gin.RouterGroup)
}

// Router Route configuration
type Router struct {
	engine      *gin.Engine
	config      *config.Config
	controllers []ControllerRegister
}

// NewRouter builds the engine with the standard middleware chain
func NewRouter(cfg *config.Config, controllers ...ControllerRegister) *Router {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// order matters: the request id must exist before anything logs
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware())
	engine.Use(middleware.LoggingMiddleware())
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit))

	return &Router{
		engine:      engine,
		config:      cfg,
		controllers: controllers,
	}
}

// SetupRoutes mounts every controller under /api/v1
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	for _, c := range r.controllers {
		c.RegisterRoutes(apiGroup)
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
