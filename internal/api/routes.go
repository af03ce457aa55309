package api

import (
	"github.com/gin-gonic/gin"

	"friendfinder/internal/api/handlers"
	"friendfinder/internal/api/middleware"
)

type Router struct {
	locationHandler *handlers.LocationHandler
	apiToken        string
}

func NewRouter(locationHandler *handlers.LocationHandler, apiToken string) *Router {
	return &Router{
		locationHandler: locationHandler,
		apiToken:        apiToken,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Protected routes
	api := engine.Group("/")
	api.Use(middleware.RequireToken(r.apiToken))
	{
		locations := api.Group("/locations")
		{
			locations.POST("", r.locationHandler.UpsertLocation)
			locations.GET("/nearby", r.locationHandler.FindNearby)
			locations.GET("/:entityId", r.locationHandler.GetLocation)
			locations.DELETE("/:entityId", r.locationHandler.DeleteLocation)
			locations.POST("/:entityId/move", r.locationHandler.MoveLocation)
		}
	}
}
