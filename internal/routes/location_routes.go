package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func LocationRoutes(r *gin.Engine, lc *controllers.LocationController) {
	ingest := r.Group("/locations")
	ingest.Use(middleware.RequireAuthWithRole(middleware.RoleDriver))
	{
		ingest.POST("/", lc.IngestLocation)
	}

	read := r.Group("/vehicles/:id/location")
	read.Use(middleware.RequireAuthWithRole(middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleParent))
	{
		read.GET("", lc.CurrentLocation)
	}
}
