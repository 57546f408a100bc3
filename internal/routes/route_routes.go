package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func RouteRoutes(r *gin.Engine, rc *controllers.RouteController) {
	routes := r.Group("/routes")
	routes.Use(middleware.RequireAuthWithRole(middleware.RoleStaff, middleware.RoleAdmin))
	{
		routes.POST("/", rc.CreateRoute)
		routes.GET("/", rc.ListRoutes)
		routes.GET("/:id", rc.GetRoute)
		routes.PATCH("/:id", rc.UpdateRoute)
		routes.PUT("/:id/stops", rc.ReplaceStops)
		routes.POST("/:id/optimize", rc.OptimizeRoute)
		routes.GET("/:id/stops/:stop_id/geofence", rc.StopGeofence)
		routes.DELETE("/:id", rc.DeleteRoute)
	}
}
