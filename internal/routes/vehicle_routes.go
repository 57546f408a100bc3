package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func VehicleRoutes(r *gin.Engine, vc *controllers.VehicleController) {
	vehicles := r.Group("/vehicles")
	vehicles.Use(middleware.RequireAuthWithRole(middleware.RoleStaff, middleware.RoleAdmin))
	{
		vehicles.GET("/", vc.ListVehicles)
		vehicles.GET("/:id", vc.GetVehicle)
		vehicles.PATCH("/:id/status", vc.UpdateVehicleStatus)
		vehicles.POST("/:id/assignment", vc.CreateAssignment)
		vehicles.GET("/:id/assignment", vc.GetActiveAssignment)
	}
}
