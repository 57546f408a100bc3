package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func ShiftRoutes(r *gin.Engine, sc *controllers.ShiftController) {
	shifts := r.Group("/shifts")
	shifts.Use(middleware.RequireAuthWithRole(middleware.RoleDriver))
	{
		shifts.POST("/start", sc.StartShift)
		shifts.POST("/end", sc.EndShift)
	}
}
