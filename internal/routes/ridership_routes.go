package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func RidershipRoutes(r *gin.Engine, rc *controllers.RidershipController) {
	ridership := r.Group("/ridership")
	ridership.Use(middleware.RequireAuthWithRole(middleware.RoleDriver, middleware.RoleStaff))
	{
		ridership.POST("/check-in", rc.CheckIn)
		ridership.POST("/check-out", rc.CheckOut)
	}

	students := r.Group("/students")
	students.Use(middleware.RequireAuthWithRole(middleware.RoleParent, middleware.RoleStaff, middleware.RoleAdmin))
	{
		students.GET("/:id/status", rc.StudentStatus)
	}
}
