package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
	"school_fleet/internal/middleware"
)

func IncidentRoutes(r *gin.Engine, ic *controllers.IncidentController) {
	incidents := r.Group("/incidents")
	incidents.Use(middleware.RequireAuthWithRole(middleware.RoleDriver, middleware.RoleStaff, middleware.RoleAdmin))
	{
		incidents.POST("/", ic.ReportIncident)
		incidents.GET("/:id", ic.GetIncident)
	}

	manage := r.Group("/incidents/:id")
	manage.Use(middleware.RequireAuthWithRole(middleware.RoleStaff, middleware.RoleAdmin))
	{
		manage.POST("/assign", ic.AssignIncident)
		manage.POST("/escalate", ic.EscalateIncident)
		manage.POST("/resolve", ic.ResolveIncident)
	}
}
