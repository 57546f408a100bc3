package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
)

// Controllers bundles the handler set the router wires up.
type Controllers struct {
	Routes    *controllers.RouteController
	Vehicles  *controllers.VehicleController
	Locations *controllers.LocationController
	Ridership *controllers.RidershipController
	Incidents *controllers.IncidentController
	Shifts    *controllers.ShiftController
	WS        *controllers.WSController
}

func SetupRouter(cs Controllers) *gin.Engine {
	r := gin.New()
	r.Use(ginlog.SetLogger())
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	RouteRoutes(r, cs.Routes)
	VehicleRoutes(r, cs.Vehicles)
	LocationRoutes(r, cs.Locations)
	RidershipRoutes(r, cs.Ridership)
	IncidentRoutes(r, cs.Incidents)
	ShiftRoutes(r, cs.Shifts)
	WebSocketRoutes(r, cs.WS)

	return r
}
