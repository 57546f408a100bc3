package routes

import (
	"github.com/gin-gonic/gin"

	"school_fleet/internal/controllers"
)

// WebSocketRoutes registers the tracking socket. Authentication happens in
// the handler itself via the token query parameter.
func WebSocketRoutes(r *gin.Engine, wc *controllers.WSController) {
	r.GET("/ws/tracking", wc.HandleTrackingWebSocket)
}
