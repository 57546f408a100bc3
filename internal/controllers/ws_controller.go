package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/events"
	"school_fleet/internal/middleware"
	"school_fleet/internal/services"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// WSController owns the live tracking socket: drivers push position reports
// over it, monitors (dispatch screens, parent apps) receive the accepted
// samples for their school.
type WSController struct {
	ingestor *services.Ingestor
	hub      *events.MonitorHub
}

func NewWSController(ingestor *services.Ingestor, hub *events.MonitorHub) *WSController {
	return &WSController{ingestor: ingestor, hub: hub}
}

// authenticateWebSocket validates the JWT carried in the token query
// parameter and resolves the school the connection is scoped to.
func (wc *WSController) authenticateWebSocket(c *gin.Context) (*middleware.Claims, uint, error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		return nil, 0, errMissingToken
	}

	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		return nil, 0, err
	}

	schoolID := claims.SchoolID
	if v := c.Query("school_id"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, 0, errBadSchoolParam
		}
		schoolID = uint(parsed)
	}
	return claims, schoolID, nil
}

var (
	errMissingToken   = &wsAuthError{"missing authentication token"}
	errBadSchoolParam = &wsAuthError{"invalid 'school_id' query parameter"}
)

type wsAuthError struct{ msg string }

func (e *wsAuthError) Error() string { return e.msg }

// HandleTrackingWebSocket is the single websocket endpoint. Drivers stream
// position reports; every other role registers as a school monitor.
func (wc *WSController) HandleTrackingWebSocket(c *gin.Context) {
	claims, schoolID, err := wc.authenticateWebSocket(c)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket connection attempt rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	switch claims.Role {
	case middleware.RoleDriver:
		wc.handleDriverSocket(conn, claims.UserID)
	case middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleParent:
		wc.handleMonitorSocket(conn, schoolID)
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized role"))
	}
}

// handleDriverSocket reads position reports off the socket and runs them
// through the ingest pipeline, acking each one.
func (wc *WSController) handleDriverSocket(conn *websocket.Conn, userID uint) {
	logrus.WithField("user_id", userID).Info("driver tracking socket established")

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("user_id", userID).Info("driver socket closed")
			} else {
				logrus.WithError(err).WithField("user_id", userID).Error("error reading driver socket")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var report services.Report
		if err := json.Unmarshal(p, &report); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("malformed report on driver socket")
			conn.WriteJSON(gin.H{"error": "invalid report format"})
			continue
		}

		sample, err := wc.ingestor.Ingest(context.Background(), report)
		if err != nil {
			conn.WriteJSON(gin.H{"error": err.Error()})
			continue
		}
		conn.WriteJSON(gin.H{
			"status":      "accepted",
			"sequence_id": sample.ID,
			"motion":      sample.Status,
			"eta_minutes": sample.EtaMinutes,
		})
	}
}

// handleMonitorSocket registers the connection with the hub and holds it
// open until the client disconnects.
func (wc *WSController) handleMonitorSocket(conn *websocket.Conn, schoolID uint) {
	wc.hub.Register(schoolID, conn)
	defer wc.hub.Unregister(schoolID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("school_id", schoolID).Info("monitor socket closed")
			} else {
				logrus.WithError(err).WithField("school_id", schoolID).Error("error reading monitor socket")
			}
			return
		}
	}
}
