package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/services"
)

// RidershipController serves student check-in/check-out and status lookups.
type RidershipController struct {
	tracker *services.RidershipTracker
}

func NewRidershipController(tracker *services.RidershipTracker) *RidershipController {
	return &RidershipController{tracker: tracker}
}

// CheckIn records a student boarding.
func (rc *RidershipController) CheckIn(c *gin.Context) {
	var req services.RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("CheckIn: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := rc.tracker.CheckIn(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": ev})
}

// CheckOut records a student alighting.
func (rc *RidershipController) CheckOut(c *gin.Context) {
	var req services.RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("CheckOut: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := rc.tracker.CheckOut(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": ev})
}

// StudentStatus reports where a student is right now.
func (rc *RidershipController) StudentStatus(c *gin.Context) {
	studentID := idParam(c, "id")
	status, err := rc.tracker.Status(c.Request.Context(), studentID, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": studentID, "status": status})
}
