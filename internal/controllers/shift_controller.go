package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/services"
)

// ShiftController serves the driver shift start/end endpoints.
type ShiftController struct {
	shifts *services.ShiftManager
}

func NewShiftController(shifts *services.ShiftManager) *ShiftController {
	return &ShiftController{shifts: shifts}
}

// StartShift opens today's shift for the driver's assignment.
func (sc *ShiftController) StartShift(c *gin.Context) {
	var input struct {
		DriverID  uint                    `json:"driver_id" binding:"required"`
		VehicleID uint                    `json:"vehicle_id" binding:"required"`
		RouteID   uint                    `json:"route_id" binding:"required"`
		Telemetry services.ShiftTelemetry `json:"telemetry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("StartShift: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log, err := sc.shifts.StartRoute(c.Request.Context(), input.DriverID, input.VehicleID, input.RouteID, input.Telemetry)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shift": log})
}

// EndShift closes today's in-progress shift with end telemetry and counts.
func (sc *ShiftController) EndShift(c *gin.Context) {
	var input struct {
		DriverID  uint                    `json:"driver_id" binding:"required"`
		VehicleID uint                    `json:"vehicle_id" binding:"required"`
		RouteID   uint                    `json:"route_id" binding:"required"`
		Telemetry services.ShiftTelemetry `json:"telemetry"`
		Counts    services.EndShiftCounts `json:"counts"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("EndShift: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log, err := sc.shifts.EndRoute(c.Request.Context(), input.DriverID, input.VehicleID, input.RouteID, input.Telemetry, input.Counts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shift": log})
}
