package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// VehicleController serves fleet vehicle reads, status administration and
// route assignment.
type VehicleController struct {
	vehicles    repository.Vehicles
	assignments repository.Assignments
}

func NewVehicleController(vehicles repository.Vehicles, assignments repository.Assignments) *VehicleController {
	return &VehicleController{vehicles: vehicles, assignments: assignments}
}

// ListVehicles returns the caller's fleet.
func (vc *VehicleController) ListVehicles(c *gin.Context) {
	vehicles, err := vc.vehicles.List(c.Request.Context(), schoolScope(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// GetVehicle returns one vehicle.
func (vc *VehicleController) GetVehicle(c *gin.Context) {
	vehicle, err := vc.vehicles.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// UpdateVehicleStatus moves a vehicle between operational states.
func (vc *VehicleController) UpdateVehicleStatus(c *gin.Context) {
	vehicle, err := vc.vehicles.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}

	var input struct {
		Status models.VehicleStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateVehicleStatus: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Status.Valid() {
		fail(c, apperrors.Validation("vehicle", "invalid status %q", input.Status))
		return
	}

	vehicle.Status = input.Status
	if err := vc.vehicles.Update(c.Request.Context(), vehicle); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// CreateAssignment binds a driver and route to the vehicle. The partial
// unique index in storage rejects a second active assignment per vehicle.
func (vc *VehicleController) CreateAssignment(c *gin.Context) {
	vehicle, err := vc.vehicles.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}

	var input struct {
		DriverID  uint      `json:"driver_id" binding:"required"`
		RouteID   uint      `json:"route_id" binding:"required"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateAssignment: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment := &models.RouteAssignment{
		VehicleID: vehicle.ID,
		RouteID:   input.RouteID,
		DriverID:  input.DriverID,
		Status:    models.AssignmentActive,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	if err := vc.assignments.Create(c.Request.Context(), assignment); err != nil {
		fail(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"vehicle_id": vehicle.ID,
		"driver_id":  input.DriverID,
		"route_id":   input.RouteID,
	}).Info("route assignment created")
	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

// GetActiveAssignment returns the vehicle's current assignment.
func (vc *VehicleController) GetActiveAssignment(c *gin.Context) {
	assignment, err := vc.assignments.ActiveByVehicle(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": assignment})
}
