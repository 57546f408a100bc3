package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/metrics"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// ShiftTelemetry is the odometer/fuel/checklist snapshot a driver submits
// when starting or ending a route.
type ShiftTelemetry struct {
	Odometer  float64         `json:"odometer"`
	FuelLevel float64         `json:"fuel_level"`
	Checklist map[string]bool `json:"checklist"`
}

// EndShiftCounts are the ridership totals reported at shift end.
type EndShiftCounts struct {
	StudentsBoarded  int `json:"students_boarded"`
	StudentsAlighted int `json:"students_alighted"`
}

// ShiftManager governs the start/end lifecycle of a driver's daily route
// shift. The single-in-progress-shift invariant is enforced by the storage
// layer's conditional insert, not by the pre-check here.
type ShiftManager struct {
	shifts      repository.Shifts
	assignments repository.Assignments
	vehicles    repository.Vehicles
	routes      repository.Routes
	metrics     *metrics.Collector
}

func NewShiftManager(
	shifts repository.Shifts,
	assignments repository.Assignments,
	vehicles repository.Vehicles,
	routes repository.Routes,
	m *metrics.Collector,
) *ShiftManager {
	return &ShiftManager{
		shifts:      shifts,
		assignments: assignments,
		vehicles:    vehicles,
		routes:      routes,
		metrics:     m,
	}
}

// StartRoute opens today's shift for (driver, vehicle, route) and marks the
// backing assignment in progress — one transaction, no partial state.
func (m *ShiftManager) StartRoute(ctx context.Context, driverID, vehicleID, routeID uint, tel ShiftTelemetry) (*models.ShiftLog, error) {
	if _, err := m.vehicles.ByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	if _, err := m.routes.ByID(ctx, routeID); err != nil {
		return nil, err
	}
	assignment, err := m.assignments.ForShift(ctx, driverID, vehicleID, routeID)
	if err != nil {
		return nil, err
	}

	checklist, err := json.Marshal(tel.Checklist)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	log := &models.ShiftLog{
		DriverID:      driverID,
		VehicleID:     vehicleID,
		RouteID:       routeID,
		ShiftDate:     models.ShiftDateOf(now),
		Status:        models.ShiftInProgress,
		StartOdometer: tel.Odometer,
		StartFuel:     tel.FuelLevel,
		Checklist:     checklist,
		StartedAt:     now,
	}

	inserted, err := m.shifts.Start(ctx, log, assignment.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, apperrors.Conflict("shift_log",
			"shift already in progress for driver %d, vehicle %d, route %d on %s",
			driverID, vehicleID, routeID, log.ShiftDate)
	}

	if m.metrics != nil {
		m.metrics.ActiveShifts.Inc()
	}
	logrus.WithFields(logrus.Fields{
		"driver_id":  driverID,
		"vehicle_id": vehicleID,
		"route_id":   routeID,
	}).Info("shift started")
	return log, nil
}

// EndRoute closes today's in-progress shift, records end telemetry and
// counts, and returns the assignment to active — or completed when its
// validity window has lapsed. One transaction, no partial state.
func (m *ShiftManager) EndRoute(ctx context.Context, driverID, vehicleID, routeID uint, tel ShiftTelemetry, counts EndShiftCounts) (*models.ShiftLog, error) {
	now := time.Now().UTC()
	log, err := m.shifts.InProgress(ctx, driverID, vehicleID, routeID, models.ShiftDateOf(now))
	if err != nil {
		return nil, err
	}

	assignment, err := m.assignments.ForShift(ctx, driverID, vehicleID, routeID)
	if err != nil {
		return nil, err
	}
	next := models.AssignmentActive
	if assignment.WindowLapsed(now) {
		next = models.AssignmentCompleted
	}

	log.Status = models.ShiftCompleted
	log.EndOdometer = tel.Odometer
	log.EndFuel = tel.FuelLevel
	log.StudentsBoarded = counts.StudentsBoarded
	log.StudentsAlighted = counts.StudentsAlighted
	log.EndedAt = &now

	if err := m.shifts.Complete(ctx, log, assignment.ID, next); err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.ActiveShifts.Dec()
	}
	logrus.WithFields(logrus.Fields{
		"driver_id":  driverID,
		"vehicle_id": vehicleID,
		"route_id":   routeID,
		"km":         log.EndOdometer - log.StartOdometer,
	}).Info("shift completed")
	return log, nil
}
