// Package repository is the narrow persistence boundary for the fleet core.
// Domain services operate on plain records and go through these interfaces
// for every read and write; uniqueness-sensitive writes use the
// insert-if-absent primitives so the storage layer, not application logic,
// is the final arbiter of the daily-uniqueness invariants.
package repository

import (
	"context"

	"school_fleet/internal/models"
)

type Vehicles interface {
	ByID(ctx context.Context, id uint) (*models.Vehicle, error)
	Update(ctx context.Context, v *models.Vehicle) error
	List(ctx context.Context, schoolID uint) ([]models.Vehicle, error)
}

type Routes interface {
	// ByID returns the route with stops preloaded in seq order.
	ByID(ctx context.Context, id uint) (*models.Route, error)
	List(ctx context.Context, schoolID uint) ([]models.Route, error)
	Create(ctx context.Context, r *models.Route) error
	Update(ctx context.Context, r *models.Route) error
	// ReplaceStops swaps the route's stop set and totals in one transaction.
	ReplaceStops(ctx context.Context, routeID uint, stops []models.Stop, totalKm float64, minutes int) error
	// Reorder persists a new seq per stop id plus recomputed totals, atomically.
	Reorder(ctx context.Context, routeID uint, seqByStopID map[uint]int, totalKm float64, minutes int) error
	Delete(ctx context.Context, id uint) error
}

type Assignments interface {
	// ActiveByVehicle returns the vehicle's single active or in-progress assignment.
	ActiveByVehicle(ctx context.Context, vehicleID uint) (*models.RouteAssignment, error)
	// ForShift returns the current assignment binding this driver, vehicle and route.
	ForShift(ctx context.Context, driverID, vehicleID, routeID uint) (*models.RouteAssignment, error)
	Create(ctx context.Context, a *models.RouteAssignment) error
}

type Locations interface {
	// Append writes one immutable sample to the log.
	Append(ctx context.Context, s *models.LocationSample) error
	// LatestByVehicle returns the most recent sample for the vehicle.
	LatestByVehicle(ctx context.Context, vehicleID uint) (*models.LocationSample, error)
}

type Subscriptions interface {
	ByStudent(ctx context.Context, studentID uint) (*models.Subscription, error)
}

type Ridership interface {
	// InsertIfAbsent writes the event unless one already exists for its
	// (student, event_date, event_type) key; reports whether it was written.
	InsertIfAbsent(ctx context.Context, ev *models.RidershipEvent) (bool, error)
	Find(ctx context.Context, studentID uint, date string, typ models.RidershipEventType) (*models.RidershipEvent, error)
}

type Incidents interface {
	Create(ctx context.Context, in *models.Incident) error
	ByID(ctx context.Context, id uint) (*models.Incident, error)
	Update(ctx context.Context, in *models.Incident) error
	CountOpen(ctx context.Context) (int64, error)
}

type Shifts interface {
	// Start inserts the in-progress log unless one exists for its
	// (driver, vehicle, route, date) key, and flips the assignment to
	// in_progress — one transaction, full success or full rollback.
	// Reports whether the log was written.
	Start(ctx context.Context, log *models.ShiftLog, assignmentID uint) (bool, error)
	InProgress(ctx context.Context, driverID, vehicleID, routeID uint, date string) (*models.ShiftLog, error)
	// Complete persists the finished log and the assignment's new status in
	// one transaction.
	Complete(ctx context.Context, log *models.ShiftLog, assignmentID uint, status models.AssignmentStatus) error
}

// Store bundles the per-aggregate interfaces for wiring.
type Store struct {
	Vehicles      Vehicles
	Routes        Routes
	Assignments   Assignments
	Locations     Locations
	Subscriptions Subscriptions
	Ridership     Ridership
	Incidents     Incidents
	Shifts        Shifts
}
