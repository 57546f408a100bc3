package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentStatus is the lifecycle state of a vehicle/route/driver binding.
// At most one assignment per vehicle is "active" at any time (partial unique
// index, created in config.InitDB). "in_progress" means a shift is currently
// running on the assignment.
type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

type RouteAssignment struct {
	gorm.Model
	VehicleID uint             `json:"vehicle_id" gorm:"index"`
	RouteID   uint             `json:"route_id" gorm:"index"`
	DriverID  uint             `json:"driver_id" gorm:"index"`
	Status    AssignmentStatus `json:"status" gorm:"default:active;index"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`

	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"-"`
	Route   Route   `gorm:"foreignKey:RouteID" json:"-"`
}

// WindowLapsed reports whether the assignment's validity window has passed.
func (a *RouteAssignment) WindowLapsed(at time.Time) bool {
	return !a.EndDate.IsZero() && at.After(a.EndDate)
}
