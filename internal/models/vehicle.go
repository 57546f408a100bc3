package models

import (
	"gorm.io/gorm"
)

// VehicleStatus is the operational state of a fleet vehicle. Only active
// vehicles run routes; the remaining states are set by fleet administration.
type VehicleStatus string

const (
	VehicleActive       VehicleStatus = "active"
	VehicleMaintenance  VehicleStatus = "maintenance"
	VehicleOutOfService VehicleStatus = "out_of_service"
	VehicleRetired      VehicleStatus = "retired"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleMaintenance, VehicleOutOfService, VehicleRetired:
		return true
	}
	return false
}

type Vehicle struct {
	gorm.Model
	Registration     string        `json:"registration" gorm:"uniqueIndex;not null"`
	Capacity         int           `json:"capacity"`
	CurrentOccupancy int           `json:"current_occupancy"`
	Status           VehicleStatus `json:"status" gorm:"default:active;index"`
	SchoolID         uint          `json:"school_id" gorm:"index"`
	RouteID          uint          `json:"route_id"`
}
