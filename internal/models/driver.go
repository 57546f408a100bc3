package models

import (
	"gorm.io/gorm"
)

// Driver is the fleet-side profile of a user with the driver role. Identity
// itself (credentials, sessions) lives in an external service; UserID is the
// link to it.
type Driver struct {
	gorm.Model
	UserID        uint   `json:"user_id" gorm:"uniqueIndex"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	SchoolID      uint   `json:"school_id" gorm:"index"`
	VehicleID     uint   `json:"vehicle_id" gorm:"index"`
}
