package models

import (
	"time"

	"gorm.io/gorm"
)

// VehicleMotion is the derived movement state of a vehicle at a sample.
// "offline" is never written; readers report it when the latest sample is
// stale (see services.Ingestor.Current).
type VehicleMotion string

const (
	MotionOffline VehicleMotion = "offline"
	MotionMoving  VehicleMotion = "moving"
	MotionStopped VehicleMotion = "stopped"
	MotionAtStop  VehicleMotion = "at_stop"
)

// LocationSample is one GPS report from a vehicle. Samples are append-only;
// the "current" state of a vehicle is its most recent sample.
type LocationSample struct {
	gorm.Model
	VehicleID     uint          `json:"vehicle_id" gorm:"index:idx_samples_vehicle_ts"`
	RouteID       uint          `json:"route_id" gorm:"index"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	SpeedKmh      float64       `json:"speed_kmh"`
	Heading       float64       `json:"heading"`
	Status        VehicleMotion `json:"status"`
	CurrentStopID *uint         `json:"current_stop_id,omitempty"`
	NextStopID    *uint         `json:"next_stop_id,omitempty"`
	EtaMinutes    *int          `json:"eta_minutes,omitempty"`
	Timestamp     time.Time     `json:"timestamp" gorm:"index:idx_samples_vehicle_ts,sort:desc"`
}
