package models

import (
	"time"

	"gorm.io/gorm"
)

type RidershipEventType string

const (
	RidershipCheckIn  RidershipEventType = "check_in"
	RidershipCheckOut RidershipEventType = "check_out"
)

// RidershipStatus is the derived position of a student at a point in time.
type RidershipStatus string

const (
	StatusWaitingForPickup RidershipStatus = "waiting_for_pickup"
	StatusBusApproaching   RidershipStatus = "bus_approaching"
	StatusOnBusWaiting     RidershipStatus = "on_bus_waiting"
	StatusOnBusTraveling   RidershipStatus = "on_bus_traveling"
	StatusArrivedAtSchool  RidershipStatus = "arrived_at_school"
)

// RidershipEvent records one student check-in or check-out. EventDate is the
// UTC calendar date of Timestamp, denormalized so the daily-uniqueness
// constraint lives in the database: at most one row per
// (student, event_date, event_type).
type RidershipEvent struct {
	gorm.Model
	StudentID        uint               `json:"student_id" gorm:"uniqueIndex:idx_ridership_daily"`
	EventDate        string             `json:"event_date" gorm:"uniqueIndex:idx_ridership_daily;size:10"`
	EventType        RidershipEventType `json:"event_type" gorm:"uniqueIndex:idx_ridership_daily;size:16"`
	VehicleID        uint               `json:"vehicle_id" gorm:"index"`
	StopID           uint               `json:"stop_id"`
	RouteID          uint               `json:"route_id"`
	Timestamp        time.Time          `json:"timestamp"`
	ValidationMethod string             `json:"validation_method"` // "qr", "nfc", "manual"
	ValidationData   string             `json:"validation_data"`
}

// EventDateOf formats a timestamp as the UTC calendar date used for the
// daily-uniqueness key.
func EventDateOf(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
