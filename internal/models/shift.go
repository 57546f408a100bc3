package models

import (
	"time"

	"gorm.io/gorm"
)

type ShiftStatus string

const (
	ShiftInProgress ShiftStatus = "in_progress"
	ShiftCompleted  ShiftStatus = "completed"
)

// ShiftLog is one driver-vehicle-route-date working lifecycle. A partial
// unique index over (driver, vehicle, route, date) WHERE status =
// 'in_progress' (created in config.InitDB; gorm tags cannot express it)
// guarantees a single open shift per key; completed rows may accumulate,
// so the same key can run again later the same day.
type ShiftLog struct {
	gorm.Model
	DriverID  uint        `json:"driver_id" gorm:"index:idx_shift_key"`
	VehicleID uint        `json:"vehicle_id" gorm:"index:idx_shift_key"`
	RouteID   uint        `json:"route_id" gorm:"index:idx_shift_key"`
	ShiftDate string      `json:"shift_date" gorm:"index:idx_shift_key;size:10"`
	Status    ShiftStatus `json:"status" gorm:"size:16"`

	StartOdometer float64 `json:"start_odometer"`
	EndOdometer   float64 `json:"end_odometer"`
	StartFuel     float64 `json:"start_fuel"`
	EndFuel       float64 `json:"end_fuel"`
	Checklist     []byte  `json:"-" gorm:"type:jsonb"` // pre/post trip inspection items

	StudentsBoarded  int `json:"students_boarded"`
	StudentsAlighted int `json:"students_alighted"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ShiftDateOf formats a timestamp as the UTC calendar date used for the
// one-shift-per-day key.
func ShiftDateOf(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
