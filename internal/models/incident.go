package models

import (
	"time"

	"gorm.io/gorm"
)

type IncidentType string

const (
	IncidentBreakdown  IncidentType = "breakdown"
	IncidentAccident   IncidentType = "accident"
	IncidentMedical    IncidentType = "medical"
	IncidentBehavioral IncidentType = "behavioral"
	IncidentOther      IncidentType = "other"
)

type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// rank orders severities for escalation checks.
func (s IncidentSeverity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether s is the same or a higher severity than other.
func (s IncidentSeverity) AtLeast(other IncidentSeverity) bool {
	return s.rank() >= other.rank()
}

type IncidentStatus string

const (
	IncidentReported      IncidentStatus = "reported"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

// Incident is a safety event tied to a vehicle and optionally a route.
// Lifecycle: reported -> investigating (on assignment) -> resolved (terminal).
// All transitions go through services.IncidentCoordinator.
type Incident struct {
	gorm.Model
	VehicleID          uint             `json:"vehicle_id" gorm:"index"`
	RouteID            *uint            `json:"route_id,omitempty"`
	Type               IncidentType     `json:"type"`
	Severity           IncidentSeverity `json:"severity" gorm:"index"`
	Status             IncidentStatus   `json:"status" gorm:"default:reported;index"`
	Description        string           `json:"description"`
	Latitude           float64          `json:"latitude"`
	Longitude          float64          `json:"longitude"`
	AffectedStudentIDs []byte           `json:"-" gorm:"type:jsonb"` // JSON array of student ids
	AssignedToID       *uint            `json:"assigned_to_id,omitempty"`
	ResolutionNotes    string           `json:"resolution_notes"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
}

// Terminal reports whether the incident reached its terminal state.
func (i *Incident) Terminal() bool {
	return i.Status == IncidentResolved
}
