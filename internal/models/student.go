package models

import (
	"time"

	"gorm.io/gorm"
)

type Student struct {
	gorm.Model
	Name     string `json:"name"`
	Grade    string `json:"grade"`
	SchoolID uint   `json:"school_id" gorm:"index"`
	StopID   uint   `json:"stop_id"` // usual pickup stop
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription entitles a student to ride a route for a validity window.
// Check-in requires one in "active" status covering the event date.
type Subscription struct {
	gorm.Model
	StudentID uint               `json:"student_id" gorm:"index"`
	RouteID   uint               `json:"route_id"`
	Status    SubscriptionStatus `json:"status" gorm:"default:active"`
	ValidFrom time.Time          `json:"valid_from"`
	ValidTo   time.Time          `json:"valid_to"`
}

// Covers reports whether the subscription is usable at the given time.
func (s *Subscription) Covers(at time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if !s.ValidFrom.IsZero() && at.Before(s.ValidFrom) {
		return false
	}
	if !s.ValidTo.IsZero() && at.After(s.ValidTo) {
		return false
	}
	return true
}
