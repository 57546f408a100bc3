package models

import (
	"gorm.io/gorm"
)

// Route is an ordered sequence of stops a vehicle traverses during one shift.
// Stop order is a contiguous 1..N sequence with no gaps or duplicates, and
// TotalKm equals the sum of consecutive-stop great-circle distances; both are
// maintained by the optimizer whenever stops change.
type Route struct {
	gorm.Model

	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	SchoolID         uint   `json:"school_id" gorm:"index"`
	TotalKm          float64 `json:"total_km"`
	EstimatedMinutes int     `json:"estimated_minutes"`

	// Geometry stored in PostGIS as a LINESTRING (SRID 4326), WKB encoded.
	// The API speaks GeoJSON; conversion happens at the controller boundary.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	Stops    []Stop    `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stops,omitempty"`
	Vehicles []Vehicle `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"vehicles,omitempty"`
}

// Stop is a pickup/dropoff point along a route. Seq is the 1-based position
// within the route.
type Stop struct {
	gorm.Model

	Name    string  `json:"name" binding:"required"`
	Seq     int     `json:"seq" binding:"required"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RouteID uint    `json:"route_id" gorm:"index"`
}
