package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/geo"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// DefaultAvgSpeedKmh is the assumed fleet average used to turn route
// distance into an estimated duration.
const DefaultAvgSpeedKmh = 25.0

// minOptimizableStops is the smallest stop set the nearest-neighbor pass is
// defined for; below it there is nothing to reorder.
const minOptimizableStops = 3

// OptimizeResult reports the outcome of one optimization pass.
type OptimizeResult struct {
	OriginalKm  float64       `json:"original_km"`
	OptimizedKm float64       `json:"optimized_km"`
	SavedKm     float64       `json:"saved_km"`
	SavedPct    float64       `json:"saved_pct"`
	Minutes     int           `json:"estimated_minutes"`
	Stops       []models.Stop `json:"stops"` // new visiting order, Seq renumbered 1..N
}

func stopPoint(s models.Stop) geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// RouteTotals sums consecutive-stop great-circle distances for stops in the
// given order and derives the duration at avgSpeedKmh, rounded to whole
// minutes.
func RouteTotals(stops []models.Stop, avgSpeedKmh float64) (float64, int) {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAvgSpeedKmh
	}
	var km float64
	for i := 1; i < len(stops); i++ {
		km += geo.Distance(stopPoint(stops[i-1]), stopPoint(stops[i]))
	}
	return km, int(math.Round(km / avgSpeedKmh * 60))
}

// OptimizeStopOrder reorders stops with a nearest-neighbor pass: the first
// stop stays fixed; each step appends the unvisited stop closest to the last
// placed one, ties going to the lowest original index. Input must be in
// current seq order and is not mutated. The heuristic is not guaranteed
// optimal; when it produces a longer tour than the current ordering, the
// current ordering is kept and the pass reports zero savings.
func OptimizeStopOrder(stops []models.Stop, avgSpeedKmh float64) (*OptimizeResult, error) {
	if len(stops) < minOptimizableStops {
		return nil, apperrors.State("route",
			"optimization requires at least %d stops, got %d", minOptimizableStops, len(stops))
	}

	originalKm, originalMinutes := RouteTotals(stops, avgSpeedKmh)

	ordered := make([]models.Stop, 0, len(stops))
	visited := make([]bool, len(stops))

	ordered = append(ordered, stops[0])
	visited[0] = true

	for len(ordered) < len(stops) {
		last := stopPoint(ordered[len(ordered)-1])
		best := -1
		bestDist := math.MaxFloat64
		for i, s := range stops {
			if visited[i] {
				continue
			}
			if d := geo.Distance(last, stopPoint(s)); d < bestDist {
				best = i
				bestDist = d
			}
		}
		ordered = append(ordered, stops[best])
		visited[best] = true
	}

	for i := range ordered {
		ordered[i].Seq = i + 1
	}

	optimizedKm, minutes := RouteTotals(ordered, avgSpeedKmh)
	if optimizedKm > originalKm {
		// Greedy lost on this layout; never hand back a longer tour.
		ordered = make([]models.Stop, len(stops))
		copy(ordered, stops)
		for i := range ordered {
			ordered[i].Seq = i + 1
		}
		optimizedKm, minutes = originalKm, originalMinutes
	}

	res := &OptimizeResult{
		OriginalKm:  originalKm,
		OptimizedKm: optimizedKm,
		SavedKm:     originalKm - optimizedKm,
		Minutes:     minutes,
		Stops:       ordered,
	}
	if originalKm > 0 {
		res.SavedPct = res.SavedKm / originalKm * 100
	}
	return res, nil
}

// RouteOptimizer loads a route, runs the nearest-neighbor pass, and persists
// the new ordering and totals.
type RouteOptimizer struct {
	routes      repository.Routes
	avgSpeedKmh float64
}

func NewRouteOptimizer(routes repository.Routes, avgSpeedKmh float64) *RouteOptimizer {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAvgSpeedKmh
	}
	return &RouteOptimizer{routes: routes, avgSpeedKmh: avgSpeedKmh}
}

// Optimize reorders the route's stops and updates its totals atomically.
func (o *RouteOptimizer) Optimize(ctx context.Context, routeID uint) (*OptimizeResult, error) {
	route, err := o.routes.ByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	res, err := OptimizeStopOrder(route.Stops, o.avgSpeedKmh)
	if err != nil {
		return nil, err
	}

	seqByStopID := make(map[uint]int, len(res.Stops))
	for _, s := range res.Stops {
		seqByStopID[s.ID] = s.Seq
	}
	if err := o.routes.Reorder(ctx, routeID, seqByStopID, res.OptimizedKm, res.Minutes); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"route_id":     routeID,
		"original_km":  res.OriginalKm,
		"optimized_km": res.OptimizedKm,
		"saved_pct":    res.SavedPct,
	}).Info("route optimized")
	return res, nil
}

// RecalculateTotals refreshes a route's distance and duration from its
// current stop order. Runs after every stop add, removal, or relocation so
// the stored totals stay consistent.
func (o *RouteOptimizer) RecalculateTotals(ctx context.Context, routeID uint) error {
	route, err := o.routes.ByID(ctx, routeID)
	if err != nil {
		return err
	}
	km, minutes := RouteTotals(route.Stops, o.avgSpeedKmh)
	route.TotalKm = km
	route.EstimatedMinutes = minutes
	return o.routes.Update(ctx, route)
}
