package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/events"
	"school_fleet/internal/geo"
	"school_fleet/internal/metrics"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// Report is one inbound vehicle position report.
type Report struct {
	VehicleID     uint      `json:"vehicle_id"`
	RouteID       uint      `json:"route_id"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	SpeedKmh      float64   `json:"speed_kmh"`
	Heading       float64   `json:"heading"`
	CurrentStopID *uint     `json:"current_stop_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Ingestor accepts periodic vehicle position reports, maintains per-vehicle
// current state, computes ETA, and detects geofence stop arrivals.
// Different vehicles ingest in parallel; all processing for one vehicle id
// is serialized behind a per-vehicle lock so the latest sample and derived
// status stay consistent.
type Ingestor struct {
	locations   repository.Locations
	routes      repository.Routes
	assignments repository.Assignments
	vehicles    repository.Vehicles
	notifier    *events.Notifier
	hub         *events.MonitorHub
	metrics     *metrics.Collector

	arrivalRadiusM float64
	etaFloorKmh    float64
	staleAfter     time.Duration

	mu       sync.Mutex
	vehLocks map[uint]*sync.Mutex
}

// IngestorParams bundles the ingestor's dependencies and tunables.
type IngestorParams struct {
	Locations   repository.Locations
	Routes      repository.Routes
	Assignments repository.Assignments
	Vehicles    repository.Vehicles
	Notifier    *events.Notifier
	Hub         *events.MonitorHub
	Metrics     *metrics.Collector

	ArrivalRadiusMeters float64
	EtaFloorKmh         float64
	StaleAfter          time.Duration
}

func NewIngestor(p IngestorParams) *Ingestor {
	if p.ArrivalRadiusMeters <= 0 {
		p.ArrivalRadiusMeters = 100
	}
	if p.EtaFloorKmh <= 0 {
		// Floor the ETA divisor so a slow or stationary vehicle reports the
		// ETA it would have at nominal residential pace instead of blowing
		// up toward infinity.
		p.EtaFloorKmh = 20
	}
	if p.StaleAfter <= 0 {
		p.StaleAfter = 10 * time.Minute
	}
	return &Ingestor{
		locations:      p.Locations,
		routes:         p.Routes,
		assignments:    p.Assignments,
		vehicles:       p.Vehicles,
		notifier:       p.Notifier,
		hub:            p.Hub,
		metrics:        p.Metrics,
		arrivalRadiusM: p.ArrivalRadiusMeters,
		etaFloorKmh:    p.EtaFloorKmh,
		staleAfter:     p.StaleAfter,
		vehLocks:       make(map[uint]*sync.Mutex),
	}
}

func (ing *Ingestor) lockFor(vehicleID uint) *sync.Mutex {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	l, ok := ing.vehLocks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		ing.vehLocks[vehicleID] = l
	}
	return l
}

func validateReport(r Report) error {
	if r.VehicleID == 0 {
		return apperrors.Validation("location_sample", "vehicle_id is required")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return apperrors.Validation("location_sample", "latitude %v out of range [-90,90]", r.Lat)
	}
	if r.Lon < -180 || r.Lon > 180 {
		return apperrors.Validation("location_sample", "longitude %v out of range [-180,180]", r.Lon)
	}
	if r.SpeedKmh < 0 {
		return apperrors.Validation("location_sample", "speed %v must be >= 0", r.SpeedKmh)
	}
	return nil
}

// Ingest processes one report: validates it, classifies motion, runs stop
// arrival detection, computes the next stop and ETA, appends the sample and
// emits the location-updated (and possibly bus-arrived-at-stop) events.
func (ing *Ingestor) Ingest(ctx context.Context, r Report) (*models.LocationSample, error) {
	start := time.Now()

	if err := validateReport(r); err != nil {
		if ing.metrics != nil {
			ing.metrics.SamplesRejected.Inc()
		}
		return nil, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	l := ing.lockFor(r.VehicleID)
	l.Lock()
	defer l.Unlock()

	vehicle, err := ing.vehicles.ByID(ctx, r.VehicleID)
	if err != nil {
		return nil, err
	}

	sample := &models.LocationSample{
		VehicleID: r.VehicleID,
		RouteID:   r.RouteID,
		Latitude:  r.Lat,
		Longitude: r.Lon,
		SpeedKmh:  r.SpeedKmh,
		Heading:   r.Heading,
		Timestamp: r.Timestamp,
	}

	// Motion from speed alone; the geofence pass below may upgrade it.
	if r.SpeedKmh > 0 {
		sample.Status = models.MotionMoving
	} else {
		sample.Status = models.MotionStopped
	}

	route := ing.routeFor(ctx, &r)
	here := geo.Point{Lat: r.Lat, Lng: r.Lon}

	var arrivedStop *models.Stop
	if route != nil {
		// Scan in stop order and take the first geofence match; the stable
		// order avoids double-matching when stops sit close together.
		for i := range route.Stops {
			s := &route.Stops[i]
			if geo.WithinGeofence(here, stopPoint(*s), ing.arrivalRadiusM) {
				sample.Status = models.MotionAtStop
				id := s.ID
				sample.CurrentStopID = &id
				arrivedStop = s
				break
			}
		}
	}

	if sample.CurrentStopID == nil && r.CurrentStopID != nil {
		sample.CurrentStopID = r.CurrentStopID
	}

	if route != nil {
		ing.fillNextStopAndETA(sample, route, here)
	}

	if err := ing.locations.Append(ctx, sample); err != nil {
		return nil, err
	}

	if arrivedStop != nil {
		if ing.metrics != nil {
			ing.metrics.StopArrivals.Inc()
		}
		logrus.WithFields(logrus.Fields{
			"vehicle_id": r.VehicleID,
			"stop_id":    arrivedStop.ID,
			"stop_name":  arrivedStop.Name,
		}).Info("vehicle arrived at stop")
		ing.notifier.Emit(events.BusArrivedAtStop, map[string]interface{}{
			"vehicle_id": r.VehicleID,
			"route_id":   sample.RouteID,
			"stop_id":    arrivedStop.ID,
			"stop_name":  arrivedStop.Name,
			"timestamp":  sample.Timestamp,
		})
	}

	ing.notifier.Emit(events.LocationUpdated, sample)
	ing.hub.Broadcast(vehicle.SchoolID, sample)

	if ing.metrics != nil {
		ing.metrics.SamplesIngested.Inc()
	}
	ing.metrics.ObserveIngest(time.Since(start))
	return sample, nil
}

// routeFor resolves the route whose stops the report is scanned against:
// the reported route id, falling back to the vehicle's active assignment.
func (ing *Ingestor) routeFor(ctx context.Context, r *Report) *models.Route {
	routeID := r.RouteID
	if routeID == 0 {
		a, err := ing.assignments.ActiveByVehicle(ctx, r.VehicleID)
		if err != nil {
			return nil
		}
		routeID = a.RouteID
		r.RouteID = routeID
	}
	route, err := ing.routes.ByID(ctx, routeID)
	if err != nil {
		logrus.WithError(err).WithField("route_id", routeID).Warn("ingest: route lookup failed")
		return nil
	}
	return route
}

// fillNextStopAndETA computes the first stop ordered after the current one
// and the minutes to reach it at the report's speed, clamped to the floor.
func (ing *Ingestor) fillNextStopAndETA(sample *models.LocationSample, route *models.Route, here geo.Point) {
	currentSeq := 0
	if sample.CurrentStopID != nil {
		for _, s := range route.Stops {
			if s.ID == *sample.CurrentStopID {
				currentSeq = s.Seq
				break
			}
		}
	}

	for i := range route.Stops {
		s := &route.Stops[i]
		if s.Seq > currentSeq {
			id := s.ID
			sample.NextStopID = &id

			speed := math.Max(sample.SpeedKmh, ing.etaFloorKmh)
			eta := int(math.Round(geo.Distance(here, stopPoint(*s)) / speed * 60))
			sample.EtaMinutes = &eta
			return
		}
	}
}

// Current returns the vehicle's most recent sample. A sample older than the
// staleness window is reported as offline; the stored row is never
// rewritten.
func (ing *Ingestor) Current(ctx context.Context, vehicleID uint) (*models.LocationSample, error) {
	sample, err := ing.locations.LatestByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if time.Since(sample.Timestamp) > ing.staleAfter {
		sample.Status = models.MotionOffline
	}
	return sample, nil
}
