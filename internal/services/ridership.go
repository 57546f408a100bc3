package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/events"
	"school_fleet/internal/metrics"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// RideRequest is one inbound check-in or check-out.
type RideRequest struct {
	StudentID        uint      `json:"student_id"`
	VehicleID        uint      `json:"vehicle_id"`
	StopID           uint      `json:"stop_id"`
	RouteID          uint      `json:"route_id"`
	Timestamp        time.Time `json:"timestamp"`
	ValidationMethod string    `json:"validation_method"`
	ValidationData   string    `json:"validation_data"`
}

// RidershipTracker records and validates student check-in/check-out events.
// The daily-uniqueness rule is enforced by the storage layer through
// insert-if-absent; the tracker only interprets the outcome.
type RidershipTracker struct {
	ridership     repository.Ridership
	subscriptions repository.Subscriptions
	vehicles      repository.Vehicles
	locations     repository.Locations
	notifier      *events.Notifier
	metrics       *metrics.Collector
}

func NewRidershipTracker(
	ridership repository.Ridership,
	subscriptions repository.Subscriptions,
	vehicles repository.Vehicles,
	locations repository.Locations,
	notifier *events.Notifier,
	m *metrics.Collector,
) *RidershipTracker {
	return &RidershipTracker{
		ridership:     ridership,
		subscriptions: subscriptions,
		vehicles:      vehicles,
		locations:     locations,
		notifier:      notifier,
		metrics:       m,
	}
}

func (t *RidershipTracker) validate(r RideRequest) error {
	if r.StudentID == 0 {
		return apperrors.Validation("ridership_event", "student_id is required")
	}
	if r.VehicleID == 0 {
		return apperrors.Validation("ridership_event", "vehicle_id is required")
	}
	return nil
}

// CheckIn records a boarding. Requires an active subscription; at most one
// check-in per student per calendar date.
func (t *RidershipTracker) CheckIn(ctx context.Context, r RideRequest) (*models.RidershipEvent, error) {
	if err := t.validate(r); err != nil {
		return nil, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	sub, err := t.subscriptions.ByStudent(ctx, r.StudentID)
	if err != nil {
		return nil, err
	}
	if !sub.Covers(r.Timestamp) {
		return nil, apperrors.State("subscription",
			"subscription for student %d is not active", r.StudentID)
	}

	vehicle, err := t.vehicles.ByID(ctx, r.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Capacity > 0 && vehicle.CurrentOccupancy >= vehicle.Capacity {
		return nil, apperrors.Capacity("vehicle",
			"vehicle %d is at capacity (%d)", vehicle.ID, vehicle.Capacity)
	}

	ev := &models.RidershipEvent{
		StudentID:        r.StudentID,
		EventDate:        models.EventDateOf(r.Timestamp),
		EventType:        models.RidershipCheckIn,
		VehicleID:        r.VehicleID,
		StopID:           r.StopID,
		RouteID:          r.RouteID,
		Timestamp:        r.Timestamp,
		ValidationMethod: r.ValidationMethod,
		ValidationData:   r.ValidationData,
	}
	inserted, err := t.ridership.InsertIfAbsent(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, apperrors.Conflict("ridership_event",
			"student %d already checked in on %s", r.StudentID, ev.EventDate)
	}

	// Occupancy is a best-effort gauge outside the event insert; the
	// ridership ledger is authoritative and can rebuild it on drift.
	vehicle.CurrentOccupancy++
	if err := t.vehicles.Update(ctx, vehicle); err != nil {
		logrus.WithError(err).WithField("vehicle_id", vehicle.ID).
			Warn("check-in recorded but occupancy update failed")
	}

	if t.metrics != nil {
		t.metrics.CheckIns.Inc()
	}
	t.notifier.Emit(events.StudentCheckedIn, ev)
	return ev, nil
}

// CheckOut records an alighting. Requires a check-in on the same calendar
// date; at most one check-out per student per date.
func (t *RidershipTracker) CheckOut(ctx context.Context, r RideRequest) (*models.RidershipEvent, error) {
	if err := t.validate(r); err != nil {
		return nil, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	date := models.EventDateOf(r.Timestamp)

	if _, err := t.ridership.Find(ctx, r.StudentID, date, models.RidershipCheckIn); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.State("ridership_event",
				"student %d has no check-in on %s to check out from", r.StudentID, date)
		}
		return nil, err
	}

	ev := &models.RidershipEvent{
		StudentID:        r.StudentID,
		EventDate:        date,
		EventType:        models.RidershipCheckOut,
		VehicleID:        r.VehicleID,
		StopID:           r.StopID,
		RouteID:          r.RouteID,
		Timestamp:        r.Timestamp,
		ValidationMethod: r.ValidationMethod,
		ValidationData:   r.ValidationData,
	}
	inserted, err := t.ridership.InsertIfAbsent(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, apperrors.Conflict("ridership_event",
			"student %d already checked out on %s", r.StudentID, date)
	}

	// Best-effort, same as check-in: the ledger stays the source of truth.
	if vehicle, err := t.vehicles.ByID(ctx, r.VehicleID); err == nil && vehicle.CurrentOccupancy > 0 {
		vehicle.CurrentOccupancy--
		if err := t.vehicles.Update(ctx, vehicle); err != nil {
			logrus.WithError(err).WithField("vehicle_id", vehicle.ID).
				Warn("check-out recorded but occupancy update failed")
		}
	}

	if t.metrics != nil {
		t.metrics.CheckOuts.Inc()
	}
	t.notifier.Emit(events.StudentCheckedOut, ev)
	return ev, nil
}

// Status derives where a student is at the given time:
// checked out -> arrived_at_school; checked in -> on the bus, traveling or
// waiting by the vehicle's motion; otherwise bus_approaching when the route
// vehicle is reporting positions, else waiting_for_pickup.
func (t *RidershipTracker) Status(ctx context.Context, studentID uint, at time.Time) (models.RidershipStatus, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	date := models.EventDateOf(at)

	if _, err := t.ridership.Find(ctx, studentID, date, models.RidershipCheckOut); err == nil {
		return models.StatusArrivedAtSchool, nil
	} else if !apperrors.IsNotFound(err) {
		return "", err
	}

	checkIn, err := t.ridership.Find(ctx, studentID, date, models.RidershipCheckIn)
	if err == nil {
		latest, lerr := t.locations.LatestByVehicle(ctx, checkIn.VehicleID)
		if lerr == nil && latest.Status == models.MotionMoving {
			return models.StatusOnBusTraveling, nil
		}
		return models.StatusOnBusWaiting, nil
	}
	if !apperrors.IsNotFound(err) {
		return "", err
	}

	// Not on board yet: report the bus as approaching once its vehicle has
	// any position on record.
	if sub, serr := t.subscriptions.ByStudent(ctx, studentID); serr == nil {
		vehicles, verr := t.vehicles.List(ctx, 0)
		if verr == nil {
			for _, v := range vehicles {
				if v.RouteID != sub.RouteID {
					continue
				}
				if _, lerr := t.locations.LatestByVehicle(ctx, v.ID); lerr == nil {
					return models.StatusBusApproaching, nil
				}
			}
		}
	}

	return models.StatusWaitingForPickup, nil
}
