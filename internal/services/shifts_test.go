package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

type shiftFixture struct {
	mem        *repository.Memory
	mgr        *ShiftManager
	vehicle    *models.Vehicle
	route      *models.Route
	assignment *models.RouteAssignment
}

func newShiftFixture(t *testing.T) *shiftFixture {
	t.Helper()
	mem, store := repository.NewMemory()

	vehicle := mem.AddVehicle(&models.Vehicle{Registration: "KDC 555T", Status: models.VehicleActive})
	route := mem.AddRoute(&models.Route{Name: "Afternoon South"})
	assignment := mem.AddAssignment(&models.RouteAssignment{
		VehicleID: vehicle.ID, RouteID: route.ID, DriverID: 7,
		Status: models.AssignmentActive,
	})

	mgr := NewShiftManager(store.Shifts, store.Assignments, store.Vehicles, store.Routes, nil)
	return &shiftFixture{mem: mem, mgr: mgr, vehicle: vehicle, route: route, assignment: assignment}
}

func startTelemetry() ShiftTelemetry {
	return ShiftTelemetry{
		Odometer:  120400,
		FuelLevel: 0.9,
		Checklist: map[string]bool{"brakes": true, "lights": true, "first_aid_kit": true},
	}
}

func TestStartRoute(t *testing.T) {
	f := newShiftFixture(t)

	log, err := f.mgr.StartRoute(context.Background(), 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)

	assert.Equal(t, models.ShiftInProgress, log.Status)
	assert.Equal(t, models.ShiftDateOf(time.Now().UTC()), log.ShiftDate)
	assert.Equal(t, 120400.0, log.StartOdometer)
	assert.Equal(t, models.AssignmentInProgress, f.mem.Assignment(f.assignment.ID).Status)
}

func TestStartRouteTwiceConflicts(t *testing.T) {
	f := newShiftFixture(t)

	_, err := f.mgr.StartRoute(context.Background(), 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)

	_, err = f.mgr.StartRoute(context.Background(), 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestStartRouteWithoutAssignment(t *testing.T) {
	f := newShiftFixture(t)

	// Driver 8 has no assignment on this vehicle/route.
	_, err := f.mgr.StartRoute(context.Background(), 8, f.vehicle.ID, f.route.ID, startTelemetry())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStartRouteUnknownVehicleOrRoute(t *testing.T) {
	f := newShiftFixture(t)

	_, err := f.mgr.StartRoute(context.Background(), 7, 999, f.route.ID, startTelemetry())
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.mgr.StartRoute(context.Background(), 7, f.vehicle.ID, 999, startTelemetry())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEndRoute(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	_, err := f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)

	log, err := f.mgr.EndRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432, FuelLevel: 0.7},
		EndShiftCounts{StudentsBoarded: 28, StudentsAlighted: 28})
	require.NoError(t, err)

	assert.Equal(t, models.ShiftCompleted, log.Status)
	assert.Equal(t, 120432.0, log.EndOdometer)
	assert.Equal(t, 28, log.StudentsBoarded)
	require.NotNil(t, log.EndedAt)

	// The assignment window is still open, so it goes back to active.
	assert.Equal(t, models.AssignmentActive, f.mem.Assignment(f.assignment.ID).Status)
}

func TestEndRouteCompletesLapsedAssignment(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()
	f.mem.Assignment(f.assignment.ID).EndDate = time.Now().UTC().Add(-time.Hour)

	_, err := f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)

	_, err = f.mgr.EndRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432, FuelLevel: 0.7}, EndShiftCounts{})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentCompleted, f.mem.Assignment(f.assignment.ID).Status)
}

func TestEndRouteWithoutStart(t *testing.T) {
	f := newShiftFixture(t)

	_, err := f.mgr.EndRoute(context.Background(), 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{}, EndShiftCounts{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestShiftCanRestartAfterCompletion(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	_, err := f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)
	_, err = f.mgr.EndRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432}, EndShiftCounts{})
	require.NoError(t, err)

	// A completed morning run does not block an afternoon start.
	_, err = f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432, FuelLevel: 0.7})
	assert.NoError(t, err)
}

func TestSameKeyCompletesTwiceInOneDay(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	// Morning run.
	_, err := f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID, startTelemetry())
	require.NoError(t, err)
	_, err = f.mgr.EndRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432}, EndShiftCounts{StudentsBoarded: 28, StudentsAlighted: 28})
	require.NoError(t, err)

	// Afternoon run on the same driver-vehicle-route-date key; ending it
	// must record a second completed log, not collide with the morning one.
	_, err = f.mgr.StartRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120432, FuelLevel: 0.7})
	require.NoError(t, err)

	log, err := f.mgr.EndRoute(ctx, 7, f.vehicle.ID, f.route.ID,
		ShiftTelemetry{Odometer: 120466, FuelLevel: 0.5},
		EndShiftCounts{StudentsBoarded: 30, StudentsAlighted: 30})
	require.NoError(t, err)

	assert.Equal(t, models.ShiftCompleted, log.Status)
	assert.Equal(t, 120466.0, log.EndOdometer)
	assert.Equal(t, models.AssignmentActive, f.mem.Assignment(f.assignment.ID).Status)
}
