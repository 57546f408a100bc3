package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/events"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

type ingestFixture struct {
	mem      *repository.Memory
	store    *repository.Store
	ing      *Ingestor
	notifier *events.Notifier
	pub      *memPublisher
	vehicle  *models.Vehicle
	route    *models.Route
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	mem, store := repository.NewMemory()

	vehicle := mem.AddVehicle(&models.Vehicle{Registration: "KDA 123X", Capacity: 33, Status: models.VehicleActive, SchoolID: 1})
	route := mem.AddRoute(&models.Route{
		Name: "Morning West",
		Stops: []models.Stop{
			{Name: "A", Seq: 1, Lat: 0, Lng: 0},
			{Name: "B", Seq: 2, Lat: 0.01, Lng: 0},
			{Name: "C", Seq: 3, Lat: 0.01, Lng: 0.02},
		},
	})
	mem.AddAssignment(&models.RouteAssignment{
		VehicleID: vehicle.ID, RouteID: route.ID, DriverID: 7,
		Status: models.AssignmentActive,
	})

	notifier, pub := newTestNotifier()
	ing := NewIngestor(IngestorParams{
		Locations:   store.Locations,
		Routes:      store.Routes,
		Assignments: store.Assignments,
		Vehicles:    store.Vehicles,
		Notifier:    notifier,
	})
	return &ingestFixture{mem: mem, store: store, ing: ing, notifier: notifier, pub: pub, vehicle: vehicle, route: route}
}

func (f *ingestFixture) stopID(name string) uint {
	for _, s := range f.route.Stops {
		if s.Name == name {
			return s.ID
		}
	}
	return 0
}

func TestIngestRejectsOutOfRangeInput(t *testing.T) {
	f := newIngestFixture(t)
	cases := []Report{
		{VehicleID: f.vehicle.ID, Lat: 91, Lon: 0},
		{VehicleID: f.vehicle.ID, Lat: -90.5, Lon: 0},
		{VehicleID: f.vehicle.ID, Lat: 0, Lon: 181},
		{VehicleID: f.vehicle.ID, Lat: 0, Lon: -180.2},
		{VehicleID: f.vehicle.ID, Lat: 0, Lon: 0, SpeedKmh: -1},
		{VehicleID: 0, Lat: 0, Lon: 0},
	}
	for _, r := range cases {
		_, err := f.ing.Ingest(context.Background(), r)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Empty(t, f.mem.Samples())
}

func TestIngestClassifiesMotionBySpeed(t *testing.T) {
	f := newIngestFixture(t)

	// Far from every stop so only speed decides.
	moving, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0.5, Lon: 0.5, SpeedKmh: 35,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MotionMoving, moving.Status)

	stopped, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0.5, Lon: 0.5, SpeedKmh: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MotionStopped, stopped.Status)
}

func TestIngestDetectsStopArrival(t *testing.T) {
	f := newIngestFixture(t)

	// ~55 m north of stop B: inside the 100 m geofence even while moving.
	sample, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID,
		Lat: 0.0105, Lon: 0, SpeedKmh: 12,
	})
	require.NoError(t, err)
	f.notifier.Flush()

	assert.Equal(t, models.MotionAtStop, sample.Status)
	require.NotNil(t, sample.CurrentStopID)
	assert.Equal(t, f.stopID("B"), *sample.CurrentStopID)
	assert.Equal(t, 1, f.pub.count(events.BusArrivedAtStop))
	assert.Equal(t, 1, f.pub.count(events.LocationUpdated))

	// Next stop after B is C.
	require.NotNil(t, sample.NextStopID)
	assert.Equal(t, f.stopID("C"), *sample.NextStopID)
}

func TestIngestFirstGeofenceMatchWins(t *testing.T) {
	f := newIngestFixture(t)

	// Exactly at stop A; A and B are ~1.1 km apart so only A matches, and
	// the in-order scan must pick it even if later stops were closer ties.
	sample, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0, Lon: 0, SpeedKmh: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, sample.CurrentStopID)
	assert.Equal(t, f.stopID("A"), *sample.CurrentStopID)
}

func TestIngestComputesETAWithSpeedFloor(t *testing.T) {
	f := newIngestFixture(t)

	// At stop A, crawling at 5 km/h. Next stop B is ~1.11 km out; the ETA
	// divisor is floored at 20 km/h: round(1.11/20*60) = 3.
	slow, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0, Lon: 0, SpeedKmh: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, slow.EtaMinutes)
	assert.Equal(t, 3, *slow.EtaMinutes)

	// At 30 km/h the real speed is used: round(1.11/30*60) = 2.
	fast, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0, Lon: 0, SpeedKmh: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, fast.EtaMinutes)
	assert.Equal(t, 2, *fast.EtaMinutes)
}

func TestIngestOutsideAllGeofences(t *testing.T) {
	f := newIngestFixture(t)

	sample, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0.005, Lon: 0.01, SpeedKmh: 22,
	})
	require.NoError(t, err)
	f.notifier.Flush()

	assert.Equal(t, models.MotionMoving, sample.Status)
	assert.Nil(t, sample.CurrentStopID)
	assert.Zero(t, f.pub.count(events.BusArrivedAtStop))

	// With no current stop the next stop is the route's first.
	require.NotNil(t, sample.NextStopID)
	assert.Equal(t, f.stopID("A"), *sample.NextStopID)
}

func TestIngestResolvesRouteFromAssignment(t *testing.T) {
	f := newIngestFixture(t)

	sample, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, Lat: 0, Lon: 0, SpeedKmh: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, f.route.ID, sample.RouteID)
	require.NotNil(t, sample.CurrentStopID)
	assert.Equal(t, f.stopID("A"), *sample.CurrentStopID)
}

func TestIngestUnknownVehicle(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.ing.Ingest(context.Background(), Report{VehicleID: 999, Lat: 0, Lon: 0})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCurrentAppliesStalenessRule(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID,
		Lat: 0.5, Lon: 0.5, SpeedKmh: 40,
		Timestamp: time.Now().Add(-20 * time.Minute),
	})
	require.NoError(t, err)

	cur, err := f.ing.Current(context.Background(), f.vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MotionOffline, cur.Status)

	// The stored sample keeps its original status.
	assert.Equal(t, models.MotionMoving, f.mem.Samples()[0].Status)
}

func TestCurrentFreshSampleKeepsStatus(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.ing.Ingest(context.Background(), Report{
		VehicleID: f.vehicle.ID, RouteID: f.route.ID, Lat: 0.5, Lon: 0.5, SpeedKmh: 40,
	})
	require.NoError(t, err)

	cur, err := f.ing.Current(context.Background(), f.vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MotionMoving, cur.Status)
}

func TestCurrentNoSamples(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.ing.Current(context.Background(), f.vehicle.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestIngestConcurrentVehicles(t *testing.T) {
	mem, store := repository.NewMemory()
	notifier, _ := newTestNotifier()
	ing := NewIngestor(IngestorParams{
		Locations:   store.Locations,
		Routes:      store.Routes,
		Assignments: store.Assignments,
		Vehicles:    store.Vehicles,
		Notifier:    notifier,
	})

	const vehicles = 8
	const samples = 25
	for i := 1; i <= vehicles; i++ {
		mem.AddVehicle(&models.Vehicle{Registration: string(rune('A' + i)), Status: models.VehicleActive})
	}

	var wg sync.WaitGroup
	for v := 1; v <= vehicles; v++ {
		wg.Add(1)
		go func(vehicleID uint) {
			defer wg.Done()
			for s := 0; s < samples; s++ {
				_, err := ing.Ingest(context.Background(), Report{
					VehicleID: vehicleID, Lat: 0.1, Lon: 0.1, SpeedKmh: float64(s),
					Timestamp: time.Now().Add(time.Duration(s) * time.Second),
				})
				assert.NoError(t, err)
			}
		}(uint(v))
	}
	wg.Wait()
	notifier.Flush()

	assert.Len(t, mem.Samples(), vehicles*samples)
}
