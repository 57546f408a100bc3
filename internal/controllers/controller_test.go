package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_fleet/internal/models"
	"school_fleet/internal/repository"
	"school_fleet/internal/services"
)

func testRouter(t *testing.T) (*gin.Engine, *repository.Memory, *repository.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem, store := repository.NewMemory()

	optimizer := services.NewRouteOptimizer(store.Routes, services.DefaultAvgSpeedKmh)
	tracker := services.NewRidershipTracker(store.Ridership, store.Subscriptions, store.Vehicles, store.Locations, nil, nil)
	coordinator := services.NewIncidentCoordinator(store.Incidents, nil, nil, 1)
	ingestor := services.NewIngestor(services.IngestorParams{
		Locations:   store.Locations,
		Routes:      store.Routes,
		Assignments: store.Assignments,
		Vehicles:    store.Vehicles,
	})

	rc := NewRouteController(store.Routes, optimizer, services.DefaultAvgSpeedKmh, 100)
	lc := NewLocationController(ingestor)
	ridership := NewRidershipController(tracker)
	ic := NewIncidentController(coordinator)

	// Handlers mounted without auth middleware; the guards are orthogonal to
	// what these tests exercise.
	r := gin.New()
	r.POST("/routes", rc.CreateRoute)
	r.GET("/routes/:id", rc.GetRoute)
	r.PUT("/routes/:id/stops", rc.ReplaceStops)
	r.POST("/routes/:id/optimize", rc.OptimizeRoute)
	r.GET("/routes/:id/stops/:stop_id/geofence", rc.StopGeofence)
	r.POST("/locations", lc.IngestLocation)
	r.GET("/vehicles/:id/location", lc.CurrentLocation)
	r.POST("/ridership/check-in", ridership.CheckIn)
	r.POST("/incidents", ic.ReportIncident)
	r.POST("/incidents/:id/resolve", ic.ResolveIncident)
	return r, mem, store
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRouteEndpoint(t *testing.T) {
	r, _, store := testRouter(t)

	w := do(t, r, http.MethodPost, "/routes", gin.H{
		"name": "Morning West",
		"stops": []gin.H{
			{"name": "A", "seq": 1, "lat": 0.0, "lng": 0.0},
			{"name": "B", "seq": 2, "lat": 0.01, "lng": 0.0},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Route RouteResponse `json:"route"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 1.11, resp.Route.TotalKm, 0.01)
	assert.Len(t, resp.Route.Stops, 2)

	stored, err := store.Routes.ByID(nil, resp.Route.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning West", stored.Name)
}

func TestCreateRouteRejectsBrokenSequence(t *testing.T) {
	r, _, _ := testRouter(t)

	w := do(t, r, http.MethodPost, "/routes", gin.H{
		"name": "Broken",
		"stops": []gin.H{
			{"name": "A", "seq": 1, "lat": 0.0, "lng": 0.0},
			{"name": "B", "seq": 3, "lat": 0.01, "lng": 0.0},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRouteNotFoundMapsTo404(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/routes/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptimizeTooFewStopsMapsTo422(t *testing.T) {
	r, mem, _ := testRouter(t)
	route := mem.AddRoute(&models.Route{
		Name: "Short",
		Stops: []models.Stop{
			{Name: "A", Seq: 1},
			{Name: "B", Seq: 2, Lat: 0.01},
		},
	})

	w := do(t, r, http.MethodPost, fmt.Sprintf("/routes/%d/optimize", route.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestIngestValidationMapsTo400(t *testing.T) {
	r, mem, _ := testRouter(t)
	v := mem.AddVehicle(&models.Vehicle{Registration: "KDD 001A", Status: models.VehicleActive})

	w := do(t, r, http.MethodPost, "/locations", gin.H{
		"vehicle_id": v.ID, "lat": 95.0, "lon": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentLocationForUnknownVehicle(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/vehicles/42/location", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateCheckInMapsTo409(t *testing.T) {
	r, mem, _ := testRouter(t)
	route := mem.AddRoute(&models.Route{Name: "East"})
	v := mem.AddVehicle(&models.Vehicle{Registration: "KDD 002B", Capacity: 10, Status: models.VehicleActive, RouteID: route.ID})
	mem.AddSubscription(&models.Subscription{StudentID: 5, RouteID: route.ID, Status: models.SubscriptionActive})

	body := gin.H{"student_id": 5, "vehicle_id": v.ID, "route_id": route.ID}
	w := do(t, r, http.MethodPost, "/ridership/check-in", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/ridership/check-in", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResolveWithoutNotesMapsTo400(t *testing.T) {
	r, _, store := testRouter(t)
	coordinator := services.NewIncidentCoordinator(store.Incidents, nil, nil, 1)
	in, err := coordinator.Create(nil, services.IncidentReport{
		VehicleID: 1, Type: models.IncidentOther, Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, fmt.Sprintf("/incidents/%d/resolve", in.ID), gin.H{"notes": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopGeofenceBoundary(t *testing.T) {
	r, mem, _ := testRouter(t)
	route := mem.AddRoute(&models.Route{
		Name: "Geo",
		Stops: []models.Stop{
			{Name: "A", Seq: 1, Lat: -1.29, Lng: 36.82},
			{Name: "B", Seq: 2, Lat: -1.30, Lng: 36.83},
			{Name: "C", Seq: 3, Lat: -1.31, Lng: 36.84},
		},
	})
	stopID := route.Stops[0].ID

	w := do(t, r, http.MethodGet,
		fmt.Sprintf("/routes/%d/stops/%d/geofence?radius_m=150", route.ID, stopID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		StopID   uint    `json:"stop_id"`
		RadiusM  float64 `json:"radius_m"`
		Boundary string  `json:"boundary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stopID, resp.StopID)
	assert.Equal(t, 150.0, resp.RadiusM)
	assert.Contains(t, resp.Boundary, "Polygon")
}
