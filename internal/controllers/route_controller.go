package controllers

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"school_fleet/internal/apperrors"
	geomath "school_fleet/internal/geo"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
	"school_fleet/internal/services"
)

// RouteController serves route CRUD, stop management, the optimizer endpoint
// and geofence boundary output.
type RouteController struct {
	routes      repository.Routes
	optimizer   *services.RouteOptimizer
	avgSpeedKmh float64

	// arrivalRadiusM is the default geofence radius drawn for stops.
	arrivalRadiusM float64
}

func NewRouteController(routes repository.Routes, optimizer *services.RouteOptimizer, avgSpeedKmh, arrivalRadiusM float64) *RouteController {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = services.DefaultAvgSpeedKmh
	}
	if arrivalRadiusM <= 0 {
		arrivalRadiusM = 100
	}
	return &RouteController{
		routes:         routes,
		optimizer:      optimizer,
		avgSpeedKmh:    avgSpeedKmh,
		arrivalRadiusM: arrivalRadiusM,
	}
}

// RouteResponse mirrors models.Route with Geometry rendered as a GeoJSON
// string for API output.
type RouteResponse struct {
	ID               uint           `json:"ID"`
	CreatedAt        time.Time      `json:"CreatedAt"`
	UpdatedAt        time.Time      `json:"UpdatedAt"`
	DeletedAt        gorm.DeletedAt `json:"DeletedAt,omitempty"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	SchoolID         uint           `json:"school_id"`
	TotalKm          float64        `json:"total_km"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	Geometry         string         `json:"geometry"`
	Stops            []models.Stop  `json:"stops"`
}

func toRouteResponse(route *models.Route) RouteResponse {
	jsonGeom, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:               route.ID,
		CreatedAt:        route.CreatedAt,
		UpdatedAt:        route.UpdatedAt,
		DeletedAt:        route.DeletedAt,
		Name:             route.Name,
		Description:      route.Description,
		SchoolID:         route.SchoolID,
		TotalKm:          route.TotalKm,
		EstimatedMinutes: route.EstimatedMinutes,
		Geometry:         jsonGeom,
		Stops:            route.Stops,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into WKB bytes for storage.
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts stored WKB bytes back into a GeoJSON string.
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type stopInput struct {
	Name string  `json:"name"`
	Seq  int     `json:"seq"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// validateStops checks names, coordinate ranges and that seq values form a
// contiguous 1..N sequence.
func validateStops(in []stopInput) ([]models.Stop, error) {
	seen := make(map[int]bool, len(in))
	stops := make([]models.Stop, 0, len(in))
	for _, s := range in {
		if s.Name == "" {
			return nil, apperrors.Validation("stop", "stop name is required")
		}
		if s.Lat < -90 || s.Lat > 90 || s.Lng < -180 || s.Lng > 180 {
			return nil, apperrors.Validation("stop", "stop %q has out-of-range coordinates", s.Name)
		}
		if s.Seq < 1 || s.Seq > len(in) || seen[s.Seq] {
			return nil, apperrors.Validation("stop",
				"stop sequence must be a contiguous 1..%d run, got duplicate or out-of-range seq %d", len(in), s.Seq)
		}
		seen[s.Seq] = true
		stops = append(stops, models.Stop{Name: s.Name, Seq: s.Seq, Lat: s.Lat, Lng: s.Lng})
	}
	return stops, nil
}

// CreateRoute creates a route with optional GeoJSON geometry and stops.
func (rc *RouteController) CreateRoute(c *gin.Context) {
	var input struct {
		Name        string      `json:"name" binding:"required"`
		Description string      `json:"description"`
		Geometry    string      `json:"geometry"`
		Stops       []stopInput `json:"stops"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	wkbGeom, err := parseAndConvertGeometry(input.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}
	stops, err := validateStops(input.Stops)
	if err != nil {
		fail(c, err)
		return
	}

	totalKm, minutes := services.RouteTotals(stops, rc.avgSpeedKmh)
	route := &models.Route{
		Name:             input.Name,
		Description:      input.Description,
		SchoolID:         schoolScope(c),
		Geometry:         wkbGeom,
		TotalKm:          totalKm,
		EstimatedMinutes: minutes,
		Stops:            stops,
	}
	if err := rc.routes.Create(c.Request.Context(), route); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

// ListRoutes returns the caller's routes with stops.
func (rc *RouteController) ListRoutes(c *gin.Context) {
	routes, err := rc.routes.List(c.Request.Context(), schoolScope(c))
	if err != nil {
		fail(c, err)
		return
	}

	responses := make([]RouteResponse, 0, len(routes))
	for i := range routes {
		responses = append(responses, toRouteResponse(&routes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"routes": responses})
}

// GetRoute returns a single route with its stops in seq order.
func (rc *RouteController) GetRoute(c *gin.Context) {
	route, err := rc.routes.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute updates name, description and/or geometry.
func (rc *RouteController) UpdateRoute(c *gin.Context) {
	route, err := rc.routes.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Geometry    *string `json:"geometry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.Geometry != nil {
		if *input.Geometry == "" {
			route.Geometry = nil
		} else {
			wkbGeom, err := parseAndConvertGeometry(*input.Geometry)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
				return
			}
			route.Geometry = wkbGeom
		}
	}

	if err := rc.routes.Update(c.Request.Context(), route); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// ReplaceStops swaps a route's stop set and refreshes its totals.
func (rc *RouteController) ReplaceStops(c *gin.Context) {
	routeID := idParam(c, "id")
	if _, err := rc.routes.ByID(c.Request.Context(), routeID); err != nil {
		fail(c, err)
		return
	}

	var input struct {
		Stops []stopInput `json:"stops" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stops, err := validateStops(input.Stops)
	if err != nil {
		fail(c, err)
		return
	}

	totalKm, minutes := services.RouteTotals(stops, rc.avgSpeedKmh)
	if err := rc.routes.ReplaceStops(c.Request.Context(), routeID, stops, totalKm, minutes); err != nil {
		fail(c, err)
		return
	}

	route, err := rc.routes.ByID(c.Request.Context(), routeID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// OptimizeRoute reorders the route's stops with the nearest-neighbor pass
// and persists the result.
func (rc *RouteController) OptimizeRoute(c *gin.Context) {
	res, err := rc.optimizer.Optimize(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// StopGeofence renders the stop's arrival geofence boundary as a GeoJSON
// polygon for map display.
func (rc *RouteController) StopGeofence(c *gin.Context) {
	route, err := rc.routes.ByID(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}

	stopID := idParam(c, "stop_id")
	var stop *models.Stop
	for i := range route.Stops {
		if route.Stops[i].ID == stopID {
			stop = &route.Stops[i]
			break
		}
	}
	if stop == nil {
		fail(c, apperrors.NotFound("stop", "stop %d not found on route %d", stopID, route.ID))
		return
	}

	radius := rc.arrivalRadiusM
	if v := c.Query("radius_m"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_m"})
			return
		}
		radius = r
	}

	ring := geomath.BoundaryRing(geomath.Point{Lat: stop.Lat, Lng: stop.Lng}, radius, 10)
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ring); err != nil {
		fail(c, err)
		return
	}
	b, err := gjson.Marshal(poly)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stop_id":  stop.ID,
		"radius_m": radius,
		"boundary": string(b),
	})
}

// DeleteRoute removes a route and its stops.
func (rc *RouteController) DeleteRoute(c *gin.Context) {
	id := idParam(c, "id")
	if _, err := rc.routes.ByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	if err := rc.routes.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}
