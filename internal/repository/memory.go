package repository

import (
	"context"
	"sort"
	"sync"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/models"
)

// Memory is an in-memory Store. Domain rules run against plain records, so
// service tests use this implementation instead of a live database. All
// methods share one mutex; the insert-if-absent primitives are atomic under
// it, mirroring the database uniqueness constraints.
type Memory struct {
	mu sync.Mutex

	nextID        uint
	vehicles      map[uint]*models.Vehicle
	routes        map[uint]*models.Route
	assignments   map[uint]*models.RouteAssignment
	samples       []*models.LocationSample
	subscriptions map[uint]*models.Subscription // by student id
	ridership     []*models.RidershipEvent
	incidents     map[uint]*models.Incident
	shifts        []*models.ShiftLog
}

// NewMemory returns an empty in-memory store bundle.
func NewMemory() (*Memory, *Store) {
	m := &Memory{
		nextID:        1,
		vehicles:      make(map[uint]*models.Vehicle),
		routes:        make(map[uint]*models.Route),
		assignments:   make(map[uint]*models.RouteAssignment),
		subscriptions: make(map[uint]*models.Subscription),
		incidents:     make(map[uint]*models.Incident),
	}
	s := &Store{
		Vehicles:      (*memVehicles)(m),
		Routes:        (*memRoutes)(m),
		Assignments:   (*memAssignments)(m),
		Locations:     (*memLocations)(m),
		Subscriptions: (*memSubscriptions)(m),
		Ridership:     (*memRidership)(m),
		Incidents:     (*memIncidents)(m),
		Shifts:        (*memShifts)(m),
	}
	return m, s
}

func (m *Memory) id() uint {
	id := m.nextID
	m.nextID++
	return id
}

// Seed helpers for tests.

func (m *Memory) AddVehicle(v *models.Vehicle) *models.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.id()
	}
	m.vehicles[v.ID] = v
	return v
}

func (m *Memory) AddRoute(r *models.Route) *models.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	for i := range r.Stops {
		if r.Stops[i].ID == 0 {
			r.Stops[i].ID = m.id()
		}
		r.Stops[i].RouteID = r.ID
	}
	m.routes[r.ID] = r
	return r
}

func (m *Memory) AddAssignment(a *models.RouteAssignment) *models.RouteAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	}
	m.assignments[a.ID] = a
	return a
}

func (m *Memory) AddSubscription(s *models.Subscription) *models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	m.subscriptions[s.StudentID] = s
	return s
}

// Assignment returns a seeded assignment by id, for asserting status flips.
func (m *Memory) Assignment(id uint) *models.RouteAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[id]
}

// Samples returns the append-only sample log.
func (m *Memory) Samples() []*models.LocationSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LocationSample, len(m.samples))
	copy(out, m.samples)
	return out
}

// ---- vehicles ----

type memVehicles Memory

func (m *memVehicles) ByID(_ context.Context, id uint) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, apperrors.NotFound("vehicle", "vehicle %d not found", id)
	}
	cp := *v
	return &cp, nil
}

func (m *memVehicles) Update(_ context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[v.ID]; !ok {
		return apperrors.NotFound("vehicle", "vehicle %d not found", v.ID)
	}
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *memVehicles) List(_ context.Context, schoolID uint) ([]models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vehicle
	for _, v := range m.vehicles {
		if schoolID == 0 || v.SchoolID == schoolID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- routes ----

type memRoutes Memory

func (m *memRoutes) ByID(_ context.Context, id uint) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, apperrors.NotFound("route", "route %d not found", id)
	}
	cp := *r
	cp.Stops = append([]models.Stop(nil), r.Stops...)
	sort.Slice(cp.Stops, func(i, j int) bool { return cp.Stops[i].Seq < cp.Stops[j].Seq })
	return &cp, nil
}

func (m *memRoutes) List(_ context.Context, schoolID uint) ([]models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Route
	for _, r := range m.routes {
		if schoolID == 0 || r.SchoolID == schoolID {
			cp := *r
			cp.Stops = append([]models.Stop(nil), r.Stops...)
			sort.Slice(cp.Stops, func(i, j int) bool { return cp.Stops[i].Seq < cp.Stops[j].Seq })
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRoutes) Create(_ context.Context, r *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = (*Memory)(m).id()
	}
	for i := range r.Stops {
		if r.Stops[i].ID == 0 {
			r.Stops[i].ID = (*Memory)(m).id()
		}
		r.Stops[i].RouteID = r.ID
	}
	cp := *r
	m.routes[r.ID] = &cp
	return nil
}

func (m *memRoutes) Update(_ context.Context, r *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[r.ID]; !ok {
		return apperrors.NotFound("route", "route %d not found", r.ID)
	}
	cp := *r
	m.routes[r.ID] = &cp
	return nil
}

func (m *memRoutes) ReplaceStops(_ context.Context, routeID uint, stops []models.Stop, totalKm float64, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok {
		return apperrors.NotFound("route", "route %d not found", routeID)
	}
	r.Stops = nil
	for _, st := range stops {
		st.ID = (*Memory)(m).id()
		st.RouteID = routeID
		r.Stops = append(r.Stops, st)
	}
	r.TotalKm = totalKm
	r.EstimatedMinutes = minutes
	return nil
}

func (m *memRoutes) Reorder(_ context.Context, routeID uint, seqByStopID map[uint]int, totalKm float64, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok {
		return apperrors.NotFound("route", "route %d not found", routeID)
	}
	for i := range r.Stops {
		if seq, ok := seqByStopID[r.Stops[i].ID]; ok {
			r.Stops[i].Seq = seq
		}
	}
	r.TotalKm = totalKm
	r.EstimatedMinutes = minutes
	return nil
}

func (m *memRoutes) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, id)
	return nil
}

// ---- assignments ----

type memAssignments Memory

func (m *memAssignments) ActiveByVehicle(_ context.Context, vehicleID uint) (*models.RouteAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.VehicleID == vehicleID &&
			(a.Status == models.AssignmentActive || a.Status == models.AssignmentInProgress) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("route_assignment", "no active assignment for vehicle %d", vehicleID)
}

func (m *memAssignments) ForShift(_ context.Context, driverID, vehicleID, routeID uint) (*models.RouteAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.DriverID == driverID && a.VehicleID == vehicleID && a.RouteID == routeID &&
			(a.Status == models.AssignmentActive || a.Status == models.AssignmentInProgress) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("route_assignment",
		"no current assignment for driver %d, vehicle %d, route %d", driverID, vehicleID, routeID)
}

func (m *memAssignments) Create(_ context.Context, a *models.RouteAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.assignments {
		if other.VehicleID == a.VehicleID && other.Status == models.AssignmentActive &&
			a.Status == models.AssignmentActive {
			return apperrors.Conflict("route_assignment", "vehicle %d already has an active assignment", a.VehicleID)
		}
	}
	if a.ID == 0 {
		a.ID = (*Memory)(m).id()
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

// ---- locations ----

type memLocations Memory

func (m *memLocations) Append(_ context.Context, s *models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = (*Memory)(m).id()
	}
	cp := *s
	m.samples = append(m.samples, &cp)
	return nil
}

func (m *memLocations) LatestByVehicle(_ context.Context, vehicleID uint) (*models.LocationSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.LocationSample
	for _, s := range m.samples {
		if s.VehicleID != vehicleID {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("location_sample", "no samples for vehicle %d", vehicleID)
	}
	cp := *latest
	return &cp, nil
}

// ---- subscriptions ----

type memSubscriptions Memory

func (m *memSubscriptions) ByStudent(_ context.Context, studentID uint) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[studentID]
	if !ok {
		return nil, apperrors.NotFound("subscription", "no subscription for student %d", studentID)
	}
	cp := *sub
	return &cp, nil
}

// ---- ridership ----

type memRidership Memory

func (m *memRidership) InsertIfAbsent(_ context.Context, ev *models.RidershipEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.ridership {
		if e.StudentID == ev.StudentID && e.EventDate == ev.EventDate && e.EventType == ev.EventType {
			return false, nil
		}
	}
	if ev.ID == 0 {
		ev.ID = (*Memory)(m).id()
	}
	cp := *ev
	m.ridership = append(m.ridership, &cp)
	return true, nil
}

func (m *memRidership) Find(_ context.Context, studentID uint, date string, typ models.RidershipEventType) (*models.RidershipEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.ridership {
		if e.StudentID == studentID && e.EventDate == date && e.EventType == typ {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("ridership_event", "no %s for student %d on %s", typ, studentID, date)
}

// ---- incidents ----

type memIncidents Memory

func (m *memIncidents) Create(_ context.Context, in *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ID == 0 {
		in.ID = (*Memory)(m).id()
	}
	cp := *in
	m.incidents[in.ID] = &cp
	return nil
}

func (m *memIncidents) ByID(_ context.Context, id uint) (*models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.incidents[id]
	if !ok {
		return nil, apperrors.NotFound("incident", "incident %d not found", id)
	}
	cp := *in
	return &cp, nil
}

func (m *memIncidents) Update(_ context.Context, in *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[in.ID]; !ok {
		return apperrors.NotFound("incident", "incident %d not found", in.ID)
	}
	cp := *in
	m.incidents[in.ID] = &cp
	return nil
}

func (m *memIncidents) CountOpen(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, in := range m.incidents {
		if in.Status != models.IncidentResolved {
			n++
		}
	}
	return n, nil
}

// ---- shifts ----

type memShifts Memory

func (m *memShifts) Start(_ context.Context, log *models.ShiftLog, assignmentID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shifts {
		if s.DriverID == log.DriverID && s.VehicleID == log.VehicleID &&
			s.RouteID == log.RouteID && s.ShiftDate == log.ShiftDate &&
			s.Status == models.ShiftInProgress {
			return false, nil
		}
	}
	if log.ID == 0 {
		log.ID = (*Memory)(m).id()
	}
	cp := *log
	m.shifts = append(m.shifts, &cp)
	if a, ok := m.assignments[assignmentID]; ok {
		a.Status = models.AssignmentInProgress
	}
	return true, nil
}

func (m *memShifts) InProgress(_ context.Context, driverID, vehicleID, routeID uint, date string) (*models.ShiftLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shifts {
		if s.DriverID == driverID && s.VehicleID == vehicleID && s.RouteID == routeID &&
			s.ShiftDate == date && s.Status == models.ShiftInProgress {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("shift_log",
		"no in-progress shift for driver %d, vehicle %d, route %d on %s", driverID, vehicleID, routeID, date)
}

func (m *memShifts) Complete(_ context.Context, log *models.ShiftLog, assignmentID uint, status models.AssignmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.shifts {
		if s.ID == log.ID {
			cp := *log
			m.shifts[i] = &cp
			if a, ok := m.assignments[assignmentID]; ok {
				a.Status = status
			}
			return nil
		}
	}
	return apperrors.NotFound("shift_log", "shift %d not found", log.ID)
}
