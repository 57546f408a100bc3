package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/models"
)

// NewStore builds the persistence boundary over a gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Vehicles:      &vehicleStore{db},
		Routes:        &routeStore{db},
		Assignments:   &assignmentStore{db},
		Locations:     &locationStore{db},
		Subscriptions: &subscriptionStore{db},
		Ridership:     &ridershipStore{db},
		Incidents:     &incidentStore{db},
		Shifts:        &shiftStore{db},
	}
}

func notFound(err error, entity, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity, format, args...)
	}
	return err
}

// ---- vehicles ----

type vehicleStore struct{ db *gorm.DB }

func (s *vehicleStore) ByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err, "vehicle", "vehicle %d not found", id)
	}
	return &v, nil
}

func (s *vehicleStore) Update(ctx context.Context, v *models.Vehicle) error {
	return s.db.WithContext(ctx).Save(v).Error
}

func (s *vehicleStore) List(ctx context.Context, schoolID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	q := s.db.WithContext(ctx)
	if schoolID != 0 {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ---- routes ----

type routeStore struct{ db *gorm.DB }

func (s *routeStore) ByID(ctx context.Context, id uint) (*models.Route, error) {
	var r models.Route
	err := s.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&r, id).Error
	if err != nil {
		return nil, notFound(err, "route", "route %d not found", id)
	}
	return &r, nil
}

func (s *routeStore) List(ctx context.Context, schoolID uint) ([]models.Route, error) {
	var routes []models.Route
	q := s.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
	if schoolID != 0 {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

func (s *routeStore) Create(ctx context.Context, r *models.Route) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *routeStore) Update(ctx context.Context, r *models.Route) error {
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *routeStore) ReplaceStops(ctx context.Context, routeID uint, stops []models.Stop, totalKm float64, minutes int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", routeID).Delete(&models.Stop{}).Error; err != nil {
			return err
		}
		for i := range stops {
			stops[i].ID = 0
			stops[i].RouteID = routeID
		}
		if len(stops) > 0 {
			if err := tx.Create(&stops).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Route{}).Where("id = ?", routeID).
			Updates(map[string]interface{}{"total_km": totalKm, "estimated_minutes": minutes}).Error
	})
}

func (s *routeStore) Reorder(ctx context.Context, routeID uint, seqByStopID map[uint]int, totalKm float64, minutes int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Two passes: park every seq below zero first so per-route seq
		// uniqueness never trips mid-update.
		for stopID, seq := range seqByStopID {
			if err := tx.Model(&models.Stop{}).
				Where("id = ? AND route_id = ?", stopID, routeID).
				Update("seq", -seq).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Stop{}).
			Where("route_id = ? AND seq < 0", routeID).
			Update("seq", gorm.Expr("-seq")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Route{}).Where("id = ?", routeID).
			Updates(map[string]interface{}{"total_km": totalKm, "estimated_minutes": minutes}).Error
	})
}

func (s *routeStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&models.Stop{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Route{}, id).Error
	})
}

// ---- assignments ----

type assignmentStore struct{ db *gorm.DB }

func (s *assignmentStore) ActiveByVehicle(ctx context.Context, vehicleID uint) (*models.RouteAssignment, error) {
	var a models.RouteAssignment
	err := s.db.WithContext(ctx).
		Where("vehicle_id = ? AND status IN ?", vehicleID,
			[]models.AssignmentStatus{models.AssignmentActive, models.AssignmentInProgress}).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "route_assignment", "no active assignment for vehicle %d", vehicleID)
	}
	return &a, nil
}

func (s *assignmentStore) ForShift(ctx context.Context, driverID, vehicleID, routeID uint) (*models.RouteAssignment, error) {
	var a models.RouteAssignment
	err := s.db.WithContext(ctx).
		Where("driver_id = ? AND vehicle_id = ? AND route_id = ? AND status IN ?",
			driverID, vehicleID, routeID,
			[]models.AssignmentStatus{models.AssignmentActive, models.AssignmentInProgress}).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "route_assignment",
			"no current assignment for driver %d, vehicle %d, route %d", driverID, vehicleID, routeID)
	}
	return &a, nil
}

func (s *assignmentStore) Create(ctx context.Context, a *models.RouteAssignment) error {
	err := s.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict("route_assignment", "vehicle %d already has an active assignment", a.VehicleID)
	}
	return err
}

// ---- locations ----

type locationStore struct{ db *gorm.DB }

func (s *locationStore) Append(ctx context.Context, sample *models.LocationSample) error {
	return s.db.WithContext(ctx).Create(sample).Error
}

func (s *locationStore) LatestByVehicle(ctx context.Context, vehicleID uint) (*models.LocationSample, error) {
	var sample models.LocationSample
	err := s.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("timestamp DESC").
		First(&sample).Error
	if err != nil {
		return nil, notFound(err, "location_sample", "no samples for vehicle %d", vehicleID)
	}
	return &sample, nil
}

// ---- subscriptions ----

type subscriptionStore struct{ db *gorm.DB }

func (s *subscriptionStore) ByStudent(ctx context.Context, studentID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("valid_to DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, "subscription", "no subscription for student %d", studentID)
	}
	return &sub, nil
}

// ---- ridership ----

type ridershipStore struct{ db *gorm.DB }

func (s *ridershipStore) InsertIfAbsent(ctx context.Context, ev *models.RidershipEvent) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *ridershipStore) Find(ctx context.Context, studentID uint, date string, typ models.RidershipEventType) (*models.RidershipEvent, error) {
	var ev models.RidershipEvent
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND event_date = ? AND event_type = ?", studentID, date, typ).
		First(&ev).Error
	if err != nil {
		return nil, notFound(err, "ridership_event", "no %s for student %d on %s", typ, studentID, date)
	}
	return &ev, nil
}

// ---- incidents ----

type incidentStore struct{ db *gorm.DB }

func (s *incidentStore) Create(ctx context.Context, in *models.Incident) error {
	return s.db.WithContext(ctx).Create(in).Error
}

func (s *incidentStore) ByID(ctx context.Context, id uint) (*models.Incident, error) {
	var in models.Incident
	if err := s.db.WithContext(ctx).First(&in, id).Error; err != nil {
		return nil, notFound(err, "incident", "incident %d not found", id)
	}
	return &in, nil
}

func (s *incidentStore) Update(ctx context.Context, in *models.Incident) error {
	return s.db.WithContext(ctx).Save(in).Error
}

func (s *incidentStore) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Incident{}).
		Where("status <> ?", models.IncidentResolved).
		Count(&n).Error
	return n, err
}

// ---- shifts ----

type shiftStore struct{ db *gorm.DB }

func (s *shiftStore) Start(ctx context.Context, log *models.ShiftLog, assignmentID uint) (bool, error) {
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(log)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return tx.Model(&models.RouteAssignment{}).Where("id = ?", assignmentID).
			Update("status", models.AssignmentInProgress).Error
	})
	return inserted, err
}

func (s *shiftStore) InProgress(ctx context.Context, driverID, vehicleID, routeID uint, date string) (*models.ShiftLog, error) {
	var log models.ShiftLog
	err := s.db.WithContext(ctx).
		Where("driver_id = ? AND vehicle_id = ? AND route_id = ? AND shift_date = ? AND status = ?",
			driverID, vehicleID, routeID, date, models.ShiftInProgress).
		First(&log).Error
	if err != nil {
		return nil, notFound(err, "shift_log",
			"no in-progress shift for driver %d, vehicle %d, route %d on %s", driverID, vehicleID, routeID, date)
	}
	return &log, nil
}

func (s *shiftStore) Complete(ctx context.Context, log *models.ShiftLog, assignmentID uint, status models.AssignmentStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(log).Error; err != nil {
			return err
		}
		return tx.Model(&models.RouteAssignment{}).Where("id = ?", assignmentID).
			Update("status", status).Error
	})
}
