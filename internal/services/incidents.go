package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/events"
	"school_fleet/internal/metrics"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

// IncidentReport is one inbound safety report from a driver or staff member.
type IncidentReport struct {
	VehicleID          uint                    `json:"vehicle_id"`
	RouteID            *uint                   `json:"route_id,omitempty"`
	Type               models.IncidentType     `json:"type"`
	Severity           models.IncidentSeverity `json:"severity"`
	Description        string                  `json:"description"`
	Lat                float64                 `json:"lat"`
	Lon                float64                 `json:"lon"`
	AffectedStudentIDs []uint                  `json:"affected_student_ids"`
}

// IncidentCoordinator owns the incident lifecycle:
// reported -> investigating (on assignment) -> resolved (terminal).
// Critical incidents are auto-assigned to the emergency responder and raise
// an emergency-alert on top of the standard incident-created event.
type IncidentCoordinator struct {
	incidents repository.Incidents
	notifier  *events.Notifier
	metrics   *metrics.Collector

	emergencyResponderID uint
}

func NewIncidentCoordinator(incidents repository.Incidents, notifier *events.Notifier, m *metrics.Collector, emergencyResponderID uint) *IncidentCoordinator {
	return &IncidentCoordinator{
		incidents:            incidents,
		notifier:             notifier,
		metrics:              m,
		emergencyResponderID: emergencyResponderID,
	}
}

// Create records a new incident.
func (c *IncidentCoordinator) Create(ctx context.Context, r IncidentReport) (*models.Incident, error) {
	if r.VehicleID == 0 {
		return nil, apperrors.Validation("incident", "vehicle_id is required")
	}
	if !r.Severity.Valid() {
		return nil, apperrors.Validation("incident", "invalid severity %q", r.Severity)
	}

	affected, err := json.Marshal(r.AffectedStudentIDs)
	if err != nil {
		return nil, err
	}

	in := &models.Incident{
		VehicleID:          r.VehicleID,
		RouteID:            r.RouteID,
		Type:               r.Type,
		Severity:           r.Severity,
		Status:             models.IncidentReported,
		Description:        r.Description,
		Latitude:           r.Lat,
		Longitude:          r.Lon,
		AffectedStudentIDs: affected,
	}

	critical := r.Severity == models.SeverityCritical
	if critical {
		responder := c.emergencyResponderID
		in.AssignedToID = &responder
		in.Status = models.IncidentInvestigating
	}

	if err := c.incidents.Create(ctx, in); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"incident_id": in.ID,
		"vehicle_id":  in.VehicleID,
		"severity":    in.Severity,
	}).Info("incident created")

	c.notifier.Emit(events.IncidentCreated, in)
	if critical {
		c.notifier.Emit(events.EmergencyAlert, in)
	}
	c.refreshOpenGauge(ctx)
	return in, nil
}

// Assign moves a non-terminal incident to investigating under the given user.
func (c *IncidentCoordinator) Assign(ctx context.Context, id, userID uint) (*models.Incident, error) {
	in, err := c.incidents.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Terminal() {
		return nil, apperrors.State("incident", "incident %d is already resolved", id)
	}

	in.AssignedToID = &userID
	in.Status = models.IncidentInvestigating
	if err := c.incidents.Update(ctx, in); err != nil {
		return nil, err
	}

	c.notifier.Emit(events.IncidentAssigned, in)
	return in, nil
}

// Escalate raises the severity of a non-terminal incident. Escalating to
// critical triggers the same auto-assignment and emergency alert as
// creating a critical incident.
func (c *IncidentCoordinator) Escalate(ctx context.Context, id uint, severity models.IncidentSeverity) (*models.Incident, error) {
	if !severity.Valid() {
		return nil, apperrors.Validation("incident", "invalid severity %q", severity)
	}

	in, err := c.incidents.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Terminal() {
		return nil, apperrors.State("incident", "incident %d is already resolved", id)
	}
	if in.Severity.AtLeast(severity) {
		return nil, apperrors.State("incident",
			"incident %d severity %s cannot be lowered to %s", id, in.Severity, severity)
	}

	in.Severity = severity
	if severity == models.SeverityCritical {
		responder := c.emergencyResponderID
		in.AssignedToID = &responder
		in.Status = models.IncidentInvestigating
	}
	if err := c.incidents.Update(ctx, in); err != nil {
		return nil, err
	}

	if severity == models.SeverityCritical {
		c.notifier.Emit(events.EmergencyAlert, in)
	}
	return in, nil
}

// Resolve closes a non-terminal incident with the given notes.
func (c *IncidentCoordinator) Resolve(ctx context.Context, id uint, notes string) (*models.Incident, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, apperrors.Validation("incident", "resolution notes are required")
	}

	in, err := c.incidents.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Terminal() {
		return nil, apperrors.State("incident", "incident %d is already resolved", id)
	}

	now := time.Now().UTC()
	in.Status = models.IncidentResolved
	in.ResolutionNotes = notes
	in.ResolvedAt = &now
	if err := c.incidents.Update(ctx, in); err != nil {
		return nil, err
	}

	c.notifier.Emit(events.IncidentResolved, in)
	c.refreshOpenGauge(ctx)
	return in, nil
}

// Get returns one incident by id.
func (c *IncidentCoordinator) Get(ctx context.Context, id uint) (*models.Incident, error) {
	return c.incidents.ByID(ctx, id)
}

func (c *IncidentCoordinator) refreshOpenGauge(ctx context.Context) {
	if c.metrics == nil {
		return
	}
	if n, err := c.incidents.CountOpen(ctx); err == nil {
		c.metrics.OpenIncidents.Set(float64(n))
	}
}
