package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_fleet/internal/apperrors"
	"school_fleet/internal/events"
	"school_fleet/internal/models"
	"school_fleet/internal/repository"
)

const testResponderID = 42

func newIncidentFixture(t *testing.T) (*IncidentCoordinator, *memPublisher, *events.Notifier) {
	t.Helper()
	_, store := repository.NewMemory()
	notifier, pub := newTestNotifier()
	return NewIncidentCoordinator(store.Incidents, notifier, nil, testResponderID), pub, notifier
}

func TestCreateIncident(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)

	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID:   1,
		Type:        models.IncidentBreakdown,
		Severity:    models.SeverityMedium,
		Description: "engine overheating on the hill section",
		Lat:         -1.29, Lon: 36.82,
	})
	require.NoError(t, err)
	notifier.Flush()

	assert.Equal(t, models.IncidentReported, in.Status)
	assert.Nil(t, in.AssignedToID)
	assert.Equal(t, 1, pub.count(events.IncidentCreated))
	assert.Zero(t, pub.count(events.EmergencyAlert))
}

func TestCreateCriticalIncidentAutoAssigns(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)

	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID:          1,
		Type:               models.IncidentAccident,
		Severity:           models.SeverityCritical,
		Description:        "collision at the junction",
		AffectedStudentIDs: []uint{100, 101},
	})
	require.NoError(t, err)
	notifier.Flush()

	assert.Equal(t, models.IncidentInvestigating, in.Status)
	require.NotNil(t, in.AssignedToID)
	assert.Equal(t, uint(testResponderID), *in.AssignedToID)
	assert.Equal(t, 1, pub.count(events.IncidentCreated))
	assert.Equal(t, 1, pub.count(events.EmergencyAlert))
}

func TestCreateIncidentValidation(t *testing.T) {
	coord, _, _ := newIncidentFixture(t)

	_, err := coord.Create(context.Background(), IncidentReport{
		Type: models.IncidentOther, Severity: models.SeverityLow,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentOther, Severity: "catastrophic",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAssignIncident(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentBehavioral, Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	got, err := coord.Assign(context.Background(), in.ID, 9)
	require.NoError(t, err)
	notifier.Flush()

	assert.Equal(t, models.IncidentInvestigating, got.Status)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, uint(9), *got.AssignedToID)
	assert.Equal(t, 1, pub.count(events.IncidentAssigned))
}

func TestResolveIncident(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentMedical, Severity: models.SeverityHigh,
	})
	require.NoError(t, err)

	got, err := coord.Resolve(context.Background(), in.ID, "student treated on site, parent notified")
	require.NoError(t, err)
	notifier.Flush()

	assert.Equal(t, models.IncidentResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, 1, pub.count(events.IncidentResolved))
}

func TestResolveRequiresNotes(t *testing.T) {
	coord, _, _ := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentOther, Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	_, err = coord.Resolve(context.Background(), in.ID, "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestResolvedIncidentIsTerminal(t *testing.T) {
	coord, _, _ := newIncidentFixture(t)
	ctx := context.Background()
	in, err := coord.Create(ctx, IncidentReport{
		VehicleID: 1, Type: models.IncidentOther, Severity: models.SeverityLow,
	})
	require.NoError(t, err)
	_, err = coord.Resolve(ctx, in.ID, "handled")
	require.NoError(t, err)

	_, err = coord.Assign(ctx, in.ID, 9)
	assert.True(t, apperrors.IsState(err))
	_, err = coord.Escalate(ctx, in.ID, models.SeverityCritical)
	assert.True(t, apperrors.IsState(err))
	_, err = coord.Resolve(ctx, in.ID, "again")
	assert.True(t, apperrors.IsState(err))
}

func TestEscalateIncident(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentBreakdown, Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	got, err := coord.Escalate(context.Background(), in.ID, models.SeverityHigh)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, got.Severity)
	notifier.Flush()
	assert.Zero(t, pub.count(events.EmergencyAlert))
}

func TestEscalateToCriticalRaisesAlert(t *testing.T) {
	coord, pub, notifier := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentAccident, Severity: models.SeverityMedium,
	})
	require.NoError(t, err)

	got, err := coord.Escalate(context.Background(), in.ID, models.SeverityCritical)
	require.NoError(t, err)
	notifier.Flush()

	assert.Equal(t, models.IncidentInvestigating, got.Status)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, uint(testResponderID), *got.AssignedToID)
	assert.Equal(t, 1, pub.count(events.EmergencyAlert))
}

func TestEscalateMustRaiseSeverity(t *testing.T) {
	coord, _, _ := newIncidentFixture(t)
	in, err := coord.Create(context.Background(), IncidentReport{
		VehicleID: 1, Type: models.IncidentOther, Severity: models.SeverityHigh,
	})
	require.NoError(t, err)

	for _, sev := range []models.IncidentSeverity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh} {
		_, err = coord.Escalate(context.Background(), in.ID, sev)
		require.Error(t, err)
		assert.True(t, apperrors.IsState(err))
	}
}

func TestEscalateUnknownIncident(t *testing.T) {
	coord, _, _ := newIncidentFixture(t)
	_, err := coord.Escalate(context.Background(), 999, models.SeverityHigh)
	assert.True(t, apperrors.IsNotFound(err))
}
