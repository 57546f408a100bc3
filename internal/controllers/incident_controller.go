package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/middleware"
	"school_fleet/internal/models"
	"school_fleet/internal/services"
)

// IncidentController serves the incident lifecycle endpoints.
type IncidentController struct {
	coordinator *services.IncidentCoordinator
}

func NewIncidentController(coordinator *services.IncidentCoordinator) *IncidentController {
	return &IncidentController{coordinator: coordinator}
}

// ReportIncident records a new incident from a driver or staff member.
func (ic *IncidentController) ReportIncident(c *gin.Context) {
	var report services.IncidentReport
	if err := c.ShouldBindJSON(&report); err != nil {
		logrus.WithError(err).Warn("ReportIncident: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := ic.coordinator.Create(c.Request.Context(), report)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"incident": in})
}

// GetIncident returns one incident.
func (ic *IncidentController) GetIncident(c *gin.Context) {
	in, err := ic.coordinator.Get(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": in})
}

// AssignIncident puts the incident under investigation by a user; defaults
// to the caller when no assignee is given.
func (ic *IncidentController) AssignIncident(c *gin.Context) {
	var input struct {
		AssignedToID uint `json:"assigned_to_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assignee := input.AssignedToID
	if assignee == 0 {
		assignee = middleware.UserID(c)
	}

	in, err := ic.coordinator.Assign(c.Request.Context(), idParam(c, "id"), assignee)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": in})
}

// EscalateIncident raises an incident's severity.
func (ic *IncidentController) EscalateIncident(c *gin.Context) {
	var input struct {
		Severity models.IncidentSeverity `json:"severity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := ic.coordinator.Escalate(c.Request.Context(), idParam(c, "id"), input.Severity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": in})
}

// ResolveIncident closes an incident with resolution notes.
func (ic *IncidentController) ResolveIncident(c *gin.Context) {
	var input struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := ic.coordinator.Resolve(c.Request.Context(), idParam(c, "id"), input.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": in})
}
