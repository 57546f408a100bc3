package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/services"
)

// LocationController is the HTTP ingest path for vehicle position reports
// and the read side for a vehicle's current location.
type LocationController struct {
	ingestor *services.Ingestor
}

func NewLocationController(ingestor *services.Ingestor) *LocationController {
	return &LocationController{ingestor: ingestor}
}

// IngestLocation accepts one position report from a driver device.
func (lc *LocationController) IngestLocation(c *gin.Context) {
	var report services.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		logrus.WithError(err).Warn("IngestLocation: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample, err := lc.ingestor.Ingest(c.Request.Context(), report)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sample": sample})
}

// CurrentLocation returns the vehicle's most recent sample, reported as
// offline when stale.
func (lc *LocationController) CurrentLocation(c *gin.Context) {
	sample, err := lc.ingestor.Current(c.Request.Context(), idParam(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sample": sample})
}
