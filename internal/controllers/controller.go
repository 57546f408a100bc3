// Package controllers is the HTTP boundary: bind input, call the domain
// services, map typed failures to status codes. No business rules live here.
package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"school_fleet/internal/apperrors"
)

// fail writes the error response for a services-layer failure using the
// status mapping from apperrors.
func fail(c *gin.Context, err error) {
	c.JSON(apperrors.Status(err), gin.H{"error": err.Error()})
}

// idParam parses a numeric path parameter, returning 0 when malformed.
func idParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// schoolScope returns the caller's school claim; 0 means unscoped (admin
// tokens without a school see the whole fleet).
func schoolScope(c *gin.Context) uint {
	return c.GetUint("school_id")
}
