package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsConflict(Conflict("ridership_event", "duplicate check-in")))
	assert.True(t, IsState(State("incident", "already resolved")))
	assert.False(t, IsConflict(NotFound("vehicle", "vehicle %d not found", 7)))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("check-in failed: %w", Conflict("ridership_event", "duplicate"))
	assert.True(t, IsConflict(err))
	assert.Equal(t, http.StatusConflict, Status(err))
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		Validation("location_sample", "latitude out of range"): http.StatusBadRequest,
		NotFound("shift_log", "no in-progress shift"):          http.StatusNotFound,
		Conflict("shift_log", "already started"):               http.StatusConflict,
		Capacity("vehicle", "capacity exceeded"):               http.StatusConflict,
		State("route", "too few stops"):                        http.StatusUnprocessableEntity,
		errors.New("boom"):                                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}
