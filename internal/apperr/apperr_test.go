package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("join: %w", ErrRideFull.WithMessage("ride 42 is full"))

	assert.True(t, errors.Is(err, ErrRideFull))
	assert.False(t, errors.Is(err, ErrAlreadyMember))
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		Validation("missing origin"): http.StatusBadRequest,
		ErrInvalidDomain:             http.StatusBadRequest,
		ErrCodeExpired:               http.StatusUnauthorized,
		ErrNotMember:                 http.StatusForbidden,
		ErrQuestionNotFound:          http.StatusNotFound,
		ErrAlreadyMember:             http.StatusConflict,
		ErrRideFull:                  http.StatusConflict,
		Upstream("places", nil):      http.StatusServiceUnavailable,
		errors.New("boom"):           http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Upstream("google places unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "refused")
}

func TestFromTreatsForeignErrorsAsInternal(t *testing.T) {
	e := From(errors.New("db exploded"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "internal server error", e.Message)
}
