package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Unauthorized("login required"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{Validation("amount is required"), http.StatusBadRequest},
		{NotFound("report not found"), http.StatusNotFound},
		{Conflict("already decided"), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
		{fmt.Errorf("approve: %w", Conflict("x")), http.StatusConflict},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), c.err.Error())
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "resolve pending report first", Message(Conflict("resolve pending report first")))
	assert.Equal(t, "", Message(errors.New("dial tcp 10.0.0.3:3306: i/o timeout")))
	assert.Equal(t, "not found", Message(ErrNotFound))
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("take contract: %w", Conflict("active contract limit reached"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}
