package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bizdesk/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(apperror.Validation("bad")))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(fmt.Errorf("wrapped: %w", apperror.NotFound("gone"))))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(errors.New("plain")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, apperror.Status(apperror.KindValidation))
	assert.Equal(t, http.StatusBadRequest, apperror.Status(apperror.KindConflict))
	assert.Equal(t, http.StatusUnauthorized, apperror.Status(apperror.KindAuth))
	assert.Equal(t, http.StatusNotFound, apperror.Status(apperror.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, apperror.Status(apperror.KindInternal))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperror.Internal("Failed to fetch customers", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to fetch customers: connection reset", err.Error())
}
