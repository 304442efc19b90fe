package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/service/onboarding"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.ErrMissingFields.WithFields("to"), http.StatusBadRequest, "MISSING_FIELDS"},
		{"config missing", apperr.ErrConfigNotFound, http.StatusNotFound, "CONFIG_NOT_FOUND"},
		{"config incomplete", apperr.ErrConfigIncomplete.WithFields("waba_id"), http.StatusConflict, "CONFIG_INCOMPLETE"},
		{"provider", apperr.ErrInvalidToken, http.StatusBadGateway, "INVALID_TOKEN"},
		{"not found", apperr.ErrPhoneNotInAccount, http.StatusNotFound, "PHONE_NOT_IN_ACCOUNT"},
		{"unsupported", apperr.ErrUnsupportedType, http.StatusBadRequest, "UNSUPPORTED_TYPE"},
		{"persistence", apperr.ErrPersistence, http.StatusInternalServerError, "PERSISTENCE_FAILED"},
		{"wrapped", fmt.Errorf("outer: %w", apperr.ErrWABAMismatch), http.StatusBadRequest, "WABA_MISMATCH"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := statusOf(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, body.Code)
		})
	}
}

func TestStatusOfStepError(t *testing.T) {
	err := &onboarding.StepError{Step: "phone_discovery", Err: apperr.ErrNoPhoneNumbers}

	status, body := statusOf(err)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "phone_discovery", body.Step)
}
