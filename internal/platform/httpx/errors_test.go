package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{shared.ErrPermissionDenied, http.StatusForbidden},
		{shared.ErrOwnershipMismatch, http.StatusForbidden},
		{shared.ErrValidation, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrInsufficientStock, http.StatusConflict},
		{errors.New("pgx: something broke"), http.StatusInternalServerError},
		// wrapped errors keep their mapping
		{fmt.Errorf("catalog: product p-1: %w", shared.ErrNotFound), http.StatusNotFound},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)

		var envelope Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.False(t, envelope.Success)
		require.NotEmpty(t, envelope.Error)
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "storage failure", envelope.Error)
}

func TestOKWithWarning(t *testing.T) {
	rec := httptest.NewRecorder()
	OKWithWarning(rec, map[string]string{"id": "p-1"}, "unit price sync failed")

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, "unit price sync failed", envelope.Warning)
}
