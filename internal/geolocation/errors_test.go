package geolocation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceDiagnostic(t *testing.T) {
	assert.Equal(t, "Location access denied", geolocation.DeviceDiagnostic(geolocation.ErrPermissionDenied))
	assert.Equal(t, "Location unavailable", geolocation.DeviceDiagnostic(geolocation.ErrPositionUnavailable))
	assert.Equal(t, "Location request timed out", geolocation.DeviceDiagnostic(geolocation.ErrTimeout))
	assert.Equal(t, "Geolocation not supported by your browser",
		geolocation.DeviceDiagnostic(fmt.Errorf("wrapped: %w", geolocation.ErrUnsupported)))
	assert.Equal(t, "Location error", geolocation.DeviceDiagnostic(context.Canceled))
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "permission_denied", geolocation.FailureReason(geolocation.ErrPermissionDenied))
	assert.Equal(t, "malformed_response",
		geolocation.FailureReason(fmt.Errorf("%w: boom", geolocation.ErrMalformedResponse)))
	assert.Equal(t, "network", geolocation.FailureReason(geolocation.ErrNetwork))
	assert.Equal(t, "unknown", geolocation.FailureReason(errors.New("other")))
}

func TestFailureFromCode(t *testing.T) {
	for code, want := range map[string]error{
		"permission_denied":    geolocation.ErrPermissionDenied,
		"position_unavailable": geolocation.ErrPositionUnavailable,
		"timeout":              geolocation.ErrTimeout,
		"unsupported":          geolocation.ErrUnsupported,
	} {
		require.ErrorIs(t, geolocation.FailureFromCode(code), want, code)
	}

	assert.NoError(t, geolocation.FailureFromCode("bogus"))
}
