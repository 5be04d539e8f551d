package geolocation

import "errors"

// Device failure reasons. They only change the diagnostic shown to the user,
// the resolver always moves on to the next strategy.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("location unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrUnsupported         = errors.New("geolocation not supported")
)

// IP geolocation failure reasons.
var (
	ErrNetwork           = errors.New("ip geolocation request failed")
	ErrMalformedResponse = errors.New("ip geolocation returned malformed response")
)

// FailureReason returns a short metric-friendly name for a strategy error.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrPositionUnavailable):
		return "position_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "unknown"
	}
}

// DeviceDiagnostic returns the user-facing message for a device positioning failure.
func DeviceDiagnostic(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location access denied"
	case errors.Is(err, ErrPositionUnavailable):
		return "Location unavailable"
	case errors.Is(err, ErrTimeout):
		return "Location request timed out"
	case errors.Is(err, ErrUnsupported):
		return "Geolocation not supported by your browser"
	default:
		return "Location error"
	}
}

// FailureFromCode maps a client-reported failure code onto a device error.
// It returns nil for unknown codes.
func FailureFromCode(code string) error {
	switch code {
	case "permission_denied":
		return ErrPermissionDenied
	case "position_unavailable":
		return ErrPositionUnavailable
	case "timeout":
		return ErrTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return nil
	}
}
