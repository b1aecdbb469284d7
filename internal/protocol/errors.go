package protocol

import "errors"

var (
	// ErrMalformedRequest covers bad keywords, token counts and field values.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownClient is returned when a WHATSAT names a client with no stored location.
	ErrUnknownClient = errors.New("unknown client")

	// ErrServiceUnavailable is returned when the places lookup fails.
	ErrServiceUnavailable = errors.New("places service unavailable")
)

// ErrorKind names the error class for logging.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, ErrUnknownClient):
		return "not_found"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	default:
		return "internal"
	}
}
