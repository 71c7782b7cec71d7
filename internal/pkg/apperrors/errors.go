package apperrors

import "errors"

// AccessDeniedError is returned before any write when an org or device
// model is deny-listed. Maps to 403.
type AccessDeniedError struct {
	Msg string
}

func (e *AccessDeniedError) Error() string { return e.Msg }

// RegistrationRequiredError is returned when a location arrives without
// any way to resolve its org. Maps to 406.
type RegistrationRequiredError struct {
	Msg string
}

func (e *RegistrationRequiredError) Error() string { return e.Msg }

var (
	// ErrMissingFilter guards deleteLocations against a full-table wipe.
	ErrMissingFilter = errors.New("missing some location deletion constraints")

	// ErrDeviceNotFound marks an ingest for a device row that no longer
	// exists (deleted from the dashboard while its JWT is still valid).
	// Maps to 410 on the ingestion path only.
	ErrDeviceNotFound = errors.New("device not found")
)

// IsAccessDenied reports whether err is (or wraps) an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var e *AccessDeniedError
	return errors.As(err, &e)
}

// IsRegistrationRequired reports whether err is (or wraps) a
// RegistrationRequiredError.
func IsRegistrationRequired(err error) bool {
	var e *RegistrationRequiredError
	return errors.As(err, &e)
}
