package position

import (
	"context"
	"errors"
	"fmt"
)

// ErrGeolocationUnavailable is returned synchronously when no geolocation
// capability exists. No request is attempted.
var ErrGeolocationUnavailable = errors.New("geolocation is not supported in this environment")

// Reason classifies an asynchronous geolocation failure.
type Reason string

const (
	ReasonDenied      Reason = "denied"
	ReasonUnavailable Reason = "unavailable"
	ReasonTimeout     Reason = "timeout"
	ReasonFailed      Reason = "failed"
)

// GeolocationError is a failed position request.
type GeolocationError struct {
	Reason Reason
	Err    error
}

func (e *GeolocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geolocation %s", e.Reason)
	}
	return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
}

func (e *GeolocationError) Unwrap() error {
	return e.Err
}

// IsDenied returns true if err is a GeolocationError caused by a refused permission.
func IsDenied(err error) bool {
	var ge *GeolocationError
	if errors.As(err, &ge) {
		return ge.Reason == ReasonDenied
	}
	return false
}

// asGeolocationError classifies an error returned by a Locator.
func asGeolocationError(err error) *GeolocationError {
	var ge *GeolocationError
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GeolocationError{Reason: ReasonTimeout, Err: err}
	}
	return &GeolocationError{Reason: ReasonFailed, Err: err}
}
