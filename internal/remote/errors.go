package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a failed call to the collection resource: the
// request could not be sent, the server answered with a non-2xx status, or
// the body could not be decoded.
type TransportError struct {
	// Op names the logical operation ("list", "get", "create", "delete").
	Op string

	Method string
	URL    string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("%s: %s %s: status %d", e.Op, e.Method, e.URL, e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s %s: status %d: %v", e.Op, e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound returns true if the server answered 404.
func IsNotFound(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == http.StatusNotFound
	}
	return false
}

// ErrMissingID is returned when a create response carries no server-assigned id.
var ErrMissingID = errors.New("response record has no id")
