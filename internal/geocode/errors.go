package geocode

import (
	"errors"
	"fmt"

	"github.com/roach88/triplog/internal/record"
)

// ErrUnresolvable means the lookup succeeded but the point is not inside any
// country (open sea, poles). The user should pick another point.
var ErrUnresolvable = errors.New("location not resolvable: pick a different point on the map")

// DomainError is a well-formed geocoder response that cannot become a place.
// It is distinct from a transport failure: retrying the same point will not help.
type DomainError struct {
	Position record.Position
	Err      error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("reverse geocode %s: %v", e.Position, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError returns true if err is (or wraps) a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
