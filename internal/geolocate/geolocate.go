// Package geolocate provides position.Locator implementations for runtimes
// without a browser geolocation API.
package geolocate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/roach88/triplog/internal/position"
	"github.com/roach88/triplog/internal/record"
)

// Unsupported is a Locator for environments with no capability at all.
type Unsupported struct{}

func (Unsupported) Available() bool { return false }

func (Unsupported) Locate(context.Context) (record.Position, error) {
	return record.Position{}, position.ErrGeolocationUnavailable
}

// Static always reports the same fix. Useful for configured home locations.
type Static struct {
	Position record.Position
}

func (s Static) Available() bool { return true }

func (s Static) Locate(ctx context.Context) (record.Position, error) {
	if err := ctx.Err(); err != nil {
		return record.Position{}, &position.GeolocationError{Reason: position.ReasonTimeout, Err: err}
	}
	if !s.Position.Valid() {
		return record.Position{}, &position.GeolocationError{Reason: position.ReasonUnavailable, Err: fmt.Errorf("invalid static position %s", s.Position)}
	}
	return s.Position, nil
}

// cityReader is the subset of *geoip2.Reader used by MaxMind.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// MaxMind locates the host from its public IP address using a GeoLite2 or
// GeoIP2 City database.
type MaxMind struct {
	mu     sync.Mutex
	reader cityReader
	ip     net.IP
}

// OpenMaxMind opens the database at path and resolves ip on every Locate.
func OpenMaxMind(path string, ip string) (*MaxMind, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("open geoip database: invalid ip %q", ip)
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &MaxMind{reader: reader, ip: parsed}, nil
}

// Available reports whether the database is still open.
func (m *MaxMind) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader != nil
}

// Locate looks up the configured address.
func (m *MaxMind) Locate(ctx context.Context) (record.Position, error) {
	if err := ctx.Err(); err != nil {
		return record.Position{}, &position.GeolocationError{Reason: position.ReasonTimeout, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reader == nil {
		return record.Position{}, position.ErrGeolocationUnavailable
	}

	city, err := m.reader.City(m.ip)
	if err != nil {
		return record.Position{}, &position.GeolocationError{Reason: position.ReasonFailed, Err: err}
	}
	if city.Location.Latitude == 0 && city.Location.Longitude == 0 {
		return record.Position{}, &position.GeolocationError{
			Reason: position.ReasonUnavailable,
			Err:    errors.New("no location for " + m.ip.String()),
		}
	}
	return record.Position{Lat: city.Location.Latitude, Lng: city.Location.Longitude}, nil
}

// Close releases the database. Later Locate calls report unavailable.
func (m *MaxMind) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reader == nil {
		return nil
	}
	err := m.reader.Close()
	m.reader = nil
	return err
}
