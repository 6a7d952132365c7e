package position

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/roach88/triplog/internal/record"
)

// FormView is the route segment of the record creation view.
const FormView = "form"

// ParseURLPosition reads lat and lng query parameters. Both must be present
// and parse to finite numbers, otherwise there is no URL position.
func ParseURLPosition(q url.Values) (record.Position, bool) {
	latText, lngText := q.Get("lat"), q.Get("lng")
	if latText == "" || lngText == "" {
		return record.Position{}, false
	}
	lat, err := record.ParseDegrees(latText)
	if err != nil {
		return record.Position{}, false
	}
	lng, err := record.ParseDegrees(lngText)
	if err != nil {
		return record.Position{}, false
	}
	return record.Position{Lat: lat, Lng: lng}, true
}

// FormPath is the relative target a map click navigates to.
func FormPath(p record.Position) string {
	return fmt.Sprintf("%s?lat=%s&lng=%s", FormView, record.FormatDegrees(p.Lat), record.FormatDegrees(p.Lng))
}

// Route is a parsed navigation target.
type Route struct {
	Path  string
	Query url.Values
}

// ParseRoute splits a target such as "/app/form?lat=1&lng=2".
func ParseRoute(target string) (Route, error) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return Route{}, fmt.Errorf("parse route %q: %w", target, err)
	}
	return Route{Path: u.Path, Query: u.Query()}, nil
}

// IsFormView reports whether the route is the creation view.
func (r Route) IsFormView() bool {
	return path.Base(r.Path) == FormView
}

// Position returns the coordinates carried in the query, if any.
func (r Route) Position() (record.Position, bool) {
	return ParseURLPosition(r.Query)
}
