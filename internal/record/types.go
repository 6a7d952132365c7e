package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID is the opaque identifier assigned by the remote store on creation.
type ID = string

// Record is a single visited place.
type Record struct {
	ID        ID       `json:"id,omitempty"`
	Name      string   `json:"cityName"`
	Country   string   `json:"country"`
	Emoji     string   `json:"emoji"`
	VisitedOn Date     `json:"date"`
	Notes     string   `json:"notes"`
	Position  Position `json:"position"`
}

// UnmarshalJSON accepts numeric identifiers in addition to strings.
// Some collection servers assign integer ids; they are normalized to their
// decimal string form.
//
// A record carrying an id has been persisted and must have a position.
// Only candidates may omit it.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		ID       json.RawMessage `json:"id"`
		Position json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	r.ID = id

	raw := bytes.TrimSpace(aux.Position)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if id != "" {
			return fmt.Errorf("record %s: position: missing", id)
		}
		return nil
	}
	return r.Position.UnmarshalJSON(raw)
}

func decodeID(raw json.RawMessage) (ID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id: expected string or number, got %s", raw)
	}
	return n.String(), nil
}

// Position is a pair of decimal-degree coordinates.
type Position struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinates are finite and within range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// String renders the position as "lat,lng" using the shortest exact form.
func (p Position) String() string {
	return FormatDegrees(p.Lat) + "," + FormatDegrees(p.Lng)
}

// FormatDegrees renders a coordinate without trailing zeros.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalJSON always encodes coordinates as numbers.
func (p Position) MarshalJSON() ([]byte, error) {
	return []byte(`{"lat":` + FormatDegrees(p.Lat) + `,"lng":` + FormatDegrees(p.Lng) + `}`), nil
}

// UnmarshalJSON accepts lat/lng transported either as numbers or as strings.
func (p *Position) UnmarshalJSON(data []byte) error {
	var aux struct {
		Lat json.RawMessage `json:"lat"`
		Lng json.RawMessage `json:"lng"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("position: %w", err)
	}

	lat, err := decodeDegrees("lat", aux.Lat)
	if err != nil {
		return err
	}
	lng, err := decodeDegrees("lng", aux.Lng)
	if err != nil {
		return err
	}

	p.Lat, p.Lng = lat, lng
	return nil
}

func decodeDegrees(field string, raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("position: missing %s", field)
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("position: %s: %w", field, err)
		}
	}

	v, err := ParseDegrees(text)
	if err != nil {
		return 0, fmt.Errorf("position: %s: %w", field, err)
	}
	return v, nil
}

// ParseDegrees parses a decimal-degree value. Non-finite values are rejected.
func ParseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return v, nil
}

// Date is the calendar date of a visit.
//
// It is transported as an RFC 3339 timestamp (what browsers produce for
// Date values) but plain "2006-01-02" dates are accepted too. The zero Date
// encodes as an empty string.
type Date struct {
	t time.Time
}

// DateLayout is the display layout for dates.
const DateLayout = "2006-01-02"

// NewDate truncates t to its calendar day in t's location and returns it as UTC midnight.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts RFC 3339 timestamps and "2006-01-02" dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return NewDate(t), nil
}

// IsZero reports whether no date is set.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns the date as UTC midnight.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the date as an RFC 3339 timestamp.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.t.Format(time.RFC3339))
}

// UnmarshalJSON decodes RFC 3339 timestamps, plain dates, empty strings and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	*d = parsed
	return nil
}
