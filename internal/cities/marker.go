package cities

import "github.com/roach88/triplog/internal/record"

// Marker is what the map draws for one record.
type Marker struct {
	ID       record.ID
	Name     string
	Emoji    string
	Position record.Position
}

// Markers projects records onto map markers, preserving order.
func Markers(records []record.Record) []Marker {
	out := make([]Marker, 0, len(records))
	for _, r := range records {
		out = append(out, Marker{ID: r.ID, Name: r.Name, Emoji: r.Emoji, Position: r.Position})
	}
	return out
}

// Markers returns the markers for the current collection.
func (s State) Markers() []Marker {
	return Markers(s.Records)
}
