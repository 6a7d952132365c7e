// Package record defines the trip-log data model shared by every other
// internal package.
//
// A Record is one visited place. Records travel over the wire as JSON in the
// shape the remote collection resource uses:
//
//	{"cityName": "...", "country": "...", "emoji": "...", "date": "...",
//	 "notes": "...", "position": {"lat": ..., "lng": ...}, "id": "..."}
//
// Key constraints:
//   - Coordinates may arrive as JSON strings or numbers; both decode into
//     float64 and always encode back as numbers.
//   - Identifiers may arrive as strings or numbers; both decode into ID.
//   - Candidates are validated against an embedded CUE schema before they
//     are sent to the remote store (see Validate).
//
// This package imports nothing internal.
package record
