package record

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns a copy of r with its text fields in Unicode NFC form and
// surrounding whitespace trimmed from the name and country.
//
// Geocoders and user input disagree on composed vs decomposed accents
// ("São Paulo" can arrive as either), so records are normalized before they
// are sent to the remote store.
func Normalize(r Record) Record {
	r.Name = strings.TrimSpace(norm.NFC.String(r.Name))
	r.Country = strings.TrimSpace(norm.NFC.String(r.Country))
	r.Notes = norm.NFC.String(r.Notes)
	r.ID = strings.TrimSpace(r.ID)
	return r
}
