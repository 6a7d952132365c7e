package record

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// cue values are not safe for concurrent use, so every validation runs
// under schemaMu against the lazily compiled #Candidate definition.
var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	candidate  cue.Value
	schemaErr  error
)

// friendlyMessages replaces CUE's constraint text for the fields a user edits.
var friendlyMessages = map[string]string{
	"cityName":     "a city name is required",
	"emoji":        "emoji must be a country flag",
	"position.lat": "latitude must be between -90 and 90",
	"position.lng": "longitude must be between -180 and 180",
}

// ValidationError describes the first constraint a candidate violates.
type ValidationError struct {
	// Field is the dotted JSON path of the offending field, e.g. "position.lat".
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying CUE error.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Message)
	}
	return "invalid record: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func loadSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile record schema: %w", err)
			return
		}
		candidate = v.LookupPath(cue.ParsePath("#Candidate"))
		if !candidate.Exists() {
			schemaErr = errors.New("compile record schema: #Candidate not defined")
		}
	})
	return candidate, schemaErr
}

// Validate checks a record candidate against the embedded CUE schema.
//
// A candidate needs a non-blank name, in-range coordinates and an emoji that
// is either empty or a two-symbol regional-indicator flag. The id is optional
// because the remote store assigns it. So is the visit date.
func Validate(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	schema, err := loadSchema()
	if err != nil {
		return err
	}

	v := schema.Context().CompileBytes(data, cue.Filename("candidate.json"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("validate record: %w", err)
	}

	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return newValidationError(err)
	}
	return nil
}

func newValidationError(err error) *ValidationError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error(), Err: err}
	}

	first := errs[0]
	field := fieldPath(first.Path())
	if msg, ok := friendlyMessages[field]; ok {
		return &ValidationError{Field: field, Message: msg, Err: err}
	}

	format, args := first.Msg()
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: err}
}

// fieldPath drops definition selectors such as "#Candidate" from a CUE error path.
func fieldPath(selectors []string) string {
	parts := make([]string, 0, len(selectors))
	for _, s := range selectors {
		if strings.HasPrefix(s, "#") {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}
