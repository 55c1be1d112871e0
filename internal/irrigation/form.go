package irrigation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is wrapped by every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports a single form field that could not be coerced.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ProgramForm holds the raw values of a program edit row.
type ProgramForm struct {
	Name       string `json:"name"`
	IsActive   string `json:"is_active"`
	Frequency  string `json:"frequency"`
	LowerScore string `json:"lower_score"`
	UpperScore string `json:"upper_score"`
}

// ProgramFormFrom pre-fills an edit form from a fetched program.
func ProgramFormFrom(p Program) ProgramForm {
	return ProgramForm{
		Name:       p.Name,
		IsActive:   strconv.FormatBool(p.IsActive),
		Frequency:  strconv.Itoa(p.Frequency),
		LowerScore: FormatNumber(p.LowerScore),
		UpperScore: FormatNumber(p.UpperScore),
	}
}

// Patch coerces the form into a partial update. Blank numeric fields are
// left out of the patch.
func (f ProgramForm) Patch() (ProgramPatch, error) {
	var patch ProgramPatch

	name := f.Name
	patch.Name = &name

	active := ParseBool(f.IsActive)
	patch.IsActive = &active

	var err error
	if patch.Frequency, err = optionalFloat("frequency", f.Frequency); err != nil {
		return ProgramPatch{}, err
	}
	if patch.LowerScore, err = optionalFloat("lower_score", f.LowerScore); err != nil {
		return ProgramPatch{}, err
	}
	if patch.UpperScore, err = optionalFloat("upper_score", f.UpperScore); err != nil {
		return ProgramPatch{}, err
	}
	return patch, nil
}

// SessionForm holds the raw values of a session row being edited or created.
type SessionForm struct {
	StartTime     string `json:"start_time"`
	Zone1         string `json:"zone1"`
	Zone2         string `json:"zone2"`
	Zone3         string `json:"zone3"`
	ZoneConnected string `json:"zone_connected"`
}

// SessionFormFrom pre-fills an edit form from a fetched session.
func SessionFormFrom(s Session) SessionForm {
	return SessionForm{
		StartTime:     FormatTimeOfDay(s.StartTime),
		Zone1:         formatOptional(s.Zone1),
		Zone2:         formatOptional(s.Zone2),
		Zone3:         formatOptional(s.Zone3),
		ZoneConnected: formatOptional(s.ZoneConnected),
	}
}

// BlankSessionForm is the zeroed form used for a new, unsaved session row.
func BlankSessionForm() SessionForm {
	return SessionForm{Zone1: "0", Zone2: "0", Zone3: "0", ZoneConnected: "0"}
}

// Patch coerces the form into a partial session update.
func (f SessionForm) Patch() (SessionPatch, error) {
	var patch SessionPatch
	if start := strings.TrimSpace(f.StartTime); start != "" {
		if err := checkTimeOfDay(start); err != nil {
			return SessionPatch{}, err
		}
		patch.StartTime = &start
	}

	var err error
	if patch.Zone1, err = optionalFloat("zone1", f.Zone1); err != nil {
		return SessionPatch{}, err
	}
	if patch.Zone2, err = optionalFloat("zone2", f.Zone2); err != nil {
		return SessionPatch{}, err
	}
	if patch.Zone3, err = optionalFloat("zone3", f.Zone3); err != nil {
		return SessionPatch{}, err
	}
	if patch.ZoneConnected, err = optionalFloat("zone_connected", f.ZoneConnected); err != nil {
		return SessionPatch{}, err
	}
	return patch, nil
}

// Draft validates a new session row. The start time is required and blank
// durations default to zero.
func (f SessionForm) Draft() (SessionDraft, error) {
	start := strings.TrimSpace(f.StartTime)
	if start == "" {
		return SessionDraft{}, &ValidationError{Field: "start_time", Reason: "required"}
	}
	if err := checkTimeOfDay(start); err != nil {
		return SessionDraft{}, err
	}

	draft := SessionDraft{StartTime: start}
	var err error
	if draft.Zone1, err = floatOrZero("zone1", f.Zone1); err != nil {
		return SessionDraft{}, err
	}
	if draft.Zone2, err = floatOrZero("zone2", f.Zone2); err != nil {
		return SessionDraft{}, err
	}
	if draft.Zone3, err = floatOrZero("zone3", f.Zone3); err != nil {
		return SessionDraft{}, err
	}
	if draft.ZoneConnected, err = floatOrZero("zone_connected", f.ZoneConnected); err != nil {
		return SessionDraft{}, err
	}
	return draft, nil
}

// NewProgramForm holds the raw values of the create-program form.
type NewProgramForm struct {
	Name       string               `json:"name"`
	IsActive   string               `json:"is_active"`
	Frequency  string               `json:"frequency"`
	LowerScore string               `json:"lower_score"`
	UpperScore string               `json:"upper_score"`
	Sessions   []InitialSessionForm `json:"sessions"`
}

// InitialSessionForm is one dynamically added session group.
type InitialSessionForm struct {
	StartTime       string `json:"start_time"`
	DurationMinutes string `json:"duration_minutes"`
}

// Draft coerces the create form into the payload posted to the backend.
func (f NewProgramForm) Draft() (ProgramDraft, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return ProgramDraft{}, &ValidationError{Field: "name", Reason: "required"}
	}

	draft := ProgramDraft{
		Name:     name,
		IsActive: ParseBool(f.IsActive),
		Sessions: make([]InitialSession, 0, len(f.Sessions)),
	}

	var err error
	if draft.Frequency, err = requiredInt("frequency", f.Frequency); err != nil {
		return ProgramDraft{}, err
	}
	if draft.LowerScore, err = requiredFloat("lower_score", f.LowerScore); err != nil {
		return ProgramDraft{}, err
	}
	if draft.UpperScore, err = requiredFloat("upper_score", f.UpperScore); err != nil {
		return ProgramDraft{}, err
	}

	for i, s := range f.Sessions {
		start := strings.TrimSpace(s.StartTime)
		field := fmt.Sprintf("session-%d-start_time", i)
		if start == "" {
			return ProgramDraft{}, &ValidationError{Field: field, Reason: "required"}
		}
		if err := checkTimeOfDay(start); err != nil {
			err.(*ValidationError).Field = field
			return ProgramDraft{}, err
		}
		minutes, err := requiredInt(fmt.Sprintf("session-%d-duration_minutes", i), s.DurationMinutes)
		if err != nil {
			return ProgramDraft{}, err
		}
		draft.Sessions = append(draft.Sessions, InitialSession{StartTime: start, DurationMinutes: minutes})
	}
	return draft, nil
}

// ParseBool reads the checkbox/select encodings the forms produce.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes", "y", "✅":
		return true
	}
	return false
}

// ParseIntOrZero mirrors the manual-run form: anything unparsable is 0.
func ParseIntOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(f)
	}
	return n
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Value: raw, Reason: "not a number"}
	}
	return v, nil
}

func optionalFloat(field, raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := parseFloat(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func floatOrZero(field, raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parseFloat(field, raw)
}

func requiredFloat(field, raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &ValidationError{Field: field, Reason: "required"}
	}
	return parseFloat(field, raw)
}

func requiredInt(field, raw string) (int, error) {
	v, err := requiredFloat(field, raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, &ValidationError{Field: field, Value: raw, Reason: "not a whole number"}
	}
	return int(v), nil
}

func checkTimeOfDay(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return &ValidationError{Field: "start_time", Value: s, Reason: "expected HH:MM"}
	}
	limits := []int{23, 59, 59}
	for i, p := range parts {
		if i == 2 {
			// fractional seconds are passed through untouched
			p = strings.SplitN(p, ".", 2)[0]
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return &ValidationError{Field: "start_time", Value: s, Reason: "expected HH:MM"}
		}
	}
	return nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatNumber(*v)
}
