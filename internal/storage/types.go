package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies the front-end a command was issued from.
type Source string

const (
	SourceWeb Source = "web"
	SourceTUI Source = "tui"
	SourceCLI Source = "cli"
)

// Outcome is how a journaled command ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomeDeclined Outcome = "declined"
	OutcomeInvalid  Outcome = "invalid"
)

// ParseOutcome normalizes an outcome string.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case OutcomeOK, OutcomeError, OutcomeDeclined, OutcomeInvalid:
		return o, nil
	default:
		return "", fmt.Errorf("invalid outcome: %s (must be ok, error, declined, or invalid)", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler to normalize outcome to lowercase.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ActionEntry is one mutating command issued from the dashboard.
type ActionEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Source     Source    `json:"source"`
	Kind       string    `json:"kind"`
	Target     string    `json:"target,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// Normalize fills the id and timestamp of a new entry.
func (e ActionEntry) Normalize() ActionEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}
