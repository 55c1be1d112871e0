package irrigation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is the opaque identifier the backend assigns to programs and sessions.
// The backend emits integers today; strings are accepted so the client does
// not depend on that.
type ID string

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits canonical integer ids as numbers and everything else,
// including "007" and "+5", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Program is a named irrigation policy with an active flag, a run frequency
// in days and a score band.
type Program struct {
	ID         ID        `json:"id"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	Frequency  int       `json:"frequency"`
	LowerScore float64   `json:"lower_score"`
	UpperScore float64   `json:"upper_score"`
	Sessions   []Session `json:"sessions"`
}

// Session is a single scheduled run inside a program.
type Session struct {
	ID              ID       `json:"id"`
	StartTime       string   `json:"start_time"`
	Zone1           *float64 `json:"zone1"`
	Zone2           *float64 `json:"zone2"`
	Zone3           *float64 `json:"zone3"`
	ZoneConnected   *float64 `json:"zone_connected"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
}

// Clone returns a deep copy so callers can hold on to a program without
// sharing slices or zone pointers with the controller.
func (p Program) Clone() Program {
	out := p
	if p.Sessions != nil {
		out.Sessions = make([]Session, len(p.Sessions))
		for i, s := range p.Sessions {
			out.Sessions[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Zone1 = clonePtr(s.Zone1)
	out.Zone2 = clonePtr(s.Zone2)
	out.Zone3 = clonePtr(s.Zone3)
	out.ZoneConnected = clonePtr(s.ZoneConnected)
	if s.DurationMinutes != nil {
		d := *s.DurationMinutes
		out.DurationMinutes = &d
	}
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ProgramPatch is a partial program update. Nil fields are not sent.
type ProgramPatch struct {
	Name       *string  `json:"name,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
	Frequency  *float64 `json:"frequency,omitempty"`
	LowerScore *float64 `json:"lower_score,omitempty"`
	UpperScore *float64 `json:"upper_score,omitempty"`
}

// SessionPatch is a partial session update. Nil fields are not sent.
type SessionPatch struct {
	StartTime     *string  `json:"start_time,omitempty"`
	Zone1         *float64 `json:"zone1,omitempty"`
	Zone2         *float64 `json:"zone2,omitempty"`
	Zone3         *float64 `json:"zone3,omitempty"`
	ZoneConnected *float64 `json:"zone_connected,omitempty"`
}

// ProgramDraft is the create-program payload with its initial sessions.
type ProgramDraft struct {
	Name       string           `json:"name"`
	IsActive   bool             `json:"is_active"`
	Frequency  int              `json:"frequency"`
	LowerScore float64          `json:"lower_score"`
	UpperScore float64          `json:"upper_score"`
	Sessions   []InitialSession `json:"sessions"`
}

// InitialSession is one session group of the create-program form.
type InitialSession struct {
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// SessionDraft is the create-session payload scoped to one program.
type SessionDraft struct {
	StartTime     string  `json:"start_time"`
	Zone1         float64 `json:"zone1"`
	Zone2         float64 `json:"zone2"`
	Zone3         float64 `json:"zone3"`
	ZoneConnected float64 `json:"zone_connected"`
}

// FormatTimeOfDay truncates "HH:MM[:SS[.ffffff]]" to "HH:MM".
func FormatTimeOfDay(t string) string {
	if t == "" {
		return ""
	}
	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return t
	}
	return parts[0] + ":" + parts[1]
}

// FormatZone renders a nullable zone duration, "-" when unset.
func FormatZone(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatNumber(*v)
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatActive renders the active flag the way the dashboard table does.
func FormatActive(active bool) string {
	if active {
		return "✅"
	}
	return "❌"
}
