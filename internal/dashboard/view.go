package dashboard

import (
	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

// Snapshot is a point-in-time copy of a ProgramList for rendering.
type Snapshot struct {
	Programs   []ProgramView `json:"programs"`
	AddForm    AddFormView   `json:"add_form"`
	Status     string        `json:"status,omitempty"`
	Loaded     bool          `json:"loaded"`
	Generation uint64        `json:"generation"`
}

// ProgramView is one rendered program row.
type ProgramView struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	IsActive   bool                    `json:"is_active"`
	Active     string                  `json:"active"`
	Frequency  int                     `json:"frequency"`
	LowerScore string                  `json:"lower_score"`
	UpperScore string                  `json:"upper_score"`
	Sessions   int                     `json:"session_count"`
	State      RowState                `json:"state"`
	Form       *irrigation.ProgramForm `json:"form,omitempty"`
	Detail     *SessionsView           `json:"detail,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// SessionsView is the rendered session table of an expanded program.
type SessionsView struct {
	ProgramID string        `json:"program_id"`
	Rows      []SessionView `json:"rows"`
	Drafts    []DraftView   `json:"drafts"`
}

// SessionView is one rendered session row.
type SessionView struct {
	ID            string                  `json:"id"`
	StartTime     string                  `json:"start_time"`
	Zone1         string                  `json:"zone1"`
	Zone2         string                  `json:"zone2"`
	Zone3         string                  `json:"zone3"`
	ZoneConnected string                  `json:"zone_connected"`
	State         SessionState            `json:"state"`
	Form          *irrigation.SessionForm `json:"form,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// DraftView is one unsaved new-session row.
type DraftView struct {
	Key   string                 `json:"key"`
	Form  irrigation.SessionForm `json:"form"`
	Error string                 `json:"error,omitempty"`
}

// AddFormView is the rendered create-program form.
type AddFormView struct {
	Visible    bool                      `json:"visible"`
	Form       irrigation.NewProgramForm `json:"form"`
	Submitting bool                      `json:"submitting"`
	Error      string                    `json:"error,omitempty"`
}

// Program returns the view of the program with the given id.
func (s Snapshot) Program(id irrigation.ID) (ProgramView, bool) {
	for _, p := range s.Programs {
		if p.ID == id.String() {
			return p, true
		}
	}
	return ProgramView{}, false
}
