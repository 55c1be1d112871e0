package dashboard

import (
	"strconv"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

// SessionState is the display state of one session row.
type SessionState int

const (
	SessionViewing SessionState = iota
	SessionEditing
	SessionNew
)

func (s SessionState) String() string {
	switch s {
	case SessionEditing:
		return "editing"
	case SessionNew:
		return "new"
	default:
		return "view"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type sessionRow struct {
	session irrigation.Session
	state   SessionState
	form    irrigation.SessionForm
	err     string
}

type draftRow struct {
	key  string
	form irrigation.SessionForm
	err  string
}

// SessionEditor holds the session rows of one expanded program and its
// unsaved drafts. It is owned by a ProgramList and guarded by its lock.
type SessionEditor struct {
	programID irrigation.ID
	rows      []*sessionRow
	drafts    []*draftRow
	nextDraft int
}

func newSessionEditor(p irrigation.Program) *SessionEditor {
	e := &SessionEditor{programID: p.ID}
	for _, s := range p.Sessions {
		e.rows = append(e.rows, &sessionRow{session: s.Clone(), state: SessionViewing})
	}
	return e
}

func (e *SessionEditor) row(id irrigation.ID) *sessionRow {
	for _, r := range e.rows {
		if r.session.ID == id {
			return r
		}
	}
	return nil
}

func (e *SessionEditor) draft(key string) *draftRow {
	for _, d := range e.drafts {
		if d.key == key {
			return d
		}
	}
	return nil
}

// addDraft appends a blank new-session row and returns its key.
func (e *SessionEditor) addDraft() string {
	e.nextDraft++
	d := &draftRow{key: "new-" + strconv.Itoa(e.nextDraft), form: irrigation.BlankSessionForm()}
	e.drafts = append(e.drafts, d)
	return d.key
}

// removeDraft drops an unsaved row.
func (e *SessionEditor) removeDraft(key string) bool {
	for i, d := range e.drafts {
		if d.key == key {
			e.drafts = append(e.drafts[:i], e.drafts[i+1:]...)
			return true
		}
	}
	return false
}

// edit switches a row to editing, pre-filled from the fetched session.
func (e *SessionEditor) edit(id irrigation.ID) (irrigation.SessionForm, error) {
	r := e.row(id)
	if r == nil {
		return irrigation.SessionForm{}, ErrNotFound
	}
	if r.state != SessionEditing {
		r.state = SessionEditing
		r.form = irrigation.SessionFormFrom(r.session)
		r.err = ""
	}
	return r.form, nil
}

func (e *SessionEditor) view() SessionsView {
	v := SessionsView{
		ProgramID: e.programID.String(),
		Rows:      make([]SessionView, 0, len(e.rows)),
		Drafts:    make([]DraftView, 0, len(e.drafts)),
	}
	for _, r := range e.rows {
		sv := SessionView{
			ID:            r.session.ID.String(),
			StartTime:     irrigation.FormatTimeOfDay(r.session.StartTime),
			Zone1:         irrigation.FormatZone(r.session.Zone1),
			Zone2:         irrigation.FormatZone(r.session.Zone2),
			Zone3:         irrigation.FormatZone(r.session.Zone3),
			ZoneConnected: irrigation.FormatZone(r.session.ZoneConnected),
			State:         r.state,
			Error:         r.err,
		}
		if r.state == SessionEditing {
			form := r.form
			sv.Form = &form
		}
		v.Rows = append(v.Rows, sv)
	}
	for _, d := range e.drafts {
		v.Drafts = append(v.Drafts, DraftView{Key: d.key, Form: d.form, Error: d.err})
	}
	return v
}
