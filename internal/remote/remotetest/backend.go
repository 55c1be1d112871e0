// Package remotetest provides an in-memory scarlet backend for tests.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/remote"
)

// Backend is a fake of the REST surface the dashboard consumes.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	programs   map[int]*irrigation.Program
	nextID     int
	requests   []string
	failures   map[string]int
	blindsAuto bool
	irrAuto    bool
	blinds     remote.BlindCommand
	lastRun    *remote.RunRequest
	scoreBody  string
	hold       map[string]chan struct{}
}

// New starts a fake backend that is closed with the test.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		programs:  make(map[int]*irrigation.Program),
		nextID:    1,
		failures:  make(map[string]int),
		hold:      make(map[string]chan struct{}),
		scoreBody: "2.5",
		blinds:    remote.BlindCommand{LeftBlind: remote.BlindNoState, RightBlind: remote.BlindNoState},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /irrigation/program/all", b.listPrograms)
	mux.HandleFunc("GET /irrigation/program/{id}", b.getProgram)
	mux.HandleFunc("POST /irrigation/program", b.createProgram)
	mux.HandleFunc("PATCH /irrigation/program/{id}", b.updateProgram)
	mux.HandleFunc("POST /irrigation/program/{id}/delete", b.deleteProgram)
	mux.HandleFunc("POST /irrigation/program/{id}/session/create", b.createSession)
	mux.HandleFunc("PATCH /irrigation/program/session/{id}", b.updateSession)
	mux.HandleFunc("POST /irrigation/program/{pid}/session/{id}/delete", b.deleteSession)
	mux.HandleFunc("GET /blinds/automation", b.getBlindsAutomation)
	mux.HandleFunc("POST /blinds/automation", b.setBlindsAutomation)
	mux.HandleFunc("POST /blinds", b.sendBlinds)
	mux.HandleFunc("GET /irrigation/automation", b.getIrrigationAutomation)
	mux.HandleFunc("POST /irrigation/automation", b.setIrrigationAutomation)
	mux.HandleFunc("POST /irrigation", b.runIrrigation)
	mux.HandleFunc("GET /open_weather/score", b.score)

	b.Server = httptest.NewServer(b.intercept(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the base URL of the fake.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Requests returns every "METHOD /path" received so far.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestCount returns the number of requests received so far.
func (b *Backend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// FailNext makes the next n requests matching "METHOD /path" answer 500.
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] += n
}

// Hold blocks requests matching "METHOD /path" until the returned release
// function is called.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold[route] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.hold, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// SetScoreBody sets the raw body served by the score endpoint.
func (b *Backend) SetScoreBody(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scoreBody = body
}

// Seed stores a program as if it had been created through the API.
func (b *Backend) Seed(p irrigation.Program) irrigation.Program {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	p.ID = irrigation.ID(strconv.Itoa(id))
	for i := range p.Sessions {
		p.Sessions[i].ID = irrigation.ID(strconv.Itoa(b.nextID))
		b.nextID++
	}
	stored := p.Clone()
	b.programs[id] = &stored
	return p.Clone()
}

// Program returns the stored program with the given id.
func (b *Backend) Program(id irrigation.ID) (irrigation.Program, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return irrigation.Program{}, false
	}
	p, ok := b.programs[n]
	if !ok {
		return irrigation.Program{}, false
	}
	return p.Clone(), true
}

// Blinds returns the last blind command received.
func (b *Backend) Blinds() remote.BlindCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blinds
}

// LastRun returns the last manual irrigation run received.
func (b *Backend) LastRun() *remote.RunRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRun
}

// Automation returns the blinds and irrigation automation flags.
func (b *Backend) Automation() (blinds, irrigationFlag bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blindsAuto, b.irrAuto
}

func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.requests = append(b.requests, route)
		fail := b.failures[route] > 0
		if fail {
			b.failures[route]--
		}
		hold := b.hold[route]
		b.mu.Unlock()

		if hold != nil {
			<-hold
		}
		if fail {
			http.Error(w, `{"detail":"injected failure"}`, http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}

func (b *Backend) listPrograms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.programs))
	for id := range b.programs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]irrigation.Program, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.programs[id].Clone())
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) lookup(raw string) (int, *irrigation.Program) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return id, b.programs[id]
}

func (b *Backend) getProgram(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	_, p := b.lookup(r.PathValue("id"))
	var out irrigation.Program
	if p != nil {
		out = p.Clone()
	}
	b.mu.Unlock()
	if p == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createProgram(w http.ResponseWriter, r *http.Request) {
	var draft irrigation.ProgramDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	p := irrigation.Program{
		ID:         irrigation.ID(strconv.Itoa(b.nextID)),
		Name:       draft.Name,
		IsActive:   draft.IsActive,
		Frequency:  draft.Frequency,
		LowerScore: draft.LowerScore,
		UpperScore: draft.UpperScore,
		Sessions:   []irrigation.Session{},
	}
	id := b.nextID
	b.nextID++
	for _, s := range draft.Sessions {
		minutes := s.DurationMinutes
		p.Sessions = append(p.Sessions, irrigation.Session{
			ID:              irrigation.ID(strconv.Itoa(b.nextID)),
			StartTime:       s.StartTime + ":00",
			DurationMinutes: &minutes,
		})
		b.nextID++
	}
	b.programs[id] = &p
	out := p.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) updateProgram(w http.ResponseWriter, r *http.Request) {
	var patch irrigation.ProgramPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	_, p := b.lookup(r.PathValue("id"))
	if p == nil {
		b.mu.Unlock()
		notFound(w)
		return
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.Frequency != nil {
		p.Frequency = int(*patch.Frequency)
	}
	if patch.LowerScore != nil {
		p.LowerScore = *patch.LowerScore
	}
	if patch.UpperScore != nil {
		p.UpperScore = *patch.UpperScore
	}
	out := p.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) deleteProgram(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	id, p := b.lookup(r.PathValue("id"))
	if p != nil {
		delete(b.programs, id)
	}
	b.mu.Unlock()
	if p == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
}

func (b *Backend) createSession(w http.ResponseWriter, r *http.Request) {
	var draft irrigation.SessionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	_, p := b.lookup(r.PathValue("id"))
	if p == nil {
		b.mu.Unlock()
		notFound(w)
		return
	}
	s := irrigation.Session{
		ID:            irrigation.ID(strconv.Itoa(b.nextID)),
		StartTime:     draft.StartTime + ":00",
		Zone1:         ptr(draft.Zone1),
		Zone2:         ptr(draft.Zone2),
		Zone3:         ptr(draft.Zone3),
		ZoneConnected: ptr(draft.ZoneConnected),
	}
	b.nextID++
	p.Sessions = append(p.Sessions, s)
	out := s.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) findSession(raw string) *irrigation.Session {
	id := irrigation.ID(raw)
	for _, p := range b.programs {
		for i := range p.Sessions {
			if p.Sessions[i].ID == id {
				return &p.Sessions[i]
			}
		}
	}
	return nil
}

func (b *Backend) updateSession(w http.ResponseWriter, r *http.Request) {
	var patch irrigation.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	s := b.findSession(r.PathValue("id"))
	if s == nil {
		b.mu.Unlock()
		notFound(w)
		return
	}
	if patch.StartTime != nil {
		s.StartTime = *patch.StartTime
	}
	if patch.Zone1 != nil {
		s.Zone1 = ptr(*patch.Zone1)
	}
	if patch.Zone2 != nil {
		s.Zone2 = ptr(*patch.Zone2)
	}
	if patch.Zone3 != nil {
		s.Zone3 = ptr(*patch.Zone3)
	}
	if patch.ZoneConnected != nil {
		s.ZoneConnected = ptr(*patch.ZoneConnected)
	}
	out := s.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) deleteSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	_, p := b.lookup(r.PathValue("pid"))
	removed := false
	if p != nil {
		sid := irrigation.ID(r.PathValue("id"))
		for i, s := range p.Sessions {
			if s.ID == sid {
				p.Sessions = append(p.Sessions[:i], p.Sessions[i+1:]...)
				removed = true
				break
			}
		}
	}
	b.mu.Unlock()
	if !removed {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
}

// The blinds endpoint answers with a bare boolean, the irrigation one with
// an object, matching the two shapes the real backend has served.
func (b *Backend) getBlindsAutomation(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	v := b.blindsAuto
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (b *Backend) setBlindsAutomation(w http.ResponseWriter, r *http.Request) {
	var body remote.Automation
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.blindsAuto = body.Automation
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) getIrrigationAutomation(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	v := b.irrAuto
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, remote.Automation{Automation: v})
}

func (b *Backend) setIrrigationAutomation(w http.ResponseWriter, r *http.Request) {
	var body remote.Automation
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.irrAuto = body.Automation
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) sendBlinds(w http.ResponseWriter, r *http.Request) {
	var cmd remote.BlindCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.blinds = cmd
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, remote.CommandStatus{Detail: "Accepted"})
}

func (b *Backend) runIrrigation(w http.ResponseWriter, r *http.Request) {
	var req remote.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.lastRun = &req
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, req)
}

func (b *Backend) score(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	body := b.scoreBody
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func ptr(v float64) *float64 {
	return &v
}
