package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/journal"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/scarlet-home/scarletdash/internal/remote/remotetest"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/scarlet-home/scarletdash/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *Server
	backend *remotetest.Backend
	store   *memory.Store
}

func setupTestServer(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	backend := remotetest.New(t)
	client, err := remote.New(remote.Config{BaseURL: backend.URL(), Timeout: 2 * time.Second}, zerolog.Nop())
	require.NoError(t, err)

	store := memory.New()
	recorder := journal.NewRecorder(store.Actions(), storage.SourceWeb, zerolog.Nop())
	guard := dashboard.NewGuard()
	panel := dashboard.NewPanel(client, dashboard.Options{Guard: guard, Journal: recorder, Logger: zerolog.Nop()})

	s, err := NewServer(cfg, Deps{Backend: client, Panel: panel, Guard: guard, Recorder: recorder}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.views.purge)

	return &testEnv{server: s, backend: backend, store: store}
}

func f64(v float64) *float64 { return &v }

func seedLawn(backend *remotetest.Backend) irrigation.Program {
	return backend.Seed(irrigation.Program{
		Name:       "Lawn",
		IsActive:   true,
		Frequency:  2,
		LowerScore: 1,
		UpperScore: 4,
		Sessions: []irrigation.Session{
			{StartTime: "06:00:00", Zone1: f64(10), Zone3: f64(5)},
		},
	})
}

// browser replays the view cookie like a real browser would.
type browser struct {
	handler http.Handler
	cookie  *http.Cookie
}

func (b *browser) do(method, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == viewCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, path, form, "")
}

type stateResponse struct {
	State struct {
		Programs []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			State    string `json:"state"`
			Sessions int    `json:"session_count"`
			Error    string `json:"error"`
			Detail   *struct {
				Rows []struct {
					ID        string `json:"id"`
					StartTime string `json:"start_time"`
					State     string `json:"state"`
				} `json:"rows"`
				Drafts []struct {
					Key string `json:"key"`
				} `json:"drafts"`
			} `json:"detail"`
		} `json:"programs"`
		AddForm struct {
			Visible bool `json:"visible"`
			Form    struct {
				Sessions []json.RawMessage `json:"sessions"`
			} `json:"form"`
			Error string `json:"error"`
		} `json:"add_form"`
		Status string `json:"status"`
	} `json:"state"`
	Panel struct {
		BlindsStatus string  `json:"blinds_status"`
		RunStatus    string  `json:"run_status"`
		ScoreText    string  `json:"score_text"`
		ScoreRatio   float64 `json:"score_ratio"`
	} `json:"panel"`
	Error string `json:"error"`
}

func (b *browser) state(t *testing.T) stateResponse {
	t.Helper()
	rec := b.do(http.MethodGet, "/api/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_IndexSetsViewCookie(t *testing.T) {
	env := setupTestServer(t, Config{})
	seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}

	rec := b.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lawn")
	require.NotNil(t, b.cookie)
	assert.True(t, b.cookie.HttpOnly)

	first := b.cookie.Value
	b.do(http.MethodGet, "/", nil, "")
	if b.cookie.Value != first {
		t.Errorf("Expected view cookie %s to be kept, got %s", first, b.cookie.Value)
	}
	assert.Equal(t, 1, env.server.views.len())
}

func TestServer_ToggleShowsSessions(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")

	rec := b.post("/programs/"+p.ID.String()+"/toggle", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#program-"+p.ID.String(), rec.Header().Get("Location"))

	st := b.state(t)
	require.Len(t, st.State.Programs, 1)
	assert.Equal(t, "expanded", st.State.Programs[0].State)
	require.NotNil(t, st.State.Programs[0].Detail)
	require.Len(t, st.State.Programs[0].Detail.Rows, 1)
	assert.Equal(t, "06:00", st.State.Programs[0].Detail.Rows[0].StartTime)

	page := b.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, page.Body.String(), "06:00")

	b.post("/programs/"+p.ID.String()+"/toggle", nil)
	assert.Equal(t, "collapsed", b.state(t).State.Programs[0].State)
}

func TestServer_ViewsAreIndependent(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	alice := &browser{handler: env.server.Handler()}
	bob := &browser{handler: env.server.Handler()}
	alice.do(http.MethodGet, "/", nil, "")
	bob.do(http.MethodGet, "/", nil, "")

	alice.post("/programs/"+p.ID.String()+"/toggle", nil)

	assert.Equal(t, "expanded", alice.state(t).State.Programs[0].State)
	assert.Equal(t, "collapsed", bob.state(t).State.Programs[0].State)
}

func TestServer_ViewEviction(t *testing.T) {
	env := setupTestServer(t, Config{MaxViews: 1})
	seedLawn(env.backend)
	first := &browser{handler: env.server.Handler()}
	second := &browser{handler: env.server.Handler()}

	first.do(http.MethodGet, "/", nil, "")
	old := first.cookie.Value
	second.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, 1, env.server.views.len())

	first.do(http.MethodGet, "/", nil, "")
	if first.cookie.Value == old {
		t.Errorf("Expected a new view after eviction, got the old id %s", old)
	}
}

func TestServer_UnknownProgram(t *testing.T) {
	env := setupTestServer(t, Config{})
	b := &browser{handler: env.server.Handler()}

	rec := b.post("/programs/999/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = b.do(http.MethodGet, "/programs/999/delete", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_EditAndSave(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")

	b.post("/programs/"+p.ID.String()+"/edit", nil)
	assert.Equal(t, "editing", b.state(t).State.Programs[0].State)

	form := url.Values{
		"name":        {"Lawn"},
		"is_active":   {"false"},
		"frequency":   {"3"},
		"lower_score": {"1.5"},
		"upper_score": {"4.25"},
	}
	rec := b.post("/programs/"+p.ID.String()+"/save", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	stored, ok := env.backend.Program(p.ID)
	require.True(t, ok)
	assert.Equal(t, 3, stored.Frequency)
	assert.Equal(t, 1.5, stored.LowerScore)
	assert.Equal(t, 4.25, stored.UpperScore)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "collapsed", b.state(t).State.Programs[0].State)
}

func TestServer_SaveMalformedJSON(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")
	b.post("/programs/"+p.ID.String()+"/edit", nil)

	before := env.backend.RequestCount()
	form := url.Values{"name": {"Lawn"}, "frequency": {"often"}}
	rec := b.do(http.MethodPost, "/programs/"+p.ID.String()+"/save", form, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, before, env.backend.RequestCount())

	var out stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Error, "frequency")
	assert.Equal(t, "editing", out.State.Programs[0].State)
	assert.NotEmpty(t, out.State.Programs[0].Error)
}

func TestServer_DeleteConfirmation(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")
	path := "/programs/" + p.ID.String() + "/delete"

	rec := b.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dashboard.PromptDeleteProgram)

	before := env.backend.RequestCount()
	rec = b.post(path, url.Values{"confirm": {"no"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, before, env.backend.RequestCount())
	_, ok := env.backend.Program(p.ID)
	assert.True(t, ok)

	rec = b.post(path, url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok = env.backend.Program(p.ID)
	assert.False(t, ok)
	assert.Empty(t, b.state(t).State.Programs)
}

func TestServer_AddProgram(t *testing.T) {
	env := setupTestServer(t, Config{})
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")

	b.post("/add-form/toggle", nil)
	assert.True(t, b.state(t).State.AddForm.Visible)

	base := url.Values{"name": {"Lawn"}, "is_active": {"true"}, "frequency": {"2"}, "lower_score": {"1"}, "upper_score": {"4"}}
	b.post("/add-form/sessions", base)
	assert.Len(t, b.state(t).State.AddForm.Form.Sessions, 1)

	with := url.Values{}
	for k, v := range base {
		with[k] = v
	}
	with.Set("session_start_time", "06:00")
	with.Set("session_duration_minutes", "15")
	rec := b.post("/add-form/submit", with)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	st := b.state(t)
	require.Len(t, st.State.Programs, 1)
	assert.Equal(t, "Lawn", st.State.Programs[0].Name)
	assert.Equal(t, 1, st.State.Programs[0].Sessions)
	assert.Empty(t, st.State.AddForm.Error)

	b.post("/programs/"+st.State.Programs[0].ID+"/toggle", nil)
	st = b.state(t)
	require.NotNil(t, st.State.Programs[0].Detail)
	assert.Equal(t, "06:00", st.State.Programs[0].Detail.Rows[0].StartTime)
}

func TestServer_AddProgramFailure(t *testing.T) {
	env := setupTestServer(t, Config{})
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")
	b.post("/add-form/toggle", nil)

	env.backend.FailNext("POST /irrigation/program", 1)
	form := url.Values{"name": {"Lawn"}, "frequency": {"2"}, "lower_score": {"1"}, "upper_score": {"4"}}
	b.post("/add-form/submit", form)

	st := b.state(t)
	assert.Equal(t, dashboard.StatusAddFailed, st.State.AddForm.Error)
	assert.Empty(t, st.State.Programs)
}

func TestServer_SessionLifecycle(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")
	pid := p.ID.String()
	b.post("/programs/"+pid+"/toggle", nil)

	b.post("/programs/"+pid+"/drafts", nil)
	st := b.state(t)
	require.Len(t, st.State.Programs[0].Detail.Drafts, 1)
	key := st.State.Programs[0].Detail.Drafts[0].Key

	rec := b.post("/programs/"+pid+"/drafts/"+key+"/create", url.Values{"start_time": {"18:30"}, "zone1": {"4"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	st = b.state(t)
	require.NotNil(t, st.State.Programs[0].Detail)
	assert.Len(t, st.State.Programs[0].Detail.Rows, 2)
	assert.Empty(t, st.State.Programs[0].Detail.Drafts)

	sid := p.Sessions[0].ID.String()
	b.post("/programs/"+pid+"/sessions/"+sid+"/edit", nil)
	b.post("/programs/"+pid+"/sessions/"+sid+"/save", url.Values{"start_time": {"07:15"}, "zone1": {"12"}})
	stored, ok := env.backend.Program(p.ID)
	require.True(t, ok)
	var found bool
	for _, s := range stored.Sessions {
		if s.ID == p.Sessions[0].ID {
			found = true
			assert.Equal(t, "07:15", irrigation.FormatTimeOfDay(s.StartTime))
		}
	}
	assert.True(t, found)

	path := "/programs/" + pid + "/sessions/" + sid + "/delete"
	rec = b.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dashboard.PromptDeleteSession)

	b.post(path, url.Values{"confirm": {"yes"}})
	st = b.state(t)
	require.NotNil(t, st.State.Programs[0].Detail)
	assert.Len(t, st.State.Programs[0].Detail.Rows, 1)
}

func TestServer_PanelActions(t *testing.T) {
	env := setupTestServer(t, Config{})
	b := &browser{handler: env.server.Handler()}

	rec := b.post("/blinds", url.Values{"left_blind": {"up"}, "right_blind": {"down"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, remote.BlindUp, env.backend.Blinds().LeftBlind)
	assert.Equal(t, dashboard.StatusCommandSent, b.state(t).Panel.BlindsStatus)

	b.post("/blinds/automation", url.Values{"enabled": {"true"}})
	b.post("/irrigation/automation", url.Values{"enabled": {"true"}})
	blinds, irr := env.backend.Automation()
	assert.True(t, blinds)
	assert.True(t, irr)

	b.post("/irrigation/run", url.Values{"zone1": {"5"}, "zone2": {"x"}, "is_active": {"on"}})
	run := env.backend.LastRun()
	require.NotNil(t, run)
	assert.Equal(t, 5, run.Zone1)
	assert.Equal(t, 0, run.Zone2)
	assert.Equal(t, remote.IrrigationOn, run.IsActive)

	env.backend.SetScoreBody(`{"score": 7.5}`)
	b.post("/score/refresh", nil)
	st := b.state(t)
	assert.Equal(t, "5.00", st.Panel.ScoreText)
	assert.Equal(t, 1.0, st.Panel.ScoreRatio)
}

func TestServer_InvalidBlindsJSON(t *testing.T) {
	env := setupTestServer(t, Config{})
	b := &browser{handler: env.server.Handler()}

	rec := b.do(http.MethodPost, "/blinds", url.Values{"left_blind": {"sideways"}, "right_blind": {"up"}}, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, env.backend.Requests(), "POST /blinds")
}

func TestServer_History(t *testing.T) {
	env := setupTestServer(t, Config{})
	p := seedLawn(env.backend)
	b := &browser{handler: env.server.Handler()}
	b.do(http.MethodGet, "/", nil, "")

	b.post("/programs/"+p.ID.String()+"/delete", url.Values{"confirm": {"no"}})
	b.post("/blinds", url.Values{"left_blind": {"up"}, "right_blind": {"up"}})

	rec := b.do(http.MethodGet, "/api/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Entries []storage.ActionEntry `json:"entries"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Count)

	rec = b.do(http.MethodGet, "/api/history?outcome=declined", nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "program.delete", out.Entries[0].Kind)
	assert.Equal(t, storage.SourceWeb, out.Entries[0].Source)

	rec = b.do(http.MethodGet, "/api/history?outcome=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := env.store.Actions().Query(context.Background(), storage.ActionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestServer_Health(t *testing.T) {
	env := setupTestServer(t, Config{})
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Zero(t, env.backend.RequestCount())
}

func TestServer_RateLimit(t *testing.T) {
	env := setupTestServer(t, Config{RateLimit: 2, RateLimitWindow: time.Hour})
	b := &browser{handler: env.server.Handler()}

	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/api/state", nil, "").Code)
	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/api/state", nil, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, b.do(http.MethodGet, "/api/state", nil, "").Code)

	// health is not limited
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	env := setupTestServer(t, Config{AllowedOrigins: []string{"http://panel.local"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://panel.local", rec.Header().Get("Access-Control-Allow-Origin"))
}
