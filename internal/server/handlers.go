package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

const recentActions = 10

// page is the data handed to the templates.
type page struct {
	Title    string
	Snapshot dashboard.Snapshot
	Panel    dashboard.PanelState
	Recent   []storage.ActionEntry
	Confirm  *confirmation
}

type confirmation struct {
	Prompt string
	Action string
}

// statusFor maps an action error to an HTTP status for JSON clients.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrInFlight), errors.Is(err, dashboard.ErrWrongState):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNotConfirmed):
		return http.StatusOK
	case errors.Is(err, irrigation.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// respond finishes a form action. Browsers are sent back to the page,
// which already shows any failure inline; JSON clients get the state and a
// status code.
func (s *Server) respond(c *gin.Context, err error, anchor string) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		body := gin.H{"state": view(c).Snapshot(), "panel": s.panel.State()}
		if err != nil {
			body["error"] = err.Error()
		}
		c.JSON(statusFor(err), body)
		return
	}

	switch {
	case errors.Is(err, dashboard.ErrNotFound):
		c.String(http.StatusNotFound, "Not found")
	case errors.Is(err, dashboard.ErrInFlight):
		c.String(http.StatusConflict, "Action already in progress")
	default:
		location := "/"
		if anchor != "" {
			location += "#" + anchor
		}
		c.Redirect(http.StatusSeeOther, location)
	}
}

func programID(c *gin.Context) irrigation.ID {
	return irrigation.ID(c.Param("id"))
}

func sessionID(c *gin.Context) irrigation.ID {
	return irrigation.ID(c.Param("sid"))
}

func programAnchor(c *gin.Context) string {
	return "program-" + c.Param("id")
}

func (s *Server) render(c *gin.Context, p page) {
	p.Snapshot = view(c).Snapshot()
	p.Panel = s.panel.State()
	c.HTML(http.StatusOK, templateName(p), p)
}

func templateName(p page) string {
	if p.Confirm != nil {
		return "confirm.html"
	}
	return "index.html"
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"open_views": s.views.len(),
	})
}

func (s *Server) handleIndex(c *gin.Context) {
	recent, err := s.recorder.Recent(c.Request.Context(), storage.ActionFilter{Limit: recentActions})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read recent actions")
	}
	s.render(c, page{Title: "Dashboard", Recent: recent})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state": view(c).Snapshot(),
		"panel": s.panel.State(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	filter := storage.ActionFilter{
		Source: storage.Source(c.Query("source")),
		Kind:   c.Query("kind"),
		Target: c.Query("target"),
		Limit:  50,
	}
	if raw := c.Query("outcome"); raw != "" {
		outcome, err := storage.ParseOutcome(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Outcome = outcome
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}

	entries, err := s.recorder.Recent(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query journal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query journal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Program rows

func (s *Server) handleReload(c *gin.Context) {
	s.respond(c, view(c).Load(c.Request.Context()), "")
}

func (s *Server) handleToggle(c *gin.Context) {
	s.respond(c, view(c).Toggle(c.Request.Context(), programID(c)), programAnchor(c))
}

func (s *Server) handleEdit(c *gin.Context) {
	_, err := view(c).Edit(programID(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleSave(c *gin.Context) {
	form := irrigation.ProgramForm{
		Name:       c.PostForm("name"),
		IsActive:   c.PostForm("is_active"),
		Frequency:  c.PostForm("frequency"),
		LowerScore: c.PostForm("lower_score"),
		UpperScore: c.PostForm("upper_score"),
	}
	s.respond(c, view(c).Save(c.Request.Context(), programID(c), form), programAnchor(c))
}

func (s *Server) handleCancel(c *gin.Context) {
	s.respond(c, view(c).Cancel(c.Request.Context(), programID(c)), programAnchor(c))
}

func (s *Server) handleDeleteConfirm(c *gin.Context) {
	if _, ok := view(c).Snapshot().Program(programID(c)); !ok {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	s.render(c, page{
		Title: "Delete program",
		Confirm: &confirmation{
			Prompt: dashboard.PromptDeleteProgram,
			Action: c.Request.URL.Path,
		},
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	err := view(c).Delete(c.Request.Context(), programID(c), answer(c))
	s.respond(c, err, "")
}

// answer turns the confirmation page's button into a Confirmer.
func answer(c *gin.Context) dashboard.Confirmer {
	if irrigation.ParseBool(c.PostForm("confirm")) {
		return dashboard.Confirmed
	}
	return dashboard.Declined
}

// Create-program form

func (s *Server) handleAddFormToggle(c *gin.Context) {
	view(c).ToggleAddForm()
	s.respond(c, nil, "add-program")
}

func (s *Server) handleAddFormSessions(c *gin.Context) {
	list := view(c)
	list.SetAddForm(newProgramForm(c))

	var err error
	if raw, ok := c.GetQuery("remove"); ok {
		i, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.String(http.StatusBadRequest, "remove must be an index")
			return
		}
		err = list.RemoveFormSession(i)
	} else {
		list.AddFormSession()
	}
	s.respond(c, err, "add-program")
}

func (s *Server) handleAddFormSubmit(c *gin.Context) {
	s.respond(c, view(c).SubmitAddForm(c.Request.Context(), newProgramForm(c)), "add-program")
}

// newProgramForm reads the create form, pairing the repeated session inputs
// by position.
func newProgramForm(c *gin.Context) irrigation.NewProgramForm {
	form := irrigation.NewProgramForm{
		Name:       c.PostForm("name"),
		IsActive:   c.PostForm("is_active"),
		Frequency:  c.PostForm("frequency"),
		LowerScore: c.PostForm("lower_score"),
		UpperScore: c.PostForm("upper_score"),
	}
	starts := c.PostFormArray("session_start_time")
	minutes := c.PostFormArray("session_duration_minutes")
	for i, start := range starts {
		session := irrigation.InitialSessionForm{StartTime: start}
		if i < len(minutes) {
			session.DurationMinutes = minutes[i]
		}
		form.Sessions = append(form.Sessions, session)
	}
	return form
}

// Session rows

func sessionForm(c *gin.Context) irrigation.SessionForm {
	return irrigation.SessionForm{
		StartTime:     c.PostForm("start_time"),
		Zone1:         c.PostForm("zone1"),
		Zone2:         c.PostForm("zone2"),
		Zone3:         c.PostForm("zone3"),
		ZoneConnected: c.PostForm("zone_connected"),
	}
}

func (s *Server) handleAddDraft(c *gin.Context) {
	_, err := view(c).AddSessionDraft(programID(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleCreateDraft(c *gin.Context) {
	err := view(c).CreateSession(c.Request.Context(), programID(c), c.Param("key"), sessionForm(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleCancelDraft(c *gin.Context) {
	s.respond(c, view(c).CancelSessionDraft(programID(c), c.Param("key")), programAnchor(c))
}

func (s *Server) handleEditSession(c *gin.Context) {
	_, err := view(c).EditSession(programID(c), sessionID(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleSaveSession(c *gin.Context) {
	err := view(c).SaveSession(c.Request.Context(), programID(c), sessionID(c), sessionForm(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleCancelSession(c *gin.Context) {
	err := view(c).CancelSession(c.Request.Context(), programID(c), sessionID(c))
	s.respond(c, err, programAnchor(c))
}

func (s *Server) handleDeleteSessionConfirm(c *gin.Context) {
	p, ok := view(c).Snapshot().Program(programID(c))
	if !ok || p.Detail == nil || !hasSession(p.Detail, c.Param("sid")) {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	s.render(c, page{
		Title: "Delete session",
		Confirm: &confirmation{
			Prompt: dashboard.PromptDeleteSession,
			Action: c.Request.URL.Path,
		},
	})
}

func hasSession(detail *dashboard.SessionsView, id string) bool {
	for _, row := range detail.Rows {
		if row.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	err := view(c).DeleteSession(c.Request.Context(), programID(c), sessionID(c), answer(c))
	s.respond(c, err, programAnchor(c))
}

// Control panel

func (s *Server) handleBlinds(c *gin.Context) {
	err := s.panel.SendBlinds(c.Request.Context(), c.PostForm("left_blind"), c.PostForm("right_blind"))
	s.respond(c, err, "blinds")
}

func (s *Server) handleBlindsAutomation(c *gin.Context) {
	enabled := irrigation.ParseBool(c.PostForm("enabled"))
	s.respond(c, s.panel.SetBlindsAutomation(c.Request.Context(), enabled), "automation")
}

func (s *Server) handleIrrigationAutomation(c *gin.Context) {
	enabled := irrigation.ParseBool(c.PostForm("enabled"))
	s.respond(c, s.panel.SetIrrigationAutomation(c.Request.Context(), enabled), "automation")
}

func (s *Server) handleRunIrrigation(c *gin.Context) {
	form := dashboard.RunForm{
		Zone1:         c.PostForm("zone1"),
		Zone2:         c.PostForm("zone2"),
		Zone3:         c.PostForm("zone3"),
		ZoneConnected: c.PostForm("zone_connected"),
		Active:        irrigation.ParseBool(c.PostForm("is_active")),
	}
	s.respond(c, s.panel.RunIrrigation(c.Request.Context(), form), "irrigation")
}

func (s *Server) handleScoreRefresh(c *gin.Context) {
	s.respond(c, s.panel.RefreshScore(c.Request.Context()), "score")
}
