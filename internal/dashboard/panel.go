package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/metrics"
	"github.com/scarlet-home/scarletdash/internal/remote"
)

// Panel status lines.
const (
	StatusCommandSent   = "Command sent."
	StatusCommandFailed = "Error sending command."
	StatusNetworkError  = "Network error."
	StatusRunStarted    = "Irrigation started."
	StatusRunStopped    = "Irrigation stopped."
	StatusScoreFailed   = "Failed to load score"
	StatusAutomationErr = "Failed to load automation state."
)

// Score gauge bounds.
const (
	ScoreMin = 0.0
	ScoreMax = 5.0
)

// RunForm holds the raw values of the manual irrigation form.
type RunForm struct {
	Zone1         string
	Zone2         string
	Zone3         string
	ZoneConnected string
	Active        bool
}

// Request coerces the form. Unparsable durations become 0.
func (f RunForm) Request() remote.RunRequest {
	state := remote.IrrigationOff
	if f.Active {
		state = remote.IrrigationOn
	}
	return remote.RunRequest{
		Zone1:         irrigation.ParseIntOrZero(f.Zone1),
		Zone2:         irrigation.ParseIntOrZero(f.Zone2),
		Zone3:         irrigation.ParseIntOrZero(f.Zone3),
		ZoneConnected: irrigation.ParseIntOrZero(f.ZoneConnected),
		IsActive:      state,
	}
}

// PanelState is a copy of the panel for rendering.
type PanelState struct {
	BlindsAutomation     bool              `json:"blinds_automation"`
	IrrigationAutomation bool              `json:"irrigation_automation"`
	AutomationLoaded     bool              `json:"automation_loaded"`
	AutomationError      string            `json:"automation_error,omitempty"`
	LeftBlind            remote.BlindState `json:"left_blind"`
	RightBlind           remote.BlindState `json:"right_blind"`
	BlindsStatus         string            `json:"blinds_status,omitempty"`
	BlindsOK             bool              `json:"blinds_ok"`
	RunStatus            string            `json:"run_status,omitempty"`
	Score                float64           `json:"score"`
	ScoreText            string            `json:"score_text"`
	ScoreRatio           float64           `json:"score_ratio"`
	ScoreUpdated         time.Time         `json:"score_updated"`
	ScoreError           string            `json:"score_error,omitempty"`
}

// Panel drives the automation toggles, blinds command, manual irrigation run
// and weather score gauge. One Panel is shared by every view.
type Panel struct {
	backend PanelBackend
	guard   *Guard
	journal Journal
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state PanelState
}

// NewPanel creates a panel with blinds in the "nostate" position.
func NewPanel(backend PanelBackend, opts Options) *Panel {
	guard := opts.Guard
	if guard == nil {
		guard = NewGuard()
	}
	return &Panel{
		backend: backend,
		guard:   guard,
		journal: opts.Journal,
		logger:  opts.Logger.With().Str("component", "panel").Logger(),
		now:     time.Now,
		state: PanelState{
			LeftBlind:  remote.BlindNoState,
			RightBlind: remote.BlindNoState,
			ScoreText:  "-",
		},
	}
}

// State copies the current panel state.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoadAutomation reads both automation flags.
func (p *Panel) LoadAutomation(ctx context.Context) error {
	blinds, berr := p.backend.BlindsAutomation(ctx)
	irr, ierr := p.backend.IrrigationAutomation(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if berr == nil {
		p.state.BlindsAutomation = blinds
	}
	if ierr == nil {
		p.state.IrrigationAutomation = irr
	}
	if err := errors.Join(berr, ierr); err != nil {
		p.state.AutomationError = StatusAutomationErr
		p.logger.Error().Err(err).Msg("Failed to load automation state")
		return fmt.Errorf("failed to load automation state: %w", err)
	}
	p.state.AutomationLoaded = true
	p.state.AutomationError = ""
	return nil
}

// SetBlindsAutomation writes the blinds automation flag.
func (p *Panel) SetBlindsAutomation(ctx context.Context, enabled bool) error {
	return p.setAutomation(ctx, "blinds.automation", enabled, p.backend.SetBlindsAutomation, func(s *PanelState) {
		s.BlindsAutomation = enabled
	})
}

// SetIrrigationAutomation writes the irrigation automation flag.
func (p *Panel) SetIrrigationAutomation(ctx context.Context, enabled bool) error {
	return p.setAutomation(ctx, "irrigation.automation", enabled, p.backend.SetIrrigationAutomation, func(s *PanelState) {
		s.IrrigationAutomation = enabled
	})
}

func (p *Panel) setAutomation(ctx context.Context, kind string, enabled bool, send func(context.Context, bool) error, apply func(*PanelState)) (err error) {
	release, err := p.guard.Acquire(kind, "")
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { finish(ctx, p.journal, kind, strconv.FormatBool(enabled), start, err) }()

	if err := send(ctx, enabled); err != nil {
		p.logger.Error().Err(err).Str("kind", kind).Bool("enabled", enabled).Msg("Failed to set automation")
		return fmt.Errorf("failed to set %s: %w", kind, err)
	}

	p.mu.Lock()
	apply(&p.state)
	p.mu.Unlock()
	p.logger.Info().Str("kind", kind).Bool("enabled", enabled).Msg("Automation updated")
	return nil
}

// SendBlinds commands both blinds. Each side is up, down or nostate.
func (p *Panel) SendBlinds(ctx context.Context, left, right string) (err error) {
	release, err := p.guard.Acquire("blinds.command", "")
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	target := left + "/" + right
	defer func() { finish(ctx, p.journal, "blinds.command", target, start, err) }()

	l, err := remote.ParseBlindState(left)
	if err != nil {
		return &irrigation.ValidationError{Field: "left_blind", Value: left, Reason: "must be up, down, or nostate"}
	}
	r, err := remote.ParseBlindState(right)
	if err != nil {
		return &irrigation.ValidationError{Field: "right_blind", Value: right, Reason: "must be up, down, or nostate"}
	}

	err = p.backend.SendBlinds(ctx, remote.BlindCommand{LeftBlind: l, RightBlind: r})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.LeftBlind, p.state.RightBlind = l, r
	switch {
	case err == nil:
		p.state.BlindsStatus = StatusCommandSent
		p.state.BlindsOK = true
		return nil
	case remote.Classify(err) == remote.ClassTransport:
		p.state.BlindsStatus = StatusNetworkError
	default:
		p.state.BlindsStatus = StatusCommandFailed
	}
	p.state.BlindsOK = false
	p.logger.Error().Err(err).Str("left", string(l)).Str("right", string(r)).Msg("Failed to send blinds command")
	return fmt.Errorf("failed to send blinds command: %w", err)
}

// RunIrrigation starts or stops a manual run.
func (p *Panel) RunIrrigation(ctx context.Context, form RunForm) (err error) {
	release, err := p.guard.Acquire("irrigation.run", "")
	if err != nil {
		return err
	}
	defer release()

	req := form.Request()
	start := time.Now()
	defer func() { finish(ctx, p.journal, "irrigation.run", string(req.IsActive), start, err) }()

	if err := p.backend.RunIrrigation(ctx, req); err != nil {
		p.mu.Lock()
		if remote.Classify(err) == remote.ClassTransport {
			p.state.RunStatus = StatusNetworkError
		} else {
			p.state.RunStatus = StatusCommandFailed
		}
		p.mu.Unlock()
		p.logger.Error().Err(err).Msg("Failed to run irrigation")
		return fmt.Errorf("failed to run irrigation: %w", err)
	}

	p.mu.Lock()
	if req.IsActive == remote.IrrigationOn {
		p.state.RunStatus = StatusRunStarted
	} else {
		p.state.RunStatus = StatusRunStopped
	}
	p.mu.Unlock()
	p.logger.Info().
		Int("zone1", req.Zone1).
		Int("zone2", req.Zone2).
		Int("zone3", req.Zone3).
		Int("zone_connected", req.ZoneConnected).
		Str("is_active", string(req.IsActive)).
		Msg("Manual irrigation sent")
	return nil
}

// RefreshScore fetches the weather score and clamps it to the gauge range.
// On failure the previous value stays on the gauge.
func (p *Panel) RefreshScore(ctx context.Context) error {
	score, err := p.backend.Score(ctx)
	if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
		err = fmt.Errorf("%w: score is not finite", remote.ErrDecode)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state.ScoreError = StatusScoreFailed
		p.logger.Error().Err(err).Msg("Failed to load score")
		return fmt.Errorf("failed to load score: %w", err)
	}

	s := ClampScore(score)
	p.state.Score = s
	p.state.ScoreText = strconv.FormatFloat(s, 'f', 2, 64)
	p.state.ScoreRatio = (s - ScoreMin) / (ScoreMax - ScoreMin)
	p.state.ScoreUpdated = p.now()
	p.state.ScoreError = ""
	metrics.WeatherScore.Set(s)
	return nil
}

// ClampScore limits a score to the gauge range.
func ClampScore(v float64) float64 {
	return math.Max(ScoreMin, math.Min(ScoreMax, v))
}
