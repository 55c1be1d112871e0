package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/metrics"
)

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// Config holds the backend client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the scarlet backend REST surface.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
}

// New creates a backend client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend base URL scheme: %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "scarletdash"
	}

	return &Client{
		base:      base,
		http:      &http.Client{},
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger.With().Str("component", "remote").Logger(),
	}, nil
}

// BaseURL returns the backend address the client targets.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListPrograms fetches every irrigation program.
func (c *Client) ListPrograms(ctx context.Context) ([]irrigation.Program, error) {
	var programs []irrigation.Program
	if err := c.do(ctx, "program.list", http.MethodGet, "/irrigation/program/all", nil, &programs); err != nil {
		return nil, err
	}
	if programs == nil {
		programs = []irrigation.Program{}
	}
	return programs, nil
}

// GetProgram fetches one program including its sessions.
func (c *Client) GetProgram(ctx context.Context, id irrigation.ID) (irrigation.Program, error) {
	var program irrigation.Program
	err := c.do(ctx, "program.get", http.MethodGet, "/irrigation/program/"+escape(id), nil, &program)
	return program, err
}

// CreateProgram posts a new program with its initial sessions.
func (c *Client) CreateProgram(ctx context.Context, draft irrigation.ProgramDraft) (irrigation.Program, error) {
	var program irrigation.Program
	err := c.do(ctx, "program.create", http.MethodPost, "/irrigation/program", draft, &program)
	return program, err
}

// UpdateProgram sends a partial update for one program.
func (c *Client) UpdateProgram(ctx context.Context, id irrigation.ID, patch irrigation.ProgramPatch) (irrigation.Program, error) {
	var program irrigation.Program
	err := c.do(ctx, "program.update", http.MethodPatch, "/irrigation/program/"+escape(id), patch, &program)
	return program, err
}

// DeleteProgram removes a program. The backend cascades to its sessions.
func (c *Client) DeleteProgram(ctx context.Context, id irrigation.ID) error {
	return c.do(ctx, "program.delete", http.MethodPost, "/irrigation/program/"+escape(id)+"/delete", nil, nil)
}

// CreateSession adds a session to a program.
func (c *Client) CreateSession(ctx context.Context, programID irrigation.ID, draft irrigation.SessionDraft) (irrigation.Session, error) {
	var session irrigation.Session
	err := c.do(ctx, "session.create", http.MethodPost, "/irrigation/program/"+escape(programID)+"/session/create", draft, &session)
	return session, err
}

// UpdateSession sends a partial update for one session.
func (c *Client) UpdateSession(ctx context.Context, sessionID irrigation.ID, patch irrigation.SessionPatch) (irrigation.Session, error) {
	var session irrigation.Session
	err := c.do(ctx, "session.update", http.MethodPatch, "/irrigation/program/session/"+escape(sessionID), patch, &session)
	return session, err
}

// DeleteSession removes one session from a program.
func (c *Client) DeleteSession(ctx context.Context, programID, sessionID irrigation.ID) error {
	path := "/irrigation/program/" + escape(programID) + "/session/" + escape(sessionID) + "/delete"
	return c.do(ctx, "session.delete", http.MethodPost, path, nil, nil)
}

// BlindsAutomation reads the blinds automation flag.
func (c *Client) BlindsAutomation(ctx context.Context) (bool, error) {
	return c.getAutomation(ctx, "blinds.automation", "/blinds/automation")
}

// SetBlindsAutomation writes the blinds automation flag.
func (c *Client) SetBlindsAutomation(ctx context.Context, enabled bool) error {
	return c.do(ctx, "blinds.automation.set", http.MethodPost, "/blinds/automation", Automation{Automation: enabled}, nil)
}

// IrrigationAutomation reads the irrigation automation flag.
func (c *Client) IrrigationAutomation(ctx context.Context) (bool, error) {
	return c.getAutomation(ctx, "irrigation.automation", "/irrigation/automation")
}

// SetIrrigationAutomation writes the irrigation automation flag.
func (c *Client) SetIrrigationAutomation(ctx context.Context, enabled bool) error {
	return c.do(ctx, "irrigation.automation.set", http.MethodPost, "/irrigation/automation", Automation{Automation: enabled}, nil)
}

// SendBlinds commands both blinds.
func (c *Client) SendBlinds(ctx context.Context, cmd BlindCommand) error {
	return c.do(ctx, "blinds.command", http.MethodPost, "/blinds", cmd, nil)
}

// RunIrrigation starts or stops a manual irrigation run.
func (c *Client) RunIrrigation(ctx context.Context, req RunRequest) error {
	return c.do(ctx, "irrigation.run", http.MethodPost, "/irrigation", req, nil)
}

// Score fetches the weather score.
func (c *Client) Score(ctx context.Context) (float64, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "weather.score", http.MethodGet, "/open_weather/score", nil, &raw); err != nil {
		return 0, err
	}
	return DecodeScore(raw)
}

func (c *Client) getAutomation(ctx context.Context, endpoint, path string) (bool, error) {
	var raw json.RawMessage
	if err := c.do(ctx, endpoint, http.MethodGet, path, nil, &raw); err != nil {
		return false, err
	}
	return DecodeAutomation(raw)
}

// do sends one request. A nil out discards the body; a *json.RawMessage out
// receives the raw body, even when it is not valid JSON.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, method, Classify(err)).Inc()
		metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		event := c.logger.Debug()
		if err != nil {
			event = c.logger.Warn().Err(err)
		}
		event.
			Str("endpoint", endpoint).
			Str("method", method).
			Str("path", path).
			Dur("duration", time.Since(start)).
			Msg("Backend request")
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %w", ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: text}
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	return nil
}

// DecodeAutomation accepts either a bare JSON boolean or {"automation": bool}.
func DecodeAutomation(raw []byte) (bool, error) {
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}
	var wrapped struct {
		Automation *bool `json:"automation"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Automation == nil {
		return false, fmt.Errorf("%w: automation state %q", ErrDecode, truncate(raw))
	}
	return *wrapped.Automation, nil
}

// DecodeScore accepts a raw JSON number, {"score": n}, {"value": n}, a
// numeric JSON string or a plain-text float. None of the shapes is treated
// as authoritative.
func DecodeScore(raw []byte) (float64, error) {
	trimmed := bytes.TrimSpace(raw)

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		f, perr := strconv.ParseFloat(string(trimmed), 64)
		if perr != nil {
			return 0, fmt.Errorf("%w: score %q", ErrDecode, truncate(raw))
		}
		return f, nil
	}

	if obj, ok := v.(map[string]interface{}); ok {
		if s, ok := obj["score"]; ok && s != nil {
			v = s
		} else if s, ok := obj["value"]; ok && s != nil {
			v = s
		}
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: score %q", ErrDecode, truncate(raw))
}

func escape(id irrigation.ID) string {
	return url.PathEscape(string(id))
}

func truncate(raw []byte) string {
	if len(raw) > 64 {
		return string(raw[:64]) + "…"
	}
	return string(raw)
}
