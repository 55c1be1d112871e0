package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/scarlet-home/scarletdash/internal/remote/remotetest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default between runs of the
// shared command tree.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Value.Type() != "stringArray" {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs scarletdash against backend with stdin and returns stdout.
func execute(t *testing.T, backend *remotetest.Backend, stdin string, args ...string) (string, error) {
	t.Helper()

	if backend != nil {
		t.Setenv("SCARLETDASH_BACKEND_BASE_URL", backend.URL())
	}
	t.Setenv("SCARLETDASH_STORAGE_TYPE", "memory")

	resetFlags(rootCmd)
	programSessions = nil
	configPath = ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedLawn(b *remotetest.Backend) irrigation.Program {
	zone := 10.0
	return b.Seed(irrigation.Program{
		Name:       "Lawn",
		IsActive:   true,
		Frequency:  2,
		LowerScore: 1,
		UpperScore: 4,
		Sessions:   []irrigation.Session{{StartTime: "06:00:00", Zone1: &zone}},
	})
}

func countRequests(b *remotetest.Backend, route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r == route {
			n++
		}
	}
	return n
}

func TestProgramsCreateListShow(t *testing.T) {
	backend := remotetest.New(t)

	out, err := execute(t, backend, "", "programs", "create",
		"--name", "Lawn", "--frequency", "2", "--lower", "1", "--upper", "4", "--session", "06:00=15")
	require.NoError(t, err)
	assert.Contains(t, out, `Created program "Lawn" with 1 session(s).`)

	out, err = execute(t, backend, "", "programs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Lawn")

	out, err = execute(t, backend, "", "programs", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "06:00")
	assert.NotContains(t, out, "06:00:00")
}

func TestProgramsCreateInvalid(t *testing.T) {
	backend := remotetest.New(t)

	_, err := execute(t, backend, "", "programs", "create",
		"--name", "Lawn", "--frequency", "often", "--lower", "1", "--upper", "4")
	require.Error(t, err)
	assert.Zero(t, countRequests(backend, "POST /irrigation/program"))
}

func TestProgramsUpdate(t *testing.T) {
	backend := remotetest.New(t)
	p := seedLawn(backend)

	out, err := execute(t, backend, "", "programs", "update", p.ID.String(),
		"--frequency", "3", "--lower", "1.5", "--upper", "4.25")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated program")

	stored, ok := backend.Program(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Lawn", stored.Name)
	assert.Equal(t, 3, stored.Frequency)
	assert.Equal(t, 1.5, stored.LowerScore)
	assert.Equal(t, 4.25, stored.UpperScore)
}

func TestProgramsDelete(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		backend := remotetest.New(t)
		p := seedLawn(backend)

		out, err := execute(t, backend, "n\n", "programs", "delete", p.ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Cancelled.")
		assert.Zero(t, countRequests(backend, "POST /irrigation/program/"+p.ID.String()+"/delete"))
	})

	t.Run("confirmed", func(t *testing.T) {
		backend := remotetest.New(t)
		p := seedLawn(backend)

		out, err := execute(t, backend, "y\n", "programs", "delete", p.ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted program")
		_, ok := backend.Program(p.ID)
		assert.False(t, ok)
	})

	t.Run("assume yes", func(t *testing.T) {
		backend := remotetest.New(t)
		p := seedLawn(backend)

		_, err := execute(t, backend, "", "programs", "delete", "--yes", p.ID.String())
		require.NoError(t, err)
		_, ok := backend.Program(p.ID)
		assert.False(t, ok)
	})
}

func TestSessionsAddUpdateDelete(t *testing.T) {
	backend := remotetest.New(t)
	p := seedLawn(backend)
	pid := p.ID.String()

	_, err := execute(t, backend, "", "sessions", "add", pid, "--start", "19:30", "--zone2", "5")
	require.NoError(t, err)
	stored, _ := backend.Program(p.ID)
	require.Len(t, stored.Sessions, 2)

	sid := p.Sessions[0].ID.String()
	_, err = execute(t, backend, "", "sessions", "update", pid, sid, "--zone3", "7")
	require.NoError(t, err)
	stored, _ = backend.Program(p.ID)
	for _, s := range stored.Sessions {
		if s.ID == p.Sessions[0].ID {
			require.NotNil(t, s.Zone3)
			assert.Equal(t, 7.0, *s.Zone3)
			require.NotNil(t, s.Zone1)
			assert.Equal(t, 10.0, *s.Zone1)
		}
	}

	_, err = execute(t, backend, "", "sessions", "delete", "-y", pid, sid)
	require.NoError(t, err)
	stored, _ = backend.Program(p.ID)
	assert.Len(t, stored.Sessions, 1)
}

func TestSessionsAddRequiresStart(t *testing.T) {
	backend := remotetest.New(t)
	p := seedLawn(backend)

	_, err := execute(t, backend, "", "sessions", "add", p.ID.String(), "--zone1", "5")
	require.Error(t, err)
	assert.Zero(t, countRequests(backend, "POST /irrigation/program/"+p.ID.String()+"/session/create"))
}

func TestBlinds(t *testing.T) {
	backend := remotetest.New(t)

	out, err := execute(t, backend, "", "blinds", "up", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "Command sent.")
	assert.Equal(t, remote.BlindCommand{LeftBlind: remote.BlindUp, RightBlind: remote.BlindDown}, backend.Blinds())

	_, err = execute(t, backend, "", "blinds", "sideways", "up")
	require.Error(t, err)
	assert.Equal(t, 1, countRequests(backend, "POST /blinds"))

	backend.FailNext("POST /blinds", 1)
	out, err = execute(t, backend, "", "blinds", "down", "down")
	require.Error(t, err)
	assert.Contains(t, out, "Error sending command.")
}

func TestAutomation(t *testing.T) {
	backend := remotetest.New(t)

	out, err := execute(t, backend, "", "automation", "irrigation", "on")
	require.NoError(t, err)
	assert.Contains(t, out, "Irrigation automation: on")
	assert.Contains(t, out, "Blinds automation:     off")

	blinds, irr := backend.Automation()
	assert.False(t, blinds)
	assert.True(t, irr)

	_, err = execute(t, backend, "", "automation", "irrigation")
	require.Error(t, err)
	_, err = execute(t, backend, "", "automation", "garage", "on")
	require.Error(t, err)
}

func TestIrrigate(t *testing.T) {
	backend := remotetest.New(t)

	out, err := execute(t, backend, "", "irrigate", "--zone1", "10", "--zone3", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Irrigation started.")

	run := backend.LastRun()
	require.NotNil(t, run)
	assert.Equal(t, 10, run.Zone1)
	assert.Equal(t, 0, run.Zone3)
	assert.Equal(t, remote.IrrigationOn, run.IsActive)

	out, err = execute(t, backend, "", "irrigate", "--off")
	require.NoError(t, err)
	assert.Contains(t, out, "Irrigation stopped.")
	assert.Equal(t, remote.IrrigationOff, backend.LastRun().IsActive)
}

func TestScore(t *testing.T) {
	backend := remotetest.New(t)
	backend.SetScoreBody(`{"score": 7.5}`)

	out, err := execute(t, backend, "", "score")
	require.NoError(t, err)
	assert.Contains(t, out, "5.00 / 5")
	assert.Contains(t, out, "[####################]")

	backend.SetScoreBody("not a number")
	out, err = execute(t, backend, "", "score")
	require.Error(t, err)
	assert.Contains(t, out, "Failed to load score")
}

func TestCheck(t *testing.T) {
	backend := remotetest.New(t)
	seedLawn(backend)

	out, err := execute(t, backend, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "1 program(s)")
	assert.NotContains(t, out, "FAIL")

	backend.FailNext("GET /open_weather/score", 1)
	out, err = execute(t, backend, "", "check")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, err.Error(), "1 of 4")
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scarletdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  base_url: http://scarlet.lan:8000
dashboard:
  prot: 8081
`), 0o600))

	out, err := execute(t, nil, "", "--config", path, "validate", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "dashboard.prot")
	assert.Contains(t, out, "base_url = http://scarlet.lan:8000  (default: http://localhost:8000)")
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input    string
		yes      bool
		expected bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", false, false},
		{"\n", false, false},
		{"", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		var prompt bytes.Buffer
		c := promptConfirmer(strings.NewReader(tt.input), &prompt, tt.yes)
		ok, err := c.Confirm(context.Background(), "Delete?")
		require.NoError(t, err)
		if ok != tt.expected {
			t.Errorf("Expected %v for input %q, got %v", tt.expected, tt.input, ok)
		}
	}
}
