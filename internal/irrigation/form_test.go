package irrigation

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestProgramFormPatch_Coercion(t *testing.T) {
	form := ProgramForm{
		Name:       "Lawn",
		IsActive:   "true",
		Frequency:  "3",
		LowerScore: "1.5",
		UpperScore: "4.25",
	}

	patch, err := form.Patch()
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	body, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	tests := []struct {
		field string
		want  float64
	}{
		{"frequency", 3},
		{"lower_score", 1.5},
		{"upper_score", 4.25},
	}
	for _, tt := range tests {
		got, ok := decoded[tt.field].(float64)
		if !ok {
			t.Errorf("Expected %s to be a JSON number, got %T", tt.field, decoded[tt.field])
			continue
		}
		if got != tt.want {
			t.Errorf("Expected %s = %v, got %v", tt.field, tt.want, got)
		}
	}
	if active, ok := decoded["is_active"].(bool); !ok || !active {
		t.Errorf("Expected is_active to be boolean true, got %v", decoded["is_active"])
	}
}

func TestProgramFormPatch_RejectsMalformedNumbers(t *testing.T) {
	_, err := ProgramForm{Name: "x", Frequency: "three"}.Patch()
	if err == nil {
		t.Fatal("Expected error for malformed frequency")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "frequency" {
		t.Errorf("Expected frequency validation error, got %v", err)
	}
}

func TestProgramFormPatch_BlankNumbersOmitted(t *testing.T) {
	patch, err := ProgramForm{Name: "Roses", IsActive: "false"}.Patch()
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if patch.Frequency != nil || patch.LowerScore != nil || patch.UpperScore != nil {
		t.Errorf("Expected blank numerics to be omitted, got %+v", patch)
	}
}

func TestProgramFormFrom_RoundTrip(t *testing.T) {
	p := Program{ID: "7", Name: "Hedge", IsActive: true, Frequency: 2, LowerScore: 0.5, UpperScore: 3}
	form := ProgramFormFrom(p)

	patch, err := form.Patch()
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if *patch.Name != p.Name || *patch.IsActive != p.IsActive {
		t.Errorf("Expected name/active preserved, got %+v", patch)
	}
	if *patch.Frequency != 2 || *patch.LowerScore != 0.5 || *patch.UpperScore != 3 {
		t.Errorf("Expected numbers preserved, got %v %v %v", *patch.Frequency, *patch.LowerScore, *patch.UpperScore)
	}
}

func TestSessionFormDraft(t *testing.T) {
	tests := []struct {
		name    string
		form    SessionForm
		wantErr bool
		want    SessionDraft
	}{
		{
			name:    "missing start time",
			form:    BlankSessionForm(),
			wantErr: true,
		},
		{
			name: "blank zones default to zero",
			form: SessionForm{StartTime: "06:00"},
			want: SessionDraft{StartTime: "06:00"},
		},
		{
			name: "zones parsed as floats",
			form: SessionForm{StartTime: "21:30", Zone1: "5", Zone2: "2.5", Zone3: "0", ZoneConnected: "1"},
			want: SessionDraft{StartTime: "21:30", Zone1: 5, Zone2: 2.5, ZoneConnected: 1},
		},
		{
			name:    "bad time",
			form:    SessionForm{StartTime: "25:00"},
			wantErr: true,
		},
		{
			name:    "bad zone",
			form:    SessionForm{StartTime: "06:00", Zone2: "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.form.Draft()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got draft %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Draft failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSessionFormFrom_TruncatesTime(t *testing.T) {
	z := 15.0
	form := SessionFormFrom(Session{ID: "1", StartTime: "06:00:00", Zone1: &z})
	if form.StartTime != "06:00" {
		t.Errorf("Expected 06:00, got %s", form.StartTime)
	}
	if form.Zone1 != "15" {
		t.Errorf("Expected zone1 15, got %s", form.Zone1)
	}
	if form.Zone2 != "" {
		t.Errorf("Expected unset zone2 to be blank, got %q", form.Zone2)
	}
}

func TestNewProgramFormDraft(t *testing.T) {
	form := NewProgramForm{
		Name:       "Lawn",
		IsActive:   "true",
		Frequency:  "2",
		LowerScore: "1",
		UpperScore: "5",
		Sessions: []InitialSessionForm{
			{StartTime: "06:00", DurationMinutes: "15"},
		},
	}

	draft, err := form.Draft()
	if err != nil {
		t.Fatalf("Draft failed: %v", err)
	}
	if draft.Frequency != 2 || draft.LowerScore != 1 || draft.UpperScore != 5 || !draft.IsActive {
		t.Errorf("Unexpected draft %+v", draft)
	}
	if len(draft.Sessions) != 1 || draft.Sessions[0].DurationMinutes != 15 {
		t.Errorf("Expected one 15 minute session, got %+v", draft.Sessions)
	}

	form.Frequency = "2.5"
	if _, err := form.Draft(); err == nil {
		t.Error("Expected fractional frequency to be rejected")
	}

	form.Frequency = "2"
	form.Sessions[0].StartTime = ""
	_, err = form.Draft()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "session-0-start_time" {
		t.Errorf("Expected session-0-start_time error, got %v", err)
	}
}

func TestParseIntOrZero(t *testing.T) {
	tests := map[string]int{
		"":     0,
		"7":    7,
		"abc":  0,
		" 12 ": 12,
		"3.9":  3,
	}
	for in, want := range tests {
		if got := ParseIntOrZero(in); got != want {
			t.Errorf("ParseIntOrZero(%q) = %d, want %d", in, got, want)
		}
	}
}
