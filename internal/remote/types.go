package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlindState is the commanded position of one blind.
type BlindState string

const (
	BlindUp      BlindState = "up"
	BlindDown    BlindState = "down"
	BlindNoState BlindState = "nostate"
)

// ParseBlindState normalizes user input to a known blind state.
func ParseBlindState(s string) (BlindState, error) {
	state := BlindState(strings.ToLower(strings.TrimSpace(s)))
	switch state {
	case BlindUp, BlindDown, BlindNoState:
		return state, nil
	default:
		return "", fmt.Errorf("invalid blind state: %s (must be up, down, or nostate)", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler to reject unknown states.
func (b *BlindState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	state, err := ParseBlindState(s)
	if err != nil {
		return err
	}
	*b = state
	return nil
}

// BlindCommand is the body of POST /blinds.
type BlindCommand struct {
	LeftBlind  BlindState `json:"left_blind"`
	RightBlind BlindState `json:"right_blind"`
}

// IrrigationState is the on/off flag of a manual irrigation run.
type IrrigationState string

const (
	IrrigationOn  IrrigationState = "on"
	IrrigationOff IrrigationState = "off"
)

// RunRequest is the body of POST /irrigation.
type RunRequest struct {
	Zone1         int             `json:"zone1"`
	Zone2         int             `json:"zone2"`
	Zone3         int             `json:"zone3"`
	ZoneConnected int             `json:"zone_connected"`
	IsActive      IrrigationState `json:"is_active"`
}

// Automation is the body of the automation toggle endpoints.
type Automation struct {
	Automation bool `json:"automation"`
}

// CommandStatus is the body the blinds endpoint answers with.
type CommandStatus struct {
	Detail string `json:"detail"`
}
