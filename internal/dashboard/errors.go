package dashboard

import (
	"errors"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

var (
	// ErrNotConfirmed is returned when a destructive action was declined.
	ErrNotConfirmed = errors.New("action not confirmed")

	// ErrInFlight is returned when the same action on the same entity is
	// still running.
	ErrInFlight = errors.New("action already in progress")

	// ErrNotFound is returned when a row, session or draft is not on screen.
	ErrNotFound = errors.New("row not found")

	// ErrWrongState is returned when a row is not in a state that allows
	// the requested action.
	ErrWrongState = errors.New("row is not in a state that allows this action")
)

// Status lines shown after a failed action.
const (
	StatusLoadFailed          = "Failed to load programs."
	StatusSessionsFailed      = "Failed to load sessions."
	StatusUpdateFailed        = "Failed to update program."
	StatusDeleteFailed        = "Failed to delete program."
	StatusAddFailed           = "Failed to add program."
	StatusSessionCreateFailed = "Failed to create session."
	StatusSessionUpdateFailed = "Failed to update session."
	StatusSessionDeleteFailed = "Failed to delete session."
)

// Confirmation prompts for destructive actions.
const (
	PromptDeleteProgram = "Delete this program and all its sessions?"
	PromptDeleteSession = "Are you sure you want to delete this session?"
)

// outcomeOf maps an action error to its journal outcome.
func outcomeOf(err error) storage.Outcome {
	switch {
	case err == nil:
		return storage.OutcomeOK
	case errors.Is(err, ErrNotConfirmed):
		return storage.OutcomeDeclined
	case errors.Is(err, irrigation.ErrInvalidInput):
		return storage.OutcomeInvalid
	default:
		return storage.OutcomeError
	}
}
