package dto

import (
	"time"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// PlayerRef identifies the player a request is created for.
type PlayerRef struct {
	VIPCode     string `json:"vip_code" validate:"required,max=64"`
	PlayerName  string `json:"player_name" validate:"required,max=128"`
	MessengerID string `json:"messenger_id" validate:"omitempty,max=64"`
	TeamCode    string `json:"team_code" validate:"required,max=32"`
}

// RequestQuery mirrors the list filters shared by every request collection.
type RequestQuery struct {
	Status   []string
	TeamCode string
	VIPCode  string
	Search   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// NoteRequest carries optional operator notes for simple actions.
type NoteRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

// ReasonRequest carries a mandatory reason.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// AcquireLockRequest opens a processing modal on a request.
type AcquireLockRequest struct {
	ModalType models.ModalType `json:"modal_type" validate:"required,modal"`
}

// LockResult reports the outcome of an acquire attempt. Losing is not an error.
type LockResult struct {
	Acquired        bool                   `json:"acquired"`
	RequestType     models.RequestType     `json:"request_type"`
	RequestID       string                 `json:"request_id"`
	ProcessingState models.ProcessingState `json:"processing_state"`
	Message         string                 `json:"message,omitempty"`
}

// SweepResult lists locks released by an expiry sweep.
type SweepResult struct {
	Released  int                             `json:"released"`
	ByType    map[models.RequestType][]string `json:"by_type"`
	OlderThan time.Time                       `json:"older_than"`
}
