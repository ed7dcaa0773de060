package models

import (
	"fmt"
	"time"
)

// RequestType identifies one of the request collections.
type RequestType string

const (
	RequestTypeRecharge      RequestType = "recharge"
	RequestTypeRedeem        RequestType = "redeem"
	RequestTypeTransfer      RequestType = "transfer"
	RequestTypeResetPassword RequestType = "reset_password"
)

// RequestTypes lists every request collection.
var RequestTypes = []RequestType{RequestTypeRecharge, RequestTypeRedeem, RequestTypeTransfer, RequestTypeResetPassword}

var requestTables = map[RequestType]string{
	RequestTypeRecharge:      "recharge_requests",
	RequestTypeRedeem:        "redeem_requests",
	RequestTypeTransfer:      "transfer_requests",
	RequestTypeResetPassword: "reset_password_requests",
}

var requestPrefixes = map[RequestType]string{
	RequestTypeRecharge:      "RCH",
	RequestTypeRedeem:        "RDM",
	RequestTypeTransfer:      "TRF",
	RequestTypeResetPassword: "RST",
}

// ParseRequestType accepts the canonical name, the table name or the URL
// segment ("recharges", "password-resets").
func ParseRequestType(raw string) (RequestType, error) {
	switch raw {
	case "recharge", "recharges", "recharge_requests":
		return RequestTypeRecharge, nil
	case "redeem", "redeems", "redeem_requests":
		return RequestTypeRedeem, nil
	case "transfer", "transfers", "transfer_requests":
		return RequestTypeTransfer, nil
	case "reset_password", "password-resets", "password_resets", "reset_password_requests":
		return RequestTypeResetPassword, nil
	}
	return "", fmt.Errorf("unknown request type %q", raw)
}

var requestSegments = map[RequestType]string{
	RequestTypeRecharge:      "recharges",
	RequestTypeRedeem:        "redeems",
	RequestTypeTransfer:      "transfers",
	RequestTypeResetPassword: "password-resets",
}

// Segment returns the URL path segment of the collection.
func (t RequestType) Segment() string { return requestSegments[t] }

// Table returns the backing table name.
func (t RequestType) Table() string { return requestTables[t] }

// DisplayPrefix returns the prefix of human-facing ids.
func (t RequestType) DisplayPrefix() string { return requestPrefixes[t] }

// Valid reports whether t names a known collection.
func (t RequestType) Valid() bool {
	_, ok := requestTables[t]
	return ok
}

// ProcessingStatus is the soft lock state.
type ProcessingStatus string

const (
	ProcessingIdle       ProcessingStatus = "idle"
	ProcessingInProgress ProcessingStatus = "in_progress"
)

// ModalType names the operator dialog a lock was taken for.
type ModalType string

const (
	ModalNone       ModalType = "none"
	ModalAssign     ModalType = "assign_modal"
	ModalScreenshot ModalType = "screenshot_modal"
	ModalProcess    ModalType = "process_modal"
	ModalReject     ModalType = "reject_modal"
	ModalVerify     ModalType = "verify_modal"
	ModalPayment    ModalType = "payment_modal"
	ModalDispute    ModalType = "dispute_modal"
	ModalCancel     ModalType = "cancel_modal"
)

// Valid reports whether m is an acquirable modal (none is not).
func (m ModalType) Valid() bool {
	switch m {
	case ModalAssign, ModalScreenshot, ModalProcess, ModalReject, ModalVerify, ModalPayment, ModalDispute, ModalCancel:
		return true
	}
	return false
}

// ProcessingState is the per-record soft lock.
type ProcessingState struct {
	Status   ProcessingStatus `db:"processing_status" json:"status"`
	By       *string          `db:"processing_by" json:"processed_by"`
	Modal    ModalType        `db:"processing_modal" json:"modal_type"`
	LockedAt *time.Time       `db:"processing_locked_at" json:"locked_at,omitempty"`
}

// IdleState returns the released lock value.
func IdleState() ProcessingState {
	return ProcessingState{Status: ProcessingIdle, Modal: ModalNone}
}

// HeldBy reports whether operatorID currently holds the lock.
func (p ProcessingState) HeldBy(operatorID string) bool {
	return p.Status == ProcessingInProgress && p.By != nil && *p.By == operatorID
}

// RequestBase holds the columns shared by every request table.
type RequestBase struct {
	ID          string     `db:"id" json:"id"`
	DisplayID   string     `db:"display_id" json:"display_id"`
	VIPCode     string     `db:"vip_code" json:"vip_code"`
	PlayerName  string     `db:"player_name" json:"player_name"`
	MessengerID *string    `db:"messenger_id" json:"messenger_id,omitempty"`
	TeamCode    string     `db:"team_code" json:"team_code"`
	CreatedBy   *string    `db:"created_by" json:"created_by,omitempty"`
	ProcessedBy *string    `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	ProcessingState `json:"processing_state"`
}

// Base returns the shared portion of a request.
func (b *RequestBase) Base() *RequestBase { return b }

// Request is implemented by every request model.
type Request interface {
	Base() *RequestBase
	Type() RequestType
	CurrentStatus() string
}

// RequestRef locates a request without loading its payload.
type RequestRef struct {
	ID              string `db:"id"`
	TeamCode        string `db:"team_code"`
	Status          string `db:"status"`
	ProcessingState `json:"processing_state"`
}

// RequestFilter constrains list and export queries.
type RequestFilter struct {
	Statuses []string
	// Teams restricts to these tenants unless AllTeams is set. An empty list
	// without AllTeams matches nothing.
	Teams    []string
	AllTeams bool
	TeamCode string
	VIPCode  string
	Search   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
	Limit    int
}
