package models

import (
	"encoding/json"
	"time"
)

// ChangeType is the kind of row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is pushed to subscribers whenever a request row changes.
type ChangeEvent struct {
	Table    string          `json:"table"`
	Type     ChangeType      `json:"type"`
	ID       string          `json:"id"`
	TeamCode string          `json:"team_code"`
	Status   string          `json:"status"`
	Record   json.RawMessage `json:"record,omitempty"`
	At       time.Time       `json:"at"`
}

// NewChangeEvent builds an event from a request, embedding its JSON form.
func NewChangeEvent(change ChangeType, req Request) (ChangeEvent, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return ChangeEvent{}, err
	}
	base := req.Base()
	return ChangeEvent{
		Table:    req.Type().Table(),
		Type:     change,
		ID:       base.ID,
		TeamCode: base.TeamCode,
		Status:   req.CurrentStatus(),
		Record:   raw,
		At:       time.Now().UTC(),
	}, nil
}
