package realtime

import (
	"encoding/json"
	"sync"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// Row is one entry of a reconciled list.
type Row struct {
	ID         string
	TeamCode   string
	Status     string
	Processing models.ProcessingState
	Record     json.RawMessage
}

// LockNotice describes a lock taken by someone else.
type LockNotice struct {
	ID    string
	By    string
	Modal models.ModalType
}

// Outcome reports what applying an event did to the list.
type Outcome struct {
	Changed bool
	Removed bool
	// LockedByOther is set when another operator started processing a row.
	LockedByOther *LockNotice
	// ModalClosed is set when the row behind the local open modal is no
	// longer held by this operator.
	ModalClosed bool
}

type openModal struct {
	id    string
	modal models.ModalType
}

// ListState keeps a local copy of one collection in sync with change events.
type ListState struct {
	mu         sync.Mutex
	operatorID string
	statuses   map[string]struct{}
	rows       []Row
	index      map[string]int
	modal      *openModal
}

// NewListState builds an empty list for operatorID. An empty status set keeps
// every status.
func NewListState(operatorID string, statuses []string) *ListState {
	s := &ListState{operatorID: operatorID, index: map[string]int{}}
	if len(statuses) > 0 {
		s.statuses = make(map[string]struct{}, len(statuses))
		for _, st := range statuses {
			s.statuses[st] = struct{}{}
		}
	}
	return s
}

func (s *ListState) wants(status string) bool {
	if s.statuses == nil {
		return true
	}
	_, ok := s.statuses[status]
	return ok
}

// Reset replaces the list with an initial snapshot.
func (s *ListState) Reset(rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = s.rows[:0]
	s.index = make(map[string]int, len(rows))
	for _, r := range rows {
		if _, dup := s.index[r.ID]; dup || !s.wants(r.Status) {
			continue
		}
		s.index[r.ID] = len(s.rows)
		s.rows = append(s.rows, r)
	}
}

// OpenModal records that the local operator holds a dialog open on id.
func (s *ListState) OpenModal(id string, modal models.ModalType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modal = &openModal{id: id, modal: modal}
}

// CloseModal forgets the open dialog.
func (s *ListState) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modal = nil
}

// Rows returns a copy of the current list in arrival order.
func (s *ListState) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Get returns the row with id.
func (s *ListState) Get(id string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return Row{}, false
	}
	return s.rows[i], true
}

// RowFromEvent decodes the row carried by ev.
func RowFromEvent(ev models.ChangeEvent) Row {
	row := Row{ID: ev.ID, TeamCode: ev.TeamCode, Status: ev.Status, Record: ev.Record, Processing: models.IdleState()}
	if len(ev.Record) > 0 {
		var rec struct {
			Processing *models.ProcessingState `json:"processing_state"`
		}
		if err := json.Unmarshal(ev.Record, &rec); err == nil && rec.Processing != nil {
			row.Processing = *rec.Processing
		}
	}
	return row
}

// Apply reconciles one change event.
func (s *ListState) Apply(ev models.ChangeEvent) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case models.ChangeDelete:
		return Outcome{Changed: s.remove(ev.ID), Removed: true}
	case models.ChangeInsert:
		if _, exists := s.index[ev.ID]; exists || !s.wants(ev.Status) {
			return Outcome{}
		}
		s.index[ev.ID] = len(s.rows)
		s.rows = append(s.rows, RowFromEvent(ev))
		return Outcome{Changed: true}
	case models.ChangeUpdate:
		return s.update(ev)
	}
	return Outcome{}
}

func (s *ListState) update(ev models.ChangeEvent) Outcome {
	next := RowFromEvent(ev)
	out := Outcome{}

	i, exists := s.index[ev.ID]
	var prev models.ProcessingState
	if exists {
		prev = s.rows[i].Processing
	}

	// an idle row or a row held by someone else means our lock is gone, even
	// when the release event itself was dropped
	if s.modal != nil && s.modal.id == ev.ID && !next.Processing.HeldBy(s.operatorID) {
		out.ModalClosed = true
		s.modal = nil
	}

	if next.Processing.Status == models.ProcessingInProgress && next.Processing.By != nil &&
		*next.Processing.By != s.operatorID && !sameHolder(prev, next.Processing) {
		out.LockedByOther = &LockNotice{ID: ev.ID, By: *next.Processing.By, Modal: next.Processing.Modal}
	}

	if !s.wants(ev.Status) {
		if exists {
			s.remove(ev.ID)
			out.Changed, out.Removed = true, true
		}
		return out
	}
	if exists {
		s.rows[i] = next
	} else {
		s.index[ev.ID] = len(s.rows)
		s.rows = append(s.rows, next)
	}
	out.Changed = true
	return out
}

func sameHolder(a, b models.ProcessingState) bool {
	if a.Status != b.Status {
		return false
	}
	if a.By == nil || b.By == nil {
		return a.By == b.By
	}
	return *a.By == *b.By
}

func (s *ListState) remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.rows); j++ {
		s.index[s.rows[j].ID] = j
	}
	return true
}
