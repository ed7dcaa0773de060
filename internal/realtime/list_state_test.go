package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

func recordEvent(t *testing.T, kind models.ChangeType, id, status string, holder string, modal models.ModalType) models.ChangeEvent {
	t.Helper()
	state := models.IdleState()
	if holder != "" {
		state = models.ProcessingState{Status: models.ProcessingInProgress, By: &holder, Modal: modal}
	}
	rec := models.Recharge{}
	rec.ID = id
	rec.TeamCode = "ENT-1"
	rec.Status = models.RechargeStatus(status)
	rec.ProcessingState = state
	raw, err := json.Marshal(&rec)
	require.NoError(t, err)
	return models.ChangeEvent{Table: "recharge_requests", Type: kind, ID: id, TeamCode: "ENT-1", Status: status, Record: raw, At: time.Now()}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestListStateInsertDedupesAndAppends(t *testing.T) {
	s := NewListState("ops-1", []string{"pending"})
	assert.True(t, s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "", "")).Changed)
	assert.True(t, s.Apply(recordEvent(t, models.ChangeInsert, "b", "pending", "", "")).Changed)
	assert.False(t, s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "", "")).Changed)
	assert.False(t, s.Apply(recordEvent(t, models.ChangeInsert, "c", "assigned", "", "")).Changed)
	assert.Equal(t, []string{"a", "b"}, ids(s.Rows()))
}

func TestListStateUpdateReplacesInPlace(t *testing.T) {
	s := NewListState("ops-1", nil)
	s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "", ""))
	s.Apply(recordEvent(t, models.ChangeInsert, "b", "pending", "", ""))

	out := s.Apply(recordEvent(t, models.ChangeUpdate, "a", "assigned", "", ""))
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"a", "b"}, ids(s.Rows()))
	row, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "assigned", row.Status)
}

func TestListStateRemovesRowsLeavingFilter(t *testing.T) {
	s := NewListState("ops-1", []string{"pending"})
	s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "", ""))
	s.Apply(recordEvent(t, models.ChangeInsert, "b", "pending", "", ""))
	s.Apply(recordEvent(t, models.ChangeInsert, "c", "pending", "", ""))

	out := s.Apply(recordEvent(t, models.ChangeUpdate, "a", "assigned", "", ""))
	assert.True(t, out.Removed)
	assert.Equal(t, []string{"b", "c"}, ids(s.Rows()))

	out = s.Apply(models.ChangeEvent{Type: models.ChangeDelete, ID: "c"})
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"b"}, ids(s.Rows()))
	_, ok := s.Get("c")
	assert.False(t, ok)

	assert.False(t, s.Apply(models.ChangeEvent{Type: models.ChangeDelete, ID: "missing"}).Changed)
}

func TestListStateUpdateEnteringFilterAppends(t *testing.T) {
	s := NewListState("ops-1", []string{"queued"})
	out := s.Apply(recordEvent(t, models.ChangeUpdate, "r", "queued", "", ""))
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"r"}, ids(s.Rows()))
}

func TestListStateReportsLockedByOther(t *testing.T) {
	s := NewListState("ops-1", nil)
	s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "", ""))

	out := s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "ops-2", models.ModalAssign))
	require.NotNil(t, out.LockedByOther)
	assert.Equal(t, "ops-2", out.LockedByOther.By)
	assert.Equal(t, models.ModalAssign, out.LockedByOther.Modal)

	// repeated updates from the same holder are not reported again
	out = s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "ops-2", models.ModalAssign))
	assert.Nil(t, out.LockedByOther)

	// own locks are never reported
	s.Apply(recordEvent(t, models.ChangeInsert, "b", "pending", "", ""))
	out = s.Apply(recordEvent(t, models.ChangeUpdate, "b", "pending", "ops-1", models.ModalProcess))
	assert.Nil(t, out.LockedByOther)
	row, _ := s.Get("b")
	assert.True(t, row.Processing.HeldBy("ops-1"))
}

func TestListStateModalClosedOnExternalReset(t *testing.T) {
	s := NewListState("ops-1", nil)
	s.Apply(recordEvent(t, models.ChangeInsert, "a", "pending", "ops-1", models.ModalProcess))
	s.OpenModal("a", models.ModalProcess)

	out := s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "ops-1", models.ModalProcess))
	assert.False(t, out.ModalClosed)

	out = s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "", ""))
	assert.True(t, out.ModalClosed)

	// only reported once
	out = s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "", ""))
	assert.False(t, out.ModalClosed)
}

func TestListStateModalClosedWhenAnotherOperatorHoldsRow(t *testing.T) {
	s := NewListState("ops-1", nil)
	s.Apply(recordEvent(t, models.ChangeInsert, "r1", "pending", "ops-1", models.ModalProcess))
	s.OpenModal("r1", models.ModalProcess)

	// the release went missing; the next thing seen is ops-2 holding the row
	out := s.Apply(recordEvent(t, models.ChangeUpdate, "r1", "pending", "ops-2", models.ModalReject))
	assert.True(t, out.ModalClosed)
	require.NotNil(t, out.LockedByOther)
	assert.Equal(t, "ops-2", out.LockedByOther.By)

	out = s.Apply(recordEvent(t, models.ChangeUpdate, "r1", "pending", "ops-2", models.ModalReject))
	assert.False(t, out.ModalClosed)
}

func TestListStateCloseModalSuppressesNotice(t *testing.T) {
	s := NewListState("ops-1", nil)
	s.OpenModal("a", models.ModalReject)
	s.CloseModal()
	out := s.Apply(recordEvent(t, models.ChangeUpdate, "a", "pending", "", ""))
	assert.False(t, out.ModalClosed)
}

func TestListStateReset(t *testing.T) {
	s := NewListState("ops-1", []string{"pending"})
	s.Reset([]Row{{ID: "a", Status: "pending"}, {ID: "a", Status: "pending"}, {ID: "b", Status: "completed"}, {ID: "c", Status: "pending"}})
	assert.Equal(t, []string{"a", "c"}, ids(s.Rows()))
	s.Apply(models.ChangeEvent{Type: models.ChangeDelete, ID: "a"})
	row, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", row.ID)
}
