package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

func TestWriteEnvelopeAndReadFrames(t *testing.T) {
	var buf bytes.Buffer
	ev := change(models.ChangeUpdate, "a", "ENT-1", "assigned")
	require.NoError(t, WriteEnvelope(&buf, Envelope{Seq: 7, Event: ev}))
	require.NoError(t, WritePing(&buf, time.Unix(0, 0)))
	buf.WriteString(": comment\n\n")

	var frames []Frame
	require.NoError(t, ReadFrames(&buf, func(f Frame) error {
		frames = append(frames, f)
		return nil
	}))
	require.Len(t, frames, 2)
	assert.Equal(t, "7", frames[0].ID)
	assert.Equal(t, "update", frames[0].Event)

	var decoded models.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(frames[0].Data), &decoded))
	assert.Equal(t, "a", decoded.ID)
	assert.Equal(t, "assigned", decoded.Status)
	assert.Equal(t, EventPing, frames[1].Event)
}

func TestReadFramesStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	in := strings.NewReader("event: insert\ndata: {}\n\nevent: insert\ndata: {}\n\n")
	calls := 0
	err := ReadFrames(in, func(Frame) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSetSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSSEHeaders(rec)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

func TestStreamDeliversUntilSubscriptionCloses(t *testing.T) {
	hub := NewHub(0, nil, nil)
	sub := hub.Subscribe(Filter{Allow: teams("ENT-1")}, "")
	hub.Broadcast(change(models.ChangeInsert, "a", "ENT-1", "pending"))
	hub.Unsubscribe(sub)

	rec := httptest.NewRecorder()
	require.NoError(t, Stream(context.Background(), rec, sub, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "event: ping")
	assert.Contains(t, body, "event: insert")
	assert.Contains(t, body, `"id":"a"`)
}

func TestClientWatchDecodesServerStream(t *testing.T) {
	hub := NewHub(0, nil, nil)
	var gotAuth, gotTable, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTable = r.URL.Query().Get("table")
		gotStatus = r.URL.Query().Get("status")
		sub := hub.Subscribe(Filter{Table: gotTable, Allow: teams("ENT-1")}, "")
		hub.Broadcast(change(models.ChangeInsert, "a", "ENT-1", "pending"))
		hub.Broadcast(change(models.ChangeDelete, "a", "ENT-1", "pending"))
		hub.Unsubscribe(sub)
		_ = Stream(r.Context(), w, sub, time.Hour)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Token: "tok"}
	var got []models.ChangeType
	err := client.Watch(context.Background(), "recharge_requests", []string{"pending", "assigned"}, "", func(id string, ev models.ChangeEvent) error {
		got = append(got, ev.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ChangeType{models.ChangeInsert, models.ChangeDelete}, got)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "recharge_requests", gotTable)
	assert.Equal(t, "pending,assigned", gotStatus)
}

func TestClientWatchReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := (&Client{BaseURL: srv.URL}).Watch(context.Background(), "recharge_requests", nil, "", func(string, models.ChangeEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClientSnapshotSeedsRows(t *testing.T) {
	var gotPath, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStatus = r.URL.Query().Get("status")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"a","team_code":"ENT-1","status":"pending","processing_state":{"status":"in_progress","processed_by":"op-2","modal_type":"process_modal"}}],"pagination":{"page":1,"page_size":200,"total_count":1}}`))
	}))
	defer srv.Close()

	rows, err := (&Client{BaseURL: srv.URL}).Snapshot(context.Background(), "password_resets", []string{"pending"}, 200)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/password-resets", gotPath)
	assert.Equal(t, "pending", gotStatus)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, models.ProcessingInProgress, rows[0].Processing.Status)
	assert.Contains(t, string(rows[0].Record), `"team_code":"ENT-1"`)
}
