package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path string
	auth string
	body map[string]any
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recorded{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSendSetsFieldsThenContent(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK)
	client := NewClient(Config{BaseURL: srv.URL, TeamTokens: map[string]string{"ENT-1": "tok-1"}})

	err := client.Send(context.Background(), Message{
		SubscriberID: "sub-1",
		TeamCode:     "ent-1",
		Text:         "Your recharge is complete",
		CustomFields: map[string]string{"load_amount": "25.00"},
	})
	require.NoError(t, err)
	require.Len(t, *calls, 2)
	assert.Equal(t, "/fb/subscriber/setCustomFields", (*calls)[0].path)
	assert.Equal(t, "/fb/sending/sendContent", (*calls)[1].path)
	assert.Equal(t, "Bearer tok-1", (*calls)[1].auth)
	assert.Equal(t, "sub-1", (*calls)[1].body["subscriber_id"])
}

func TestSendWithoutTokenFails(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"})
	err := client.Send(context.Background(), Message{SubscriberID: "sub-1", TeamCode: "ENT-9", Text: "hi"})
	assert.ErrorIs(t, err, ErrNoTeamToken)

	err = client.Send(context.Background(), Message{TeamCode: "ENT-9"})
	assert.ErrorIs(t, err, ErrMissingSubscriber)
}

func TestSendReportsStatusError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway)
	client := NewClient(Config{BaseURL: srv.URL, TeamTokens: map[string]string{"ENT-1": "tok-1"}})

	err := client.Send(context.Background(), Message{SubscriberID: "sub-1", TeamCode: "ENT-1", Text: "hi"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.True(t, statusErr.Retryable())
}
