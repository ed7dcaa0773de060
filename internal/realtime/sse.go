package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultPingInterval spaces keep-alive frames on idle streams.
const DefaultPingInterval = 15 * time.Second

// EventPing is the SSE event name of keep-alive frames.
const EventPing = "ping"

// SetSSEHeaders prepares w for an event stream.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

// WriteEnvelope writes env as one SSE frame named after the change type.
func WriteEnvelope(w io.Writer, env Envelope) error {
	data, err := json.Marshal(env.Event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", env.Seq); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", env.Event.Type); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// WritePing writes a keep-alive frame.
func WritePing(w io.Writer, at time.Time) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: {\"ts\":%d}\n\n", EventPing, at.UnixMilli())
	return err
}

// ErrStreamingUnsupported is returned when the writer cannot flush.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Stream pumps sub into w until ctx ends or the subscription closes.
func Stream(ctx context.Context, w http.ResponseWriter, sub *Subscription, pingEvery time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}
	if pingEvery <= 0 {
		pingEvery = DefaultPingInterval
	}
	SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := WritePing(w, time.Now()); err != nil {
		return err
	}
	flusher.Flush()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := WriteEnvelope(w, env); err != nil {
				return err
			}
			flusher.Flush()
		case now := <-ticker.C:
			if err := WritePing(w, now); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
