package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// Frame is one decoded SSE frame.
type Frame struct {
	ID    string
	Event string
	Data  string
}

// ReadFrames parses an SSE stream and calls fn for every complete frame.
// Comment lines are ignored.
func ReadFrames(r io.Reader, fn func(Frame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		frame Frame
		data  []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if frame.Event == "" && len(data) == 0 {
				continue
			}
			frame.Data = strings.Join(data, "\n")
			if err := fn(frame); err != nil {
				return err
			}
			frame, data = Frame{}, nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			frame.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

// Client subscribes to the API change stream.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// Snapshot loads the first page of the collection behind table so a ListState
// can be seeded before watching.
func (c *Client) Snapshot(ctx context.Context, table string, statuses []string, pageSize int) ([]Row, error) {
	t, err := models.ParseRequestType(table)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if len(statuses) > 0 {
		q.Set("status", strings.Join(statuses, ","))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprintf("%d", pageSize))
	}
	resp, err := c.get(ctx, "/"+t.Segment()+"?"+q.Encode(), "application/json", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data []struct {
			ID         string                 `json:"id"`
			TeamCode   string                 `json:"team_code"`
			Status     string                 `json:"status"`
			Processing models.ProcessingState `json:"processing_state"`
		} `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", table, err)
	}
	var records struct {
		Data []json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(raw, &records)

	rows := make([]Row, 0, len(envelope.Data))
	for i, item := range envelope.Data {
		row := Row{ID: item.ID, TeamCode: item.TeamCode, Status: item.Status, Processing: item.Processing}
		if i < len(records.Data) {
			row.Record = records.Data[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, path, accept, lastEventID string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// Watch streams change events for table, optionally narrowed to statuses,
// until ctx ends. lastEventID resumes after a reconnect.
func (c *Client) Watch(ctx context.Context, table string, statuses []string, lastEventID string, fn func(id string, ev models.ChangeEvent) error) error {
	q := url.Values{}
	q.Set("table", table)
	if len(statuses) > 0 {
		q.Set("status", strings.Join(statuses, ","))
	}
	resp, err := c.get(ctx, "/events?"+q.Encode(), "text/event-stream", lastEventID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	err = ReadFrames(resp.Body, func(f Frame) error {
		if f.Event == EventPing {
			return nil
		}
		var ev models.ChangeEvent
		if err := json.Unmarshal([]byte(f.Data), &ev); err != nil {
			return fmt.Errorf("decode change event %s: %w", f.ID, err)
		}
		return fn(f.ID, ev)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
