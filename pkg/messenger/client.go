// Package messenger delivers player notifications through the messaging
// platform's HTTP API. Each ENT team has its own bearer token.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNoTeamToken is returned when no credential is configured for a team.
	ErrNoTeamToken = errors.New("messenger: no token for team")
	// ErrMissingSubscriber is returned when the player has no messaging id.
	ErrMissingSubscriber = errors.New("messenger: subscriber id required")
)

// Message is a single notification to a player.
type Message struct {
	SubscriberID string
	TeamCode     string
	Text         string
	CustomFields map[string]string
}

// StatusError reports a non-2xx response from the platform.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("messenger: unexpected status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the failure is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Config configures the client.
type Config struct {
	BaseURL    string
	TeamTokens map[string]string
	Timeout    time.Duration
	RPS        float64
	Burst      int
}

// Client posts JSON to the messaging API under a shared client-side rate limit.
type Client struct {
	baseURL string
	tokens  map[string]string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a Client. A non-positive RPS disables pacing.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	tokens := make(map[string]string, len(cfg.TeamTokens))
	for team, token := range cfg.TeamTokens {
		tokens[strings.ToUpper(team)] = token
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}
}

// Send sets the custom fields (when any) and then delivers the text.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.SubscriberID) == "" {
		return ErrMissingSubscriber
	}
	token, ok := c.tokens[strings.ToUpper(msg.TeamCode)]
	if !ok || token == "" {
		return fmt.Errorf("%w %s", ErrNoTeamToken, msg.TeamCode)
	}

	if len(msg.CustomFields) > 0 {
		fields := make([]customField, 0, len(msg.CustomFields))
		for name, value := range msg.CustomFields {
			fields = append(fields, customField{Name: name, Value: value})
		}
		if err := c.post(ctx, token, "/fb/subscriber/setCustomFields", setFieldsBody{
			SubscriberID: msg.SubscriberID,
			Fields:       fields,
		}); err != nil {
			return err
		}
	}

	return c.post(ctx, token, "/fb/sending/sendContent", sendContentBody{
		SubscriberID: msg.SubscriberID,
		Data: contentData{
			Version: "v2",
			Content: content{Messages: []textMessage{{Type: "text", Text: msg.Text}}},
		},
	})
}

func (c *Client) post(ctx context.Context, token, path string, body any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("messenger: rate wait: %w", err)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("messenger: %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

type customField struct {
	Name  string `json:"field_name"`
	Value string `json:"field_value"`
}

type setFieldsBody struct {
	SubscriberID string        `json:"subscriber_id"`
	Fields       []customField `json:"fields"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type content struct {
	Messages []textMessage `json:"messages"`
}

type contentData struct {
	Version string  `json:"version"`
	Content content `json:"content"`
}

type sendContentBody struct {
	SubscriberID string      `json:"subscriber_id"`
	Data         contentData `json:"data"`
}
