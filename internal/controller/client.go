// Package controller implements the natural-language front end that
// drives a running agent over HTTP.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// Client talks to the agent's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the agent at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchSchema retrieves the agent's command schema.
func (c *Client) FetchSchema(ctx context.Context) (command.Schema, error) {
	var schema command.Schema

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/commands_schema", nil)
	if err != nil {
		return schema, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return schema, fmt.Errorf("fetch schema from %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return schema, fmt.Errorf("fetch schema: agent returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&schema); err != nil {
		return schema, fmt.Errorf("decode schema: %w", err)
	}
	return schema, nil
}

// AgentError is a non-2xx response from the agent's /execute endpoint.
type AgentError struct {
	StatusCode int
	Message    string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent returned %d: %s", e.StatusCode, e.Message)
}

// Execute forwards a command invocation and returns the raw JSON result.
func (c *Client) Execute(ctx context.Context, name string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"command_name": name,
		"params":       params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			msg = errBody.Message
		}
		return nil, &AgentError{StatusCode: resp.StatusCode, Message: msg}
	}
	return json.RawMessage(raw), nil
}

// Event is one entry from the agent's /events stream.
type Event struct {
	Topic   string          `json:"topic"`
	At      string          `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Events subscribes to the agent's event stream and invokes handle for
// each event until the context is canceled or the connection drops.
func (c *Client) Events(ctx context.Context, topic string, handle func(Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/events"
	if topic != "" {
		wsURL += "?topic=" + topic
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		handle(ev)
	}
}
