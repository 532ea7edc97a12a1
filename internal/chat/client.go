// Package chat talks to the "Robô Oculto" agent webhook and keeps the local
// conversation transcript.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReplySize = 1 << 20

// Request is the webhook payload.
type Request struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// Client posts messages to the agent webhook.
type Client struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Send posts one message and returns the agent's reply as plain text.
func (c *Client) Send(ctx context.Context, message, username string) (string, error) {
	if c.webhookURL == "" {
		return "", fmt.Errorf("chat: webhook URL not configured")
	}
	payload, err := json.Marshal(Request{
		Message:   message,
		Username:  username,
		Timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("chat: agent returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return "", fmt.Errorf("chat: read reply: %w", err)
	}
	reply, err := ExtractReply(body)
	if err != nil {
		return "", err
	}
	return PlainText(Unescape(reply)), nil
}

// ExtractReply finds the display text in an agent response. Fields are tried
// in order: output, a bare string, response, text, message, answer, data,
// the first array element, and finally the raw JSON.
func ExtractReply(body []byte) (string, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("chat: reply is not JSON: %w", err)
	}
	return extract(data), nil
}

func extract(data interface{}) string {
	if obj, ok := data.(map[string]interface{}); ok {
		if v, ok := obj["output"]; ok && truthy(v) {
			return stringify(v)
		}
	}
	if s, ok := data.(string); ok {
		return s
	}
	if obj, ok := data.(map[string]interface{}); ok {
		for _, key := range []string{"response", "text", "message", "answer", "data"} {
			if v, ok := obj[key]; ok && truthy(v) {
				return stringify(v)
			}
		}
	}
	if arr, ok := data.([]interface{}); ok && len(arr) > 0 {
		if _, isObj := arr[0].(map[string]interface{}); isObj {
			return extract(arr[0])
		}
		return stringify(arr[0])
	}
	raw, _ := json.Marshal(data)
	return string(raw)
}

// truthy follows JSON-ish truthiness: null, false, 0 and "" are empty.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// Unescape turns literal "\n" and "\"" sequences into the characters they
// name.
func Unescape(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	return strings.ReplaceAll(s, `\"`, `"`)
}
