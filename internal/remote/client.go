// Package remote is the client side of the /v1 API. It implements the stores
// the wall and inbox work against and the realtime subscriber.
package remote

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

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/session"
)

// TokenSource returns the bearer token for the next request.
type TokenSource func() string

// SessionToken reads the token of the current session.
func SessionToken(s *session.Store) TokenSource {
	return func() string {
		if cur := s.Current(); cur != nil {
			return cur.Token
		}
		return ""
	}
}

// Client calls the API at baseURL.
type Client struct {
	baseURL string
	token   TokenSource
	http    *http.Client
	stream  *http.Client
}

func New(baseURL string, timeout time.Duration, token TokenSource) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// Error is a non-2xx response that maps to no domain error.
type Error struct {
	Status  int
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

type errorBody struct {
	Error         string `json:"error"`
	Field         string `json:"field"`
	DaysRemaining int    `json:"days_remaining"`
}

// decodeError turns an error response back into the domain error the server
// started from.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		body.Error = strings.TrimSpace(string(raw))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &apperr.ValidationError{Field: body.Field, Message: body.Error}
	case http.StatusLocked:
		return &apperr.LockedError{DaysRemaining: body.DaysRemaining}
	}

	e := &Error{Status: resp.StatusCode, Message: body.Error}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.err = apperr.ErrUnauthorized
	case http.StatusForbidden:
		e.err = apperr.ErrForbidden
	case http.StatusNotFound:
		e.err = apperr.ErrNotFound
	case http.StatusConflict:
		e.err = apperr.ErrDuplicate
	}
	return e
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends args as JSON and decodes the response into result. A nil result
// discards the body.
func (c *Client) do(ctx context.Context, method, path string, args, result interface{}) error {
	var body io.Reader
	contentType := ""
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, result)
}

func (c *Client) send(req *http.Request, result interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
