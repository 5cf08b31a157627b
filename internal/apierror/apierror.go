// Package apierror turns failed responses from the directory and mail-store
// APIs into a single error type carrying a human-readable message.
package apierror

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxBody bounds how much of an error body is read.
const maxBody = 64 << 10

// Error is a transport-level failure: either a non-2xx response or a request
// that never produced one (StatusCode 0).
type Error struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Network wraps a failure to reach the server.
func Network(prefix string, err error) *Error {
	return &Error{Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}

// Check returns nil for 2xx responses and an *Error for everything else.
// The body is consumed on failure; the caller still owns closing it.
func Check(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return FromBody(resp.StatusCode, statusText(resp), body)
}

// FromBody builds an *Error from a status and a raw response body.
func FromBody(code int, text string, body []byte) *Error {
	msg := fmt.Sprintf("Error %d (%s)", code, text)
	if detail := Detail(body); detail != "" {
		msg += ": " + detail
	}
	return &Error{StatusCode: code, Status: text, Message: msg}
}

// Detail extracts the most specific message from a structured error body.
// It tries, in order: a detail array of {msg} entries joined by "; ", a detail
// string, an error field and a message field.
func Detail(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	if raw, ok := fields["detail"]; ok {
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	for _, key := range []string{"error", "message"} {
		if s := truthyString(fields[key]); s != "" {
			return s
		}
	}
	return ""
}

func truthyString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	switch v := strings.TrimSpace(string(raw)); v {
	case "null", "false", "0", `""`:
		return ""
	default:
		return v
	}
}

func statusText(resp *http.Response) string {
	if t := http.StatusText(resp.StatusCode); t != "" {
		return t
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
