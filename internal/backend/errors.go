package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx API response. Detail carries FastAPI's "detail" field
// when the body had one.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Detail) == 0 {
		return e
	}
	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		e.Detail = s
		return e
	}
	// Validation errors arrive as [{"loc": [...], "msg": "..."}].
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(payload.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
	}
	return e
}

// ErrorMessage returns the server-provided detail of err, or fallback when
// there is none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
