package apiclient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNetwork wraps transport failures and timeouts.
	ErrNetwork = errors.New("apiclient: network error")
	// ErrUnauthorized is returned for HTTP 401. The stored token is dropped.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
)

// APIError is a response the server marked as failed.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("apiclient: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apiclient: %d: %s (%s)", e.StatusCode, e.Message, joinFields(e.Fields))
}

// ValidationErrors maps a field name to a problem found before sending.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return "apiclient: invalid input: " + joinFields(v)
}

func joinFields(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + m[k]
	}
	return strings.Join(parts, "; ")
}
