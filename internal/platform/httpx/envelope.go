package httpx

import (
	"net/http"
	"sort"
	"strings"
)

// Envelope is the JSON shape every /api/v1 endpoint responds with.
type Envelope struct {
	Status      bool              `json:"status"`
	Message     string            `json:"message"`
	StatusCode  int               `json:"status_code"`
	Data        any               `json:"data,omitempty"`
	DataList    any               `json:"dataList,omitempty"`
	Total       *int              `json:"total,omitempty"`
	CurrentPage *int              `json:"currentPage,omitempty"`
	TotalPages  *int              `json:"totalPages,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// FieldErrors maps a field name to a human readable problem. It satisfies
// error and unwraps to ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return ErrValidation }

// OK writes a successful single-item envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Status: true, Message: message, StatusCode: status, Data: data})
}

// List writes a successful paged envelope. currentPage is 1-based.
func List(w http.ResponseWriter, message string, items any, total, currentPage, totalPages int) {
	JSON(w, http.StatusOK, Envelope{
		Status:      true,
		Message:     message,
		StatusCode:  http.StatusOK,
		DataList:    items,
		Total:       &total,
		CurrentPage: &currentPage,
		TotalPages:  &totalPages,
	})
}

// Fail writes a failed envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: false, Message: message, StatusCode: status})
}
