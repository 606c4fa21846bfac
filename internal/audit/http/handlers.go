// Package audithttp serves the change history screen and its CSV export.
package audithttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/loomworks/erpconsole/internal/audit"
	"github.com/loomworks/erpconsole/internal/rbac"
	"github.com/loomworks/erpconsole/internal/view"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// TimelineService is the history lookup the handler needs.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.Filters) (audit.Result, error)
	Export(ctx context.Context, filters audit.Filters) ([]audit.Entry, error)
}

// Handler serves /audit.
type Handler struct {
	logger    *slog.Logger
	service   TimelineService
	templates *view.Engine
	layout    *view.Layout
	rbac      rbac.Middleware
	books     []string
	bookPath  string
	now       func() time.Time
}

// NewHandler builds the history handler. books lists the entity keys offered
// in the filter; bookPath is where record screens live, e.g. "/console".
func NewHandler(logger *slog.Logger, service TimelineService, templates *view.Engine, layout *view.Layout, guard rbac.Middleware, books []string, bookPath string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		layout:    layout,
		rbac:      guard,
		books:     books,
		bookPath:  bookPath,
		now:       time.Now,
	}
}

type entryRow struct {
	audit.Entry
	Link string
}

type timelinePage struct {
	From     string
	To       string
	Entity   string
	EntityID string
	Action   string
	Books    []string
	Actions  []string
	Rows     []entryRow
	Paging   audit.Paging
	PrevURL  string
	NextURL  string
	Export   string
}

var knownActions = []string{"create", "update", "delete", "duplicate", "bulk_delete", "export"}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	status := http.StatusOK
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load change history", slog.Any("error", err))
		view.Flash(r, "error", "Change history could not be loaded")
		status = http.StatusInternalServerError
	}

	page := timelinePage{
		From:     filters.From.Format(dateLayout),
		To:       filters.To.Format(dateLayout),
		Entity:   filters.Entity,
		EntityID: filters.EntityID,
		Action:   filters.Action,
		Books:    h.books,
		Actions:  knownActions,
		Paging:   result.Paging,
		Export:   "/audit/export.csv?" + h.query(filters, 0).Encode(),
	}
	for _, e := range result.Entries {
		page.Rows = append(page.Rows, entryRow{Entry: e, Link: h.link(e)})
	}
	if result.Paging.PrevPage > 0 {
		page.PrevURL = "/audit?" + h.query(filters, result.Paging.PrevPage).Encode()
	}
	if result.Paging.NextPage > 0 {
		page.NextURL = "/audit?" + h.query(filters, result.Paging.NextPage).Encode()
	}

	td := h.layout.Data(r, "Change History", page)
	if err := h.templates.RenderStatus(w, status, "pages/audit.html", td); err != nil {
		h.logger.Error("render change history", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	entries, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export change history", err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, entries); err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"change-history.csv\"")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return audit.Filters{}, validationError{field: "range"}
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.Filters{}, validationError{field: "range"}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := 0
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page_size"}
		}
		pageSize = parsed
	}

	return audit.Filters{
		From:     fromTime,
		To:       toTime,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) query(f audit.Filters, page int) url.Values {
	v := url.Values{}
	v.Set("from", f.From.Format(dateLayout))
	v.Set("to", f.To.Format(dateLayout))
	for key, value := range map[string]string{"entity": f.Entity, "entity_id": f.EntityID, "action": f.Action} {
		if value != "" {
			v.Set(key, value)
		}
	}
	if f.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return v
}

// link points at the record screen for entries about a single live record.
func (h *Handler) link(e audit.Entry) string {
	if e.Action == "delete" || e.Action == "bulk_delete" || e.Action == "export" {
		return ""
	}
	if _, err := strconv.ParseInt(e.EntityID, 10, 64); err != nil {
		return ""
	}
	for _, b := range h.books {
		if b == e.Entity {
			return h.bookPath + "/" + e.Entity + "/" + e.EntityID + "/edit"
		}
	}
	return ""
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		http.Error(w, "invalid "+v.field, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
