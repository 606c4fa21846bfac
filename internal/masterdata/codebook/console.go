package codebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/rbac"
	appshared "github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/table"
	"github.com/loomworks/erpconsole/internal/view"
)

// ConsoleDeps are the collaborators of the console screens.
type ConsoleDeps struct {
	Logger    *slog.Logger
	Templates *view.Engine
	Layout    *view.Layout
	RBAC      rbac.Middleware
	PageSize  int
	Window    int
	// BasePath is the mount point of the console, e.g. "/console".
	BasePath string
}

// ConsoleHandler serves the HTML list and form screens of one book.
type ConsoleHandler[T any] struct {
	svc  *Service[T]
	deps ConsoleDeps
}

// NewConsoleHandler builds ConsoleHandler instance.
func NewConsoleHandler[T any](svc *Service[T], deps ConsoleDeps) *ConsoleHandler[T] {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = shared.DefaultLimit
	}
	if deps.Window <= 0 {
		deps.Window = table.DefaultMaxVisible
	}
	if deps.BasePath == "" {
		deps.BasePath = "/console"
	}
	return &ConsoleHandler[T]{svc: svc, deps: deps}
}

func (h *ConsoleHandler[T]) basePath() string {
	return h.deps.BasePath + "/" + h.svc.def.Key
}

// MountRoutes registers the screens relative to the book mount point.
func (h *ConsoleHandler[T]) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.deps.RBAC.RequireAny(appshared.PermCodesView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.deps.RBAC.RequireAll(appshared.PermCodesEdit))
		r.Get("/new", h.showForm)
		r.Post("/", h.create)
		r.Post("/bulk-delete", h.bulkDelete)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
		r.Post("/{id}/action", h.action)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.deps.RBAC.RequireAny(appshared.PermCodesExport))
		r.Post("/export", h.export)
	})
}

func (h *ConsoleHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	def := h.svc.def
	st := parseListState(r.URL.Query(), h.deps.PageSize)

	v, _ := table.NewView(def.Schema(),
		table.WithKey(def.RowKey),
		table.WithPageSize[T](st.Size),
		table.WithLanguage[T](preferredLanguage(r)))
	var (
		records []T
		gen     int64
	)
	err := appshared.Track(r.Context(), func(ctx context.Context) error {
		var err error
		records, gen, err = h.svc.All(ctx)
		return err
	})
	loadErr := ""
	if err != nil {
		h.deps.Logger.Error("load code book failed", slog.String("book", def.Key), slog.Any("error", err))
		loadErr = "Could not load records. Try again shortly."
		records = nil
	}
	if st.Search != "" {
		records = searchRecords(def, records, st.Search)
	}
	v.SetRecords(records, uint64(gen))
	v.SetSort(st.sortSpec())
	for key, value := range st.Filters {
		v.SetFilter(key, table.Contains(value))
	}
	v.SetPage(st.Page - 1)
	res := v.Result()

	pager := table.RestorePager(res.PageIndex+1, res.TotalPages, st.WindowStart, h.deps.Window)
	st.Page, st.WindowStart = pager.Current(), pager.WindowStart()

	model := listView{
		Key:        def.Key,
		Title:      def.Title,
		Singular:   def.Singular,
		BasePath:   h.basePath(),
		Empty:      res.Empty,
		Loading:    res.Loading,
		Skeleton:   make([]int, res.SkeletonRows(0)),
		ColSpan:    res.ColumnCount() + 2,
		Error:      loadErr,
		Generation: gen,
		Search:     st.Search,
		State:      st.values(),
		Return:     st.values().Encode(),
		PageSizes:  pageSizes,
		PageSize:   st.Size,
		CanEdit:    h.deps.RBAC.Can(r, appshared.PermCodesEdit),
		CanExport:  h.deps.RBAC.Can(r, appshared.PermCodesExport),
	}
	for _, col := range res.Columns {
		model.Headers = append(model.Headers, headerView{
			Key:         col.Key,
			Label:       col.Header,
			Sortable:    col.Sortable,
			Filterable:  col.Filterable,
			Sorted:      col.Sorted,
			Desc:        col.Sorted && col.Direction == table.Descending,
			SortURL:     h.url(st.withSortToggled(col.Key)),
			FilterValue: st.Filters[col.Key],
		})
	}
	for _, row := range res.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Display
		}
		model.Rows = append(model.Rows, rowView{ID: row.ID, Cells: cells, Selected: row.Selected})
	}
	if model.CanEdit {
		for _, item := range h.actions(r, nil).Items() {
			model.Actions = append(model.Actions, actionView{Kind: string(item.Kind), Label: item.Label, Destructive: item.Destructive})
		}
	}
	model.Pager = h.pagerView(st, pager, res)

	h.render(w, r, "pages/codebook_list.html", def.Title, model, http.StatusOK)
}

func (h *ConsoleHandler[T]) pagerView(st listState, pager *table.Pager, res table.Result[T]) pagerView {
	pv := pagerView{TotalPages: pager.Total(), CurrentPage: pager.Current(), TotalRows: res.TotalRows}
	if res.TotalRows > 0 && res.PageSize > 0 {
		pv.From = res.PageIndex*res.PageSize + 1
		pv.To = min(pv.From+len(res.Rows)-1, res.TotalRows)
	} else if res.TotalRows > 0 {
		pv.From, pv.To = 1, res.TotalRows
	}
	for _, n := range pager.Window().Pages {
		pv.Links = append(pv.Links, pageLink{Number: n, URL: h.url(st.withPage(n, pager.WindowStart())), Current: n == pager.Current()})
	}
	if pager.CanPrevious() {
		prev := table.RestorePager(pager.Current(), pager.Total(), pager.WindowStart(), h.deps.Window)
		prev.Previous()
		pv.PrevURL = h.url(st.withPage(prev.Current(), prev.WindowStart()))
		first := table.RestorePager(pager.Current(), pager.Total(), pager.WindowStart(), h.deps.Window)
		first.Reset()
		pv.FirstURL = h.url(st.withPage(first.Current(), first.WindowStart()))
	}
	if pager.CanNext() {
		next := table.RestorePager(pager.Current(), pager.Total(), pager.WindowStart(), h.deps.Window)
		next.Next()
		pv.NextURL = h.url(st.withPage(next.Current(), next.WindowStart()))
		last := table.RestorePager(pager.Current(), pager.Total(), pager.WindowStart(), h.deps.Window)
		last.GoTo(pager.Total())
		pv.LastURL = h.url(st.withPage(last.Current(), last.WindowStart()))
	}
	return pv
}

func (h *ConsoleHandler[T]) url(st listState) string {
	q := st.values().Encode()
	if q == "" {
		return h.basePath()
	}
	return h.basePath() + "?" + q
}

// returnURL rebuilds the list URL from the posted "return" field. Only the
// query string is taken from the client, never the path.
func (h *ConsoleHandler[T]) returnURL(r *http.Request) string {
	raw := r.PostFormValue("return")
	if raw == "" {
		return h.basePath()
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return h.basePath()
	}
	return h.url(parseListState(q, h.deps.PageSize))
}

// actions wires the row menu to the console operations. The callbacks
// write the redirect into target.
func (h *ConsoleHandler[T]) actions(r *http.Request, target *string) table.Actions[T] {
	ctx := r.Context()
	actor, _ := rbac.CurrentUserID(ctx, h.deps.Logger)
	def := h.svc.def
	return table.Actions[T]{
		OnEdit: func(rec T) error {
			*target = h.basePath() + "/" + def.RowKey(rec) + "/edit"
			return nil
		},
		OnDuplicate: func(rec T) error {
			created, err := h.svc.Duplicate(ctx, actor, def.ID(rec))
			if err != nil {
				return err
			}
			view.Flash(r, "success", fmt.Sprintf("%s %s duplicated as %s", def.Singular, def.Code(rec), def.Code(created)))
			*target = h.basePath() + "/" + def.RowKey(created) + "/edit"
			return nil
		},
		OnDelete: func(rec T) error {
			if err := h.svc.Delete(ctx, actor, def.ID(rec)); err != nil {
				return err
			}
			view.Flash(r, "success", fmt.Sprintf("%s %s deleted", def.Singular, def.Code(rec)))
			return nil
		},
	}
}

func (h *ConsoleHandler[T]) action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	back := h.returnURL(r)
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", err.Error())
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", userMessage(err))
		return
	}
	target := back
	kind := table.ActionKind(r.PostFormValue("kind"))
	if err := h.actions(r, &target).Dispatch(kind, rec); err != nil {
		h.deps.Logger.Warn("row action failed", slog.String("book", h.svc.def.Key), slog.String("kind", string(kind)), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, "error", userMessage(err))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// bulkDelete deletes the checked rows. The posted generation must match the
// current one; selections made against an older snapshot are rejected.
func (h *ConsoleHandler[T]) bulkDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	back := h.returnURL(r)
	def := h.svc.def

	records, gen, err := h.svc.All(r.Context())
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", userMessage(err))
		return
	}
	posted, _ := strconv.ParseInt(r.PostFormValue("gen"), 10, 64)
	if posted != gen {
		h.redirectWithFlash(w, r, back, "error", userMessage(shared.ErrStaleSelection))
		return
	}

	v, handle := table.NewView(def.Schema(), table.WithKey(def.RowKey))
	v.SetRecords(records, uint64(gen))
	v.Select(r.PostForm["ids"]...)
	selected := handle.GetSelectedRows()
	if len(selected) == 0 {
		h.redirectWithFlash(w, r, back, "error", userMessage(shared.ErrNoSelection))
		return
	}
	ids := make([]int64, len(selected))
	for i, rec := range selected {
		ids[i] = def.ID(rec)
	}
	handle.ClearSelection()

	actor, _ := rbac.CurrentUserID(r.Context(), h.deps.Logger)
	n, err := h.svc.BulkDelete(r.Context(), actor, ids)
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", userMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", fmt.Sprintf("%d %s deleted", n, strings.ToLower(def.Title)))
}

func (h *ConsoleHandler[T]) export(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	back := h.returnURL(r)
	actor, _ := rbac.CurrentUserID(r.Context(), h.deps.Logger)
	id, err := h.svc.Export(r.Context(), actor)
	if err != nil {
		h.deps.Logger.Error("enqueue export failed", slog.String("book", h.svc.def.Key), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, "error", "Export could not be queued")
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Export queued as job "+id)
}

// formView is the template model of the create and edit screens.
type formView struct {
	Key      string
	Title    string
	Singular string
	BasePath string
	Action   string
	Editing  bool
	Fields   []formField
	Errors   map[string]string
	Return   string
}

// CancelURL leads back to the list the form was opened from.
func (fv formView) CancelURL() string {
	if fv.Return == "" {
		return fv.BasePath
	}
	return fv.BasePath + "?" + fv.Return
}

type formField struct {
	Name     string
	Label    string
	Input    string
	Value    string
	Checked  bool
	Error    string
	Required bool
}

func (h *ConsoleHandler[T]) formModel(values map[string]string, errs map[string]string, id int64) formView {
	def := h.svc.def
	fv := formView{
		Key:      def.Key,
		Title:    def.Title,
		Singular: def.Singular,
		BasePath: h.basePath(),
		Action:   h.basePath(),
		Errors:   errs,
	}
	if id > 0 {
		fv.Editing = true
		fv.Action = h.basePath() + "/" + strconv.FormatInt(id, 10)
	}
	for _, f := range def.AllFields() {
		input := f.Input
		if input == "" {
			input = InputText
		}
		fv.Fields = append(fv.Fields, formField{
			Name:     f.Name,
			Label:    f.Label,
			Input:    input,
			Value:    values[f.Name],
			Checked:  values[f.Name] == "true",
			Error:    errs[f.Name],
			Required: f.Name == "code" || f.Name == "name",
		})
	}
	return fv
}

func (h *ConsoleHandler[T]) showForm(w http.ResponseWriter, r *http.Request) {
	var zero T
	values := h.svc.def.Values(zero)
	for _, f := range h.svc.def.AllFields() {
		if f.Input == InputNumber && values[f.Name] == "0" {
			values[f.Name] = ""
		}
	}
	fv := h.formModel(values, map[string]string{}, 0)
	fv.Return = r.URL.Query().Get("return")
	h.render(w, r, "pages/codebook_form.html", "New "+h.svc.def.Singular, fv, http.StatusOK)
}

func (h *ConsoleHandler[T]) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, h.basePath(), "error", userMessage(err))
		return
	}
	fv := h.formModel(h.svc.def.Values(rec), map[string]string{}, id)
	fv.Return = r.URL.Query().Get("return")
	h.render(w, r, "pages/codebook_form.html", "Edit "+h.svc.def.Singular, fv, http.StatusOK)
}

func (h *ConsoleHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0)
}

func (h *ConsoleHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.save(w, r, id)
}

func (h *ConsoleHandler[T]) save(w http.ResponseWriter, r *http.Request, id int64) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	def := h.svc.def
	title := "New " + def.Singular
	if id > 0 {
		title = "Edit " + def.Singular
	}

	rec, decodeErrs := def.Decode(func(name string) (string, bool) {
		v, ok := r.PostForm[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	})
	var err error
	if len(decodeErrs) > 0 {
		err = decodeErrs
	} else {
		actor, _ := rbac.CurrentUserID(r.Context(), h.deps.Logger)
		if id > 0 {
			rec, err = h.svc.Update(r.Context(), actor, id, rec)
		} else {
			rec, err = h.svc.Create(r.Context(), actor, rec)
		}
	}
	if err != nil {
		values := map[string]string{}
		for _, f := range def.AllFields() {
			values[f.Name] = r.PostFormValue(f.Name)
			if f.Input == InputCheckbox {
				_, checked := r.PostForm[f.Name]
				values[f.Name] = strconv.FormatBool(checked)
			}
		}
		errs := map[string]string{}
		var fe httpx.FieldErrors
		switch {
		case errors.As(err, &fe):
			errs = fe
		case errors.Is(err, httpx.ErrDuplicate):
			errs["code"] = "is already in use"
		default:
			errs["general"] = userMessage(err)
		}
		fv := h.formModel(values, errs, id)
		fv.Return = r.PostFormValue("return")
		status := httpx.StatusFor(err)
		if status == http.StatusNotFound {
			h.redirectWithFlash(w, r, h.basePath(), "error", userMessage(err))
			return
		}
		h.render(w, r, "pages/codebook_form.html", title, fv, status)
		return
	}

	verb := "created"
	if id > 0 {
		verb = "updated"
	}
	h.redirectWithFlash(w, r, h.returnURL(r), "success", fmt.Sprintf("%s %s %s", def.Singular, def.Code(rec), verb))
}

func (h *ConsoleHandler[T]) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	td := h.deps.Layout.Data(r, title, data)
	if err := h.deps.Templates.RenderStatus(w, status, template, td); err != nil {
		h.deps.Logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *ConsoleHandler[T]) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	view.Flash(r, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrInvalidID
	}
	return id, nil
}

// userMessage turns err into text safe to show in the console.
func userMessage(err error) string {
	var fe httpx.FieldErrors
	switch {
	case errors.As(err, &fe):
		return "Please correct the highlighted fields"
	case errors.Is(err, shared.ErrStaleSelection):
		return "The list changed since you made your selection. Select the rows again."
	case errors.Is(err, shared.ErrNoSelection):
		return "Select at least one row first"
	case errors.Is(err, httpx.ErrNotFound):
		return "Record not found"
	case errors.Is(err, httpx.ErrDuplicate):
		return "That code is already in use"
	case errors.Is(err, table.ErrActionUnavailable):
		return "That action is not available"
	case errors.Is(err, httpx.ErrValidation):
		return "Invalid request"
	default:
		return "Something went wrong. Try again."
	}
}

// preferredLanguage picks the first Accept-Language tag for collation.
func preferredLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	return tags[0]
}
