// Package codebook implements the storage, service and HTTP layers shared by
// every code book (yarn, item, fabric, staff, business and client codes).
// A book is described once by a Definition; everything else is generic.
package codebook

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/table"
)

// Input kinds understood by the console form renderer.
const (
	InputText     = "text"
	InputNumber   = "number"
	InputEmail    = "email"
	InputCheckbox = "checkbox"
)

// Base carries the columns every code book shares.
type Base struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=120"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field describes one editable attribute of a book record. Ptr returns a
// pointer into the record and drives scanning, SQL arguments, form parsing
// and display; it must point at a string, int, float64 or bool.
type Field[T any] struct {
	Name       string // JSON and form name
	Column     string // database column
	Label      string
	Input      string
	Sortable   bool
	Filterable bool
	Searchable bool
	Hidden     bool // omitted from the list table
	Ptr        func(*T) any
	Render     func(any) string
}

// Definition describes a code book.
type Definition[T any] struct {
	Key      string // URL segment, e.g. "yarn-codes"
	Title    string
	Singular string
	Table    string
	// Base returns the shared columns embedded in a record.
	Base   func(*T) *Base
	Fields []Field[T]

	schema *table.Schema[T]
}

// Validate checks the definition and builds its table schema.
func (d *Definition[T]) Validate() error {
	if d.Key == "" || d.Table == "" || d.Base == nil {
		return errors.New("codebook: definition requires key, table and base accessor")
	}
	var zero T
	seen := map[string]bool{"id": true, "code": true, "name": true, "created_at": true, "updated_at": true}
	for _, f := range d.Fields {
		if f.Name == "" || f.Column == "" || f.Ptr == nil {
			return fmt.Errorf("codebook: %s: field %q incomplete", d.Key, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("codebook: %s: field %q declared twice", d.Key, f.Name)
		}
		seen[f.Name] = true
		switch f.Ptr(&zero).(type) {
		case *string, *int, *float64, *bool:
		default:
			return fmt.Errorf("codebook: %s: field %q has unsupported type %T", d.Key, f.Name, f.Ptr(&zero))
		}
	}
	schema, err := table.NewSchema(d.columns()...)
	if err != nil {
		return fmt.Errorf("codebook: %s: %w", d.Key, err)
	}
	d.schema = schema
	return nil
}

// MustValidate panics when Validate fails. Meant for package-level books.
func (d *Definition[T]) MustValidate() *Definition[T] {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	return d
}

// AllFields returns code and name followed by the book fields.
func (d *Definition[T]) AllFields() []Field[T] {
	out := make([]Field[T], 0, len(d.Fields)+2)
	out = append(out,
		Field[T]{Name: "code", Column: "code", Label: "Code", Input: InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(r *T) any { return &d.Base(r).Code }},
		Field[T]{Name: "name", Column: "name", Label: "Name", Input: InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(r *T) any { return &d.Base(r).Name }},
	)
	return append(out, d.Fields...)
}

// Field looks up a field by name, including code and name.
func (d *Definition[T]) Field(name string) (Field[T], bool) {
	for _, f := range d.AllFields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// Schema returns the table schema used to render the list screen.
func (d *Definition[T]) Schema() *table.Schema[T] {
	if d.schema == nil {
		d.schema = table.MustSchema(d.columns()...)
	}
	return d.schema
}

func (d *Definition[T]) columns() []table.Column[T] {
	cols := make([]table.Column[T], 0, len(d.Fields)+3)
	for _, f := range d.AllFields() {
		if f.Hidden {
			continue
		}
		f := f
		cols = append(cols, table.Column[T]{
			Key:        f.Name,
			Header:     f.Label,
			Sortable:   f.Sortable,
			Filterable: f.Filterable,
			Accessor:   func(r T) any { return deref(f.Ptr(&r)) },
			Render:     f.Render,
		})
	}
	cols = append(cols, table.Column[T]{
		Key:      "updated_at",
		Header:   "Updated",
		Sortable: true,
		Accessor: func(r T) any { return d.Base(&r).UpdatedAt },
	})
	return cols
}

// ID returns the record id.
func (d *Definition[T]) ID(r T) int64 { return d.Base(&r).ID }

// Code returns the record code.
func (d *Definition[T]) Code(r T) string { return d.Base(&r).Code }

// RowKey returns the record id as the row identity used by the table view.
func (d *Definition[T]) RowKey(r T) string { return strconv.FormatInt(d.ID(r), 10) }

// Values returns the record attributes as a field name to display map.
func (d *Definition[T]) Values(r T) map[string]string {
	out := make(map[string]string, len(d.Fields)+2)
	for _, f := range d.AllFields() {
		v := deref(f.Ptr(&r))
		if f.Input == InputCheckbox {
			out[f.Name] = strconv.FormatBool(v.(bool))
			continue
		}
		out[f.Name] = table.FormatValue(v)
	}
	return out
}

// Decode fills a record from string values, as posted by a form. Checkbox
// fields are true when the value is present and not "false". Conversion
// problems are reported per field.
func (d *Definition[T]) Decode(get func(name string) (string, bool)) (T, httpx.FieldErrors) {
	var rec T
	errs := httpx.FieldErrors{}
	for _, f := range d.AllFields() {
		raw, ok := get(f.Name)
		raw = strings.TrimSpace(raw)
		switch p := f.Ptr(&rec).(type) {
		case *string:
			*p = raw
		case *bool:
			*p = ok && raw != "false" && raw != "0"
		case *int:
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs[f.Name] = "must be a whole number"
				continue
			}
			*p = n
		case *float64:
			if raw == "" {
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs[f.Name] = "must be a number"
				continue
			}
			*p = n
		}
	}
	if len(errs) == 0 {
		return rec, nil
	}
	return rec, errs
}

// columnsFor lists the database columns for inserts and updates in
// AllFields order, paired with argument pointers into r.
func (d *Definition[T]) columnsFor(r *T) ([]string, []any) {
	fields := d.AllFields()
	cols := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
		args[i] = f.Ptr(r)
	}
	return cols, args
}

// scanTargets returns id, fields, created_at, updated_at pointers for r.
func (d *Definition[T]) scanTargets(r *T) []any {
	b := d.Base(r)
	fields := d.AllFields()
	out := make([]any, 0, len(fields)+3)
	out = append(out, &b.ID)
	for _, f := range fields {
		out = append(out, f.Ptr(r))
	}
	return append(out, &b.CreatedAt, &b.UpdatedAt)
}

func deref(p any) any {
	switch v := p.(type) {
	case *string:
		return *v
	case *int:
		return *v
	case *float64:
		return *v
	case *bool:
		return *v
	default:
		return nil
	}
}
