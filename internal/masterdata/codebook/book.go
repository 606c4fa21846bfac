package codebook

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Book is the type-erased view of one code book used for routing, the
// sidebar and the export worker.
type Book interface {
	Key() string
	Title() string
	MountAPI(r chi.Router)
	MountConsole(r chi.Router)
	WriteCSV(ctx context.Context, w io.Writer) (int, error)
	Count(ctx context.Context) (int, error)
}

// Deps wires every layer of a book.
type Deps struct {
	Logger  *slog.Logger
	Pool    *pgxpool.Pool // nil keeps the book in memory
	Service ServiceDeps
	Console ConsoleDeps
}

// Module bundles the service and handlers of one book.
type Module[T any] struct {
	svc     *Service[T]
	api     *APIHandler[T]
	console *ConsoleHandler[T]
}

// NewModule assembles a book. Without a pool the book lives in memory and
// starts with seed.
func NewModule[T any](def *Definition[T], deps Deps, seed []T) *Module[T] {
	var store Store[T]
	if deps.Pool != nil {
		store = NewPgStore(deps.Pool, def)
	} else {
		store = NewMemoryStore(def, seed...)
	}
	return NewModuleWithStore(def, store, deps)
}

// NewModuleWithStore assembles a book over an explicit store.
func NewModuleWithStore[T any](def *Definition[T], store Store[T], deps Deps) *Module[T] {
	if deps.Service.Logger == nil {
		deps.Service.Logger = deps.Logger
	}
	if deps.Console.Logger == nil {
		deps.Console.Logger = deps.Logger
	}
	svc := NewService(def, store, deps.Service)
	return &Module[T]{
		svc:     svc,
		api:     NewAPIHandler(svc, deps.Logger, deps.Console.RBAC),
		console: NewConsoleHandler(svc, deps.Console),
	}
}

func (m *Module[T]) Key() string   { return m.svc.def.Key }
func (m *Module[T]) Title() string { return m.svc.def.Title }

// Service exposes the typed service.
func (m *Module[T]) Service() *Service[T] { return m.svc }

func (m *Module[T]) MountAPI(r chi.Router)     { m.api.MountRoutes(r) }
func (m *Module[T]) MountConsole(r chi.Router) { m.console.MountRoutes(r) }

// Count returns the number of records in the book.
func (m *Module[T]) Count(ctx context.Context) (int, error) {
	records, _, err := m.svc.All(ctx)
	return len(records), err
}

func (m *Module[T]) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	return m.svc.WriteCSV(ctx, w)
}

// Registry keeps books in sidebar order.
type Registry struct {
	books []Book
	byKey map[string]Book
}

// NewRegistry returns a registry of books; keys must be unique.
func NewRegistry(books ...Book) (*Registry, error) {
	reg := &Registry{byKey: make(map[string]Book, len(books))}
	for _, b := range books {
		if _, dup := reg.byKey[b.Key()]; dup {
			return nil, fmt.Errorf("codebook: book %q registered twice", b.Key())
		}
		reg.byKey[b.Key()] = b
		reg.books = append(reg.books, b)
	}
	return reg, nil
}

// Books returns the registered books in order.
func (r *Registry) Books() []Book {
	return r.books
}

// Lookup finds a book by key.
func (r *Registry) Lookup(key string) (Book, bool) {
	b, ok := r.byKey[key]
	return b, ok
}

// Keys lists book keys in order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.books))
	for i, b := range r.books {
		out[i] = b.Key()
	}
	return out
}

// MountAPI mounts every book under /{key} of r.
func (r *Registry) MountAPI(router chi.Router) {
	for _, b := range r.books {
		router.Route("/"+b.Key(), b.MountAPI)
	}
}

// MountConsole mounts every book screen under /{key} of r.
func (r *Registry) MountConsole(router chi.Router) {
	for _, b := range r.books {
		router.Route("/"+b.Key(), b.MountConsole)
	}
}
