package codebook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/loomworks/erpconsole/internal/platform/cache"
	appshared "github.com/loomworks/erpconsole/internal/shared"
)

type thread struct {
	Base
	Color  string `json:"color" validate:"max=10"`
	Weight int    `json:"weight" validate:"gte=0"`
	Active bool   `json:"active"`
}

var threadDef = (&Definition[thread]{
	Key:      "thread-codes",
	Title:    "Thread Codes",
	Singular: "Thread Code",
	Table:    "thread_codes",
	Base:     func(t *thread) *Base { return &t.Base },
	Fields: []Field[thread]{
		{Name: "color", Column: "color", Label: "Color", Input: InputText, Filterable: true, Searchable: true,
			Ptr: func(t *thread) any { return &t.Color }},
		{Name: "weight", Column: "weight", Label: "Weight", Input: InputNumber, Sortable: true,
			Ptr: func(t *thread) any { return &t.Weight }},
		{Name: "active", Column: "active", Label: "Active", Input: InputCheckbox, Hidden: true,
			Ptr: func(t *thread) any { return &t.Active }},
	},
}).MustValidate()

func seedThreads(n int) []thread {
	colors := []string{"Red", "Blue", "Green"}
	out := make([]thread, n)
	for i := range out {
		out[i] = thread{
			Base:   Base{Code: fmt.Sprintf("T%03d", i+1), Name: fmt.Sprintf("Thread %d", i+1)},
			Color:  colors[i%len(colors)],
			Weight: 10 + i%5,
			Active: i%2 == 0,
		}
	}
	return out
}

type auditSpy struct {
	mu      sync.Mutex
	entries []appshared.AuditLog
}

func (a *auditSpy) Record(_ context.Context, log appshared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func (a *auditSpy) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type metricsSpy struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *metricsSpy) RecordMutation(book, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[book+"/"+action]++
}

type exporterStub struct {
	books []string
}

func (e *exporterStub) EnqueueExport(_ context.Context, book string, _ int64) (string, error) {
	e.books = append(e.books, book)
	return "job-1", nil
}

func newTestCache(t *testing.T) *cache.Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewVersioned(client, "test", time.Minute)
}
