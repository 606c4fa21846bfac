package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks/erpconsole/internal/shared"
)

// PgRepository reads audit_logs.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository constructs a PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const windowQuery = `
	SELECT a.occurred_at, COALESCE(a.actor_id, 0), COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.actor_id
	WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
	  AND ($3::text IS NULL OR a.entity = $3)
	  AND ($4::text IS NULL OR a.entity_id = $4)
	  AND ($5::text IS NULL OR a.action = $5)
	ORDER BY a.occurred_at DESC, a.id DESC
	OFFSET $6 LIMIT $7`

// Window implements Repository.
func (r *PgRepository) Window(ctx context.Context, f Filters, offset, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, windowQuery,
		toPgTime(f.From), toPgTime(f.To),
		optionalText(f.Entity), optionalText(f.EntityID), optionalText(f.Action),
		offset, pgtype.Int4{Int32: int32(limit), Valid: limit > 0},
	)
	if err != nil {
		return nil, fmt.Errorf("audit: window: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			at   pgtype.Timestamptz
			meta []byte
		)
		if err := rows.Scan(&at, &e.ActorID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &meta); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.At = at.Time
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

// MemoryLog keeps history in process. It records mutations like
// shared.AuditLogger and serves them back like PgRepository.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

// Record stores log.
func (m *MemoryLog) Record(_ context.Context, log shared.AuditLog) error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return fmt.Errorf("audit: action, entity and entity id are required")
	}
	at := log.At
	if at.IsZero() {
		at = m.now()
	}
	m.mu.Lock()
	m.entries = append(m.entries, Entry{
		At:       at.UTC(),
		ActorID:  log.ActorID,
		Action:   log.Action,
		Entity:   log.Entity,
		EntityID: log.EntityID,
		Meta:     log.Meta,
	})
	m.mu.Unlock()
	return nil
}

// Window implements Repository. Entries recorded later come first.
func (m *MemoryLog) Window(_ context.Context, f Filters, offset, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		switch {
		case !f.From.IsZero() && e.At.Before(f.From):
		case !f.To.IsZero() && !e.At.Before(f.To):
		case f.Entity != "" && e.Entity != f.Entity:
		case f.EntityID != "" && e.EntityID != f.EntityID:
		case f.Action != "" && e.Action != f.Action:
		default:
			matched = append(matched, e)
		}
	}
	if offset >= len(matched) {
		return []Entry{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

var (
	_ Repository = (*PgRepository)(nil)
	_ Repository = (*MemoryLog)(nil)
)
