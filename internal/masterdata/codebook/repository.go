package codebook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/db"
)

// PgStore implements Store on PostgreSQL. Queries are built from the
// Definition; only whitelisted column names ever reach the SQL text.
type PgStore[T any] struct {
	pool *pgxpool.Pool
	def  *Definition[T]
}

// NewPgStore constructs a PgStore.
func NewPgStore[T any](pool *pgxpool.Pool, def *Definition[T]) *PgStore[T] {
	return &PgStore[T]{pool: pool, def: def}
}

func (s *PgStore[T]) selectList() string {
	fields := s.def.AllFields()
	cols := make([]string, 0, len(fields)+3)
	cols = append(cols, "id")
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

// where builds the WHERE clause shared by the count and page queries.
func (s *PgStore[T]) where(filters shared.ListFilters) (string, []any) {
	var conds []string
	var args []any
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		placeholder := "$" + strconv.Itoa(len(args))
		var ors []string
		for _, f := range s.def.AllFields() {
			if f.Searchable {
				ors = append(ors, f.Column+"::text ILIKE "+placeholder)
			}
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	for name, value := range filters.Columns {
		f, ok := s.def.Field(name)
		if !ok || !f.Filterable {
			continue
		}
		args = append(args, "%"+value+"%")
		conds = append(conds, f.Column+"::text ILIKE $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PgStore[T]) sortOrder(sortBy string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	switch sortBy {
	case "created_at", "updated_at":
		return sortBy + " " + dir + ", id"
	}
	if f, ok := s.def.Field(sortBy); ok && f.Sortable {
		return f.Column + " " + dir + ", id"
	}
	return "code ASC, id"
}

// List uses a dynamic query built from the filters.
func (s *PgStore[T]) List(ctx context.Context, filters shared.ListFilters) ([]T, int, error) {
	where, args := s.where(filters)

	var total int
	countQuery := "SELECT COUNT(*) FROM " + s.def.Table + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("codebook: %s: count: %w", s.def.Key, err)
	}

	query := "SELECT " + s.selectList() + " FROM " + s.def.Table + where +
		" ORDER BY " + s.sortOrder(filters.SortBy, filters.Desc())
	if filters.Limit > 0 {
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filters.Limit, offset)
		query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	}

	items, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("codebook: %s: list: %w", s.def.Key, err)
	}
	return items, total, nil
}

// All returns every record in insertion order.
func (s *PgStore[T]) All(ctx context.Context) ([]T, error) {
	items, err := s.query(ctx, "SELECT "+s.selectList()+" FROM "+s.def.Table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("codebook: %s: all: %w", s.def.Key, err)
	}
	return items, nil
}

func (s *PgStore[T]) query(ctx context.Context, sql string, args ...any) ([]T, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var rec T
		if err := rows.Scan(s.def.scanTargets(&rec)...); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// Get fetches one record.
func (s *PgStore[T]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	err := s.pool.QueryRow(ctx, "SELECT "+s.selectList()+" FROM "+s.def.Table+" WHERE id = $1", id).
		Scan(s.def.scanTargets(&rec)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, shared.ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("codebook: %s: get: %w", s.def.Key, err)
	}
	return rec, nil
}

// Create inserts rec and returns it with the generated columns filled.
func (s *PgStore[T]) Create(ctx context.Context, rec T) (T, error) {
	cols, args := s.def.columnsFor(&rec)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	query := "INSERT INTO " + s.def.Table + " (" + strings.Join(cols, ", ") + ", created_at, updated_at)" +
		" VALUES (" + strings.Join(placeholders, ", ") + ", NOW(), NOW())" +
		" RETURNING " + s.selectList()

	var out T
	if err := s.pool.QueryRow(ctx, query, args...).Scan(s.def.scanTargets(&out)...); err != nil {
		if db.IsUniqueViolation(err) {
			return out, shared.ErrDuplicate
		}
		return out, fmt.Errorf("codebook: %s: create: %w", s.def.Key, err)
	}
	return out, nil
}

// Update overwrites every editable column of record id.
func (s *PgStore[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	cols, args := s.def.columnsFor(&rec)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = $" + strconv.Itoa(i+1)
	}
	args = append(args, id)
	query := "UPDATE " + s.def.Table + " SET " + strings.Join(sets, ", ") + ", updated_at = NOW()" +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + s.selectList()

	var out T
	err := s.pool.QueryRow(ctx, query, args...).Scan(s.def.scanTargets(&out)...)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return out, shared.ErrNotFound
	case db.IsUniqueViolation(err):
		return out, shared.ErrDuplicate
	case err != nil:
		return out, fmt.Errorf("codebook: %s: update: %w", s.def.Key, err)
	}
	return out, nil
}

// Delete removes record id.
func (s *PgStore[T]) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+s.def.Table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("codebook: %s: delete: %w", s.def.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteMany removes every listed record in one transaction. Unknown ids
// are ignored; the number of deleted rows is returned.
func (s *PgStore[T]) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, shared.ErrNoSelection
	}
	var deleted int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM "+s.def.Table+" WHERE id = ANY($1)", ids)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("codebook: %s: bulk delete: %w", s.def.Key, err)
	}
	return deleted, nil
}

// CodeExists reports whether code is taken.
func (s *PgStore[T]) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+s.def.Table+" WHERE code = $1)", code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("codebook: %s: code exists: %w", s.def.Key, err)
	}
	return exists, nil
}
