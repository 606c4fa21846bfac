package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads role and permission data.
type Store interface {
	UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	ListGrants(ctx context.Context) ([]Grant, error)
}

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore constructs a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// UserEffectivePermissions returns the permission names granted through any
// of the user's roles.
func (s *PgStore) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListGrants returns every permission with its granting roles.
func (s *PgStore) ListGrants(ctx context.Context) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.description,
		       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}')
		FROM permissions p
		LEFT JOIN role_permissions rp ON rp.permission_id = p.id
		LEFT JOIN roles r ON r.id = rp.role_id
		GROUP BY p.id, p.name, p.description
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Roles); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
