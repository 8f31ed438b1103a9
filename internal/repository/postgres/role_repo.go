package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

type roleRepository struct {
	DB *sql.DB
}

func NewRoleRepository(db *sql.DB) domain.RoleRepository {
	return &roleRepository{DB: db}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO roles (name, slug)
			VALUES ($1, $2)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query, role.Name, role.Slug).Scan(&role.ID); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateSlug
			}
			return err
		}
		return insertPermissions(ctx, tx, role.ID, role.Permissions)
	})
}

func insertPermissions(ctx context.Context, tx *sql.Tx, roleID string, perms []domain.Permission) error {
	query := `
		INSERT INTO permissions (role_id, resource, verbs, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range perms {
		p := &perms[i]
		if err := tx.QueryRowContext(ctx, query, roleID, p.Resource, pq.Array(p.Verbs), i).Scan(&p.ID); err != nil {
			return err
		}
		p.RoleID = roleID
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, `SELECT id, name, slug FROM roles WHERE id = $1`, id)
}

func (r *roleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	return r.getOne(ctx, `SELECT id, name, slug FROM roles WHERE slug = $1`, slug)
}

func (r *roleRepository) getOne(ctx context.Context, query, arg string) (*domain.Role, error) {
	role := &domain.Role{}
	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&role.ID, &role.Name, &role.Slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	perms, err := r.permissions(ctx, []string{role.ID})
	if err != nil {
		return nil, err
	}
	role.Permissions = perms[role.ID]
	if role.Permissions == nil {
		role.Permissions = []domain.Permission{}
	}
	return role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, slug FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*domain.Role
	var ids []string
	for rows.Next() {
		role := &domain.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Slug); err != nil {
			return nil, err
		}
		list = append(list, role)
		ids = append(ids, role.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []*domain.Role{}, nil
	}
	perms, err := r.permissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, role := range list {
		role.Permissions = perms[role.ID]
		if role.Permissions == nil {
			role.Permissions = []domain.Permission{}
		}
	}
	return list, nil
}

// permissions loads the permissions of roleIDs keyed by role id.
func (r *roleRepository) permissions(ctx context.Context, roleIDs []string) (map[string][]domain.Permission, error) {
	query := `
		SELECT id, role_id, resource, verbs
		FROM permissions
		WHERE role_id = ANY($1)
		ORDER BY role_id, position
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(roleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]domain.Permission, len(roleIDs))
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.Resource, pq.Array(&p.Verbs)); err != nil {
			return nil, err
		}
		out[p.RoleID] = append(out[p.RoleID], p)
	}
	return out, rows.Err()
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID string, perms []domain.Permission) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		return insertPermissions(ctx, tx, roleID, perms)
	})
}
