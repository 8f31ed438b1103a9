package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

const userColumns = `id, email, role_id, active, metadata, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var meta []byte
	if err := row.Scan(&u.ID, &u.Email, &u.RoleID, &u.Active, &meta, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.Metadata, err = unmarshalJSON(meta); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User, secret string) error {
	meta, err := marshalJSON(u.Metadata)
	if err != nil {
		return err
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO users (email, role_id, active, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, query, u.Email, u.RoleID, u.Active, meta, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			return err
		}
		return insertCredential(ctx, tx, u.ID, secret, u.CreatedAt)
	})
}

func insertCredential(ctx context.Context, tx *sql.Tx, userID, secret string, at time.Time) error {
	query := `
		INSERT INTO credentials (user_id, active, secret, created_at)
		VALUES ($1, TRUE, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, query, userID, secret, at); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users `+activeScope("id = $1"), id)
}

// GetByEmail matches the email exactly; stored addresses keep their case.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users `+activeScope("email = $1"), email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	total, err := countRows(ctx, r.DB, `SELECT COUNT(*) FROM users `+activeScope())
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	query := `SELECT ` + userColumns + ` FROM users ` + activeScope() + `
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []*domain.User{}
	}
	return list, total, nil
}

// ListCredentials returns the user's active credentials.
func (r *userRepository) ListCredentials(ctx context.Context, userID string) ([]domain.Credential, error) {
	query := `
		SELECT id, user_id, active, secret, created_at
		FROM credentials
		` + activeScope("user_id = $1") + `
		ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.Credential
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Active, &c.Secret, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	meta, err := marshalJSON(u.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE users
		SET email = $1, role_id = $2, metadata = $3, updated_at = $4
		` + activeScope("id = $5")
	res, err := r.DB.ExecContext(ctx, query, u.Email, u.RoleID, meta, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return expectOneRow(res)
}

func (r *userRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE users SET active = FALSE, updated_at = $1 ` + activeScope("id = $2")
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *userRepository) RotateCredential(ctx context.Context, userID, secret string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `UPDATE credentials SET active = FALSE ` + activeScope("user_id = $1")
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("deactivate credentials: %w", err)
		}
		return insertCredential(ctx, tx, userID, secret, time.Now().UTC())
	})
}
