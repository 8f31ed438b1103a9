package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

const assistantColumns = `id, event_id, user_id, email, full_name, type, contact_metadata, metadata, active, created_at, updated_at`

type assistantRepository struct {
	DB *sql.DB
}

func NewAssistantRepository(db *sql.DB) domain.AssistantRepository {
	return &assistantRepository{
		DB: db,
	}
}

func scanAssistant(row rowScanner) (*domain.Assistant, error) {
	a := &domain.Assistant{}
	var userID sql.NullString
	var typ int
	var contact, meta []byte
	err := row.Scan(
		&a.ID, &a.EventID, &userID, &a.Email, &a.FullName, &typ,
		&contact, &meta, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		a.UserID = &userID.String
	}
	a.Type = domain.AssistantType(typ)
	if a.ContactMetadata, err = unmarshalJSON(contact); err != nil {
		return nil, err
	}
	if a.Metadata, err = unmarshalJSON(meta); err != nil {
		return nil, err
	}
	return a, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *assistantRepository) Create(ctx context.Context, a *domain.Assistant) error {
	contact, err := marshalJSON(a.ContactMetadata)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(a.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO assistants (event_id, user_id, email, full_name, type, contact_metadata, metadata, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		a.EventID, nullableString(a.UserID), a.Email, a.FullName, int(a.Type),
		contact, meta, a.Active, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *assistantRepository) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistants ` + activeScope("id = $1")
	a, err := scanAssistant(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *assistantRepository) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Assistant, int, error) {
	total, err := r.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("count assistants: %w", err)
	}
	query := `SELECT ` + assistantColumns + ` FROM assistants ` + activeScope("event_id = $1") + `
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*domain.Assistant
	for rows.Next() {
		a, err := scanAssistant(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []*domain.Assistant{}
	}
	return list, total, nil
}

func (r *assistantRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	return countRows(ctx, r.DB, `SELECT COUNT(*) FROM assistants `+activeScope("event_id = $1"), eventID)
}

func (r *assistantRepository) Update(ctx context.Context, a *domain.Assistant) error {
	contact, err := marshalJSON(a.ContactMetadata)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(a.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE assistants
		SET user_id = $1, email = $2, full_name = $3, type = $4, contact_metadata = $5,
			metadata = $6, updated_at = $7
		` + activeScope("id = $8")
	res, err := r.DB.ExecContext(ctx, query,
		nullableString(a.UserID), a.Email, a.FullName, int(a.Type), contact, meta, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *assistantRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE assistants SET active = FALSE, updated_at = $1 ` + activeScope("id = $2")
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
