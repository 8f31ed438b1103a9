package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

const eventColumns = `id, title, description, start_date, end_date, status, active, assistant_limit, metadata, created_by_id, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var status int
	var meta []byte
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &status, &e.Active,
		&e.AssistantLimit, &meta, &e.CreatedByID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	if e.Metadata, err = unmarshalJSON(meta); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (title, description, start_date, end_date, status, active, assistant_limit, metadata, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, int(e.Status), e.Active,
		e.AssistantLimit, meta, e.CreatedByID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ` + activeScope("id = $1")
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	total, err := countRows(ctx, r.DB, `SELECT COUNT(*) FROM events `+activeScope())
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	query := `SELECT ` + eventColumns + ` FROM events ` + activeScope() + `
		ORDER BY start_date, id
		LIMIT $1 OFFSET $2`
	events, err := r.query(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ` + activeScope("start_date <= $1", "end_date >= $2") + `
		ORDER BY start_date`
	return r.query(ctx, query, end, start)
}

func (r *eventRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Event{}
	}
	return list, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE events
		SET title = $1, description = $2, start_date = $3, end_date = $4, status = $5,
			assistant_limit = $6, metadata = $7, updated_at = $8
		` + activeScope("id = $9")
	res, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, int(e.Status),
		e.AssistantLimit, meta, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *eventRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE events SET active = FALSE, updated_at = $1 ` + activeScope("id = $2")
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
