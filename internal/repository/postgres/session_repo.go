package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

const sessionColumns = `id, event_id, title, description, start_date, end_date, active, metadata, speaker_id, created_at, updated_at`

type sessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) domain.SessionRepository {
	return &sessionRepository{
		DB: db,
	}
}

func scanSession(row rowScanner) (*domain.Session, error) {
	s := &domain.Session{}
	var meta []byte
	err := row.Scan(
		&s.ID, &s.EventID, &s.Title, &s.Description, &s.StartDate, &s.EndDate,
		&s.Active, &meta, &s.SpeakerID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.Metadata, err = unmarshalJSON(meta); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	meta, err := marshalJSON(s.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sessions (event_id, title, description, start_date, end_date, active, metadata, speaker_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		s.EventID, s.Title, s.Description, s.StartDate, s.EndDate, s.Active,
		meta, s.SpeakerID, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ` + activeScope("id = $1")
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *sessionRepository) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Session, int, error) {
	total, err := countRows(ctx, r.DB, `SELECT COUNT(*) FROM sessions `+activeScope("event_id = $1"), eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions ` + activeScope("event_id = $1") + `
		ORDER BY start_date, id
		LIMIT $2 OFFSET $3`
	list, err := r.query(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *sessionRepository) ListAllByEvent(ctx context.Context, eventID string) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ` + activeScope("event_id = $1") + `
		ORDER BY start_date`
	return r.query(ctx, query, eventID)
}

func (r *sessionRepository) ListOverlapping(ctx context.Context, eventID string, start, end time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ` +
		activeScope("event_id = $1", "start_date <= $2", "end_date >= $3") + `
		ORDER BY start_date`
	return r.query(ctx, query, eventID, end, start)
}

func (r *sessionRepository) CountBySpeaker(ctx context.Context, speakerID string) (int, error) {
	return countRows(ctx, r.DB, `SELECT COUNT(*) FROM sessions `+activeScope("speaker_id = $1"), speakerID)
}

func (r *sessionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Session, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Session{}
	}
	return list, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.Session) error {
	meta, err := marshalJSON(s.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE sessions
		SET title = $1, description = $2, start_date = $3, end_date = $4, metadata = $5,
			speaker_id = $6, updated_at = $7
		` + activeScope("id = $8")
	res, err := r.DB.ExecContext(ctx, query,
		s.Title, s.Description, s.StartDate, s.EndDate, meta, s.SpeakerID, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *sessionRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE sessions SET active = FALSE, updated_at = $1 ` + activeScope("id = $2")
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
