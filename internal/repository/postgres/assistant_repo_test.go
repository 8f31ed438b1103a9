package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

var assistantCols = []string{"id", "event_id", "user_id", "email", "full_name", "type", "contact_metadata", "metadata", "active", "created_at", "updated_at"}

func TestAssistantRepository_Create(t *testing.T) {
	userID := "user-1"

	tests := []struct {
		name   string
		userID *string
		want   any
	}{
		{name: "linked user", userID: &userID, want: "user-1"},
		{name: "no user", userID: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`INSERT INTO assistants \(event_id, user_id, email, full_name, type, contact_metadata, metadata, active, created_at, updated_at\)`).
				WithArgs("ev-1", tt.want, "jane@example.com", "Jane Doe", 1, []byte(`{"phone":"1"}`), []byte(`{"theme":"go"}`), true, t0, t0).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("as-1"))

			a := &domain.Assistant{
				EventID: "ev-1", UserID: tt.userID, Email: "jane@example.com", FullName: "Jane Doe",
				Type: domain.AssistantSpeaker, ContactMetadata: map[string]any{"phone": "1"},
				Metadata: map[string]any{"theme": "go"}, Active: true, CreatedAt: t0, UpdatedAt: t0,
			}
			require.NoError(t, NewAssistantRepository(db).Create(context.Background(), a))
			assert.Equal(t, "as-1", a.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAssistantRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM assistants WHERE active = TRUE AND id = \$1`).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows(assistantCols).
			AddRow("as-1", "ev-1", nil, "jane@example.com", "Jane Doe", 1, []byte(`{"phone":"1"}`), []byte(`{}`), true, t0, t0))
	mock.ExpectQuery(`FROM assistants WHERE active = TRUE AND id = \$1`).
		WithArgs("as-2").
		WillReturnError(sql.ErrNoRows)

	repo := NewAssistantRepository(db)
	got, err := repo.GetByID(context.Background(), "as-1")
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Equal(t, domain.AssistantSpeaker, got.Type)
	assert.Equal(t, "1", got.ContactMetadata["phone"])

	_, err = repo.GetByID(context.Background(), "as-2")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssistantRepository_ListByEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assistants WHERE active = TRUE AND event_id = \$1`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM assistants WHERE active = TRUE AND event_id = \$1 ORDER BY created_at, id LIMIT \$2 OFFSET \$3`).
		WithArgs("ev-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(assistantCols))

	list, total, err := NewAssistantRepository(db).ListByEvent(context.Background(), "ev-1", domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssistantRepository_CountByEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assistants WHERE active = TRUE AND event_id = \$1`).
		WithArgs("ev-1").
		WillReturnError(sql.ErrConnDone)

	_, err = NewAssistantRepository(db).CountByEvent(context.Background(), "ev-1")
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssistantRepository_UpdateAndSoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE assistants SET .* WHERE active = TRUE AND id = \$8`).
		WithArgs(nil, "jane@example.com", "Jane Doe", 0, []byte(`{}`), []byte(`{}`), t1, "as-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE assistants SET active = FALSE`).
		WithArgs(sqlmock.AnyArg(), "as-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAssistantRepository(db)
	a := &domain.Assistant{ID: "as-1", Email: "jane@example.com", FullName: "Jane Doe", UpdatedAt: t1}
	require.ErrorIs(t, repo.Update(context.Background(), a), domain.ErrNotFound)
	require.NoError(t, repo.SoftDelete(context.Background(), "as-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
