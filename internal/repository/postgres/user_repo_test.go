package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

var userCols = []string{"id", "email", "role_id", "active", "metadata", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "user and credential in one tx",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO users \(email, role_id, active, metadata, created_at, updated_at\)`).
					WithArgs("jane@example.com", "role-1", true, []byte(`{"full_name":"Jane Doe"}`), t0, t0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
				mock.ExpectExec(`INSERT INTO credentials \(user_id, active, secret, created_at\)`).
					WithArgs("user-1", "hash", t0).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "duplicate email",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnError(&pq.Error{Code: "23505"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name: "credential failure rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
				mock.ExpectExec(`INSERT INTO credentials`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: sql.ErrConnDone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			u := &domain.User{
				Email: "jane@example.com", RoleID: "role-1", Active: true,
				Metadata: map[string]any{"full_name": "Jane Doe"}, CreatedAt: t0, UpdatedAt: t0,
			}
			err = NewUserRepository(db).Create(ctx, u, "hash")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "user-1", u.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE active = TRUE AND email = \$1`).
		WithArgs("Jane@Example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "Jane@Example.com", "role-1", true, []byte(`{"full_name":"Jane Doe"}`), t0, t0))
	mock.ExpectQuery(`FROM users WHERE active = TRUE AND email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepository(db)
	u, err := repo.GetByEmail(context.Background(), "Jane@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u.FullName())

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE active = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM users WHERE active = TRUE ORDER BY created_at, id LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "jane@example.com", "role-1", true, []byte(`{}`), t0, t0))

	list, total, err := NewUserRepository(db).List(context.Background(), domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM credentials WHERE active = TRUE AND user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "active", "secret", "created_at"}).
			AddRow("cred-1", "user-1", true, "hash", t0))

	creds, err := NewUserRepository(db).ListCredentials(context.Background(), "user-1")
	require.NoError(t, err)
	u := &domain.User{Credentials: creds}
	c, err := u.ActiveCredential()
	require.NoError(t, err)
	assert.Equal(t, "hash", c.Secret)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	u := &domain.User{ID: "user-1", Email: "jane@example.com", RoleID: "role-1", UpdatedAt: t1}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "updated",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users SET email = \$1, role_id = \$2, metadata = \$3, updated_at = \$4 WHERE active = TRUE AND id = \$5`).
					WithArgs("jane@example.com", "role-1", []byte(`{}`), t1, "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "email taken",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name: "inactive",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewUserRepository(db).Update(ctx, u)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_RotateCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE credentials SET active = FALSE WHERE active = TRUE AND user_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO credentials`).
		WithArgs("user-1", "new-hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewUserRepository(db).RotateCredential(context.Background(), "user-1", "new-hash"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET active = FALSE, updated_at = \$1 WHERE active = TRUE AND id = \$2`).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewUserRepository(db).Deactivate(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
