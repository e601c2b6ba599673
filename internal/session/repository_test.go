package session

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "trainer_id", "session_date", "session_time", "type", "status", "max_clients",
	"clients_enrolled", "price_cents", "start_at", "end_at", "created_at", "updated_at",
}

func setupRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewRepository(sqlx.NewDb(mockDB, "sqlmock")), smock
}

func row(status Status, capacity int, enrolled string) []driver.Value {
	now := time.Now()
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{int64(10), int64(2), day, "09:30", "yoga", string(status), int64(capacity), enrolled, int64(1500), nil, nil, now, now}
}

func TestRepositoryCreate(t *testing.T) {
	repo, smock := setupRepo(t)
	d, _ := ParseDate("2026-05-01")
	s := &Session{TrainerID: 2, Date: d, Time: "09:30", Type: "yoga", MaxClients: 3, PriceCents: 1500}

	smock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sessions (trainer_id, session_date, session_time, type, status, max_clients, price_cents) VALUES ($1, $2, $3, $4, 'pending', $5, $6)")).
		WithArgs(2, "2026-05-01", "09:30", "yoga", 3, 1500).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row(StatusPending, 3, "{}")...))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, int64(10), s.ID)
	assert.Equal(t, StatusPending, s.Status)
	assert.Empty(t, s.ClientsEnrolled)
	assert.Equal(t, "2026-05-01", s.Date.String())
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestRepositoryEnroll(t *testing.T) {
	enroll := regexp.QuoteMeta("SET clients_enrolled = array_append(clients_enrolled, $2::bigint)")
	reread := regexp.QuoteMeta("FROM sessions WHERE id = $1")

	t.Run("first enrollment confirms", func(t *testing.T) {
		repo, smock := setupRepo(t)
		smock.ExpectQuery(enroll).WithArgs(10, 5).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row(StatusConfirmed, 1, "{5}")...))

		s, err := repo.Enroll(context.Background(), 10, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, s.Status)
		assert.True(t, s.IsEnrolled(5))
		assert.True(t, s.IsFull())
		assert.NoError(t, smock.ExpectationsWereMet())
	})

	tests := []struct {
		name    string
		current []driver.Value
		wantErr error
	}{
		{name: "full", current: row(StatusConfirmed, 1, "{4}"), wantErr: ErrSessionFull},
		{name: "already enrolled", current: row(StatusConfirmed, 3, "{4,5}"), wantErr: ErrAlreadyEnrolled},
		{name: "in progress", current: row(StatusInProgress, 3, "{4}"), wantErr: ErrSessionNotJoinable},
		{name: "cancelled", current: row(StatusCancelled, 3, "{}"), wantErr: ErrSessionNotJoinable},
		{name: "raced", current: row(StatusConfirmed, 3, "{4}"), wantErr: ErrSessionChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, smock := setupRepo(t)
			smock.ExpectQuery(enroll).WithArgs(10, 5).WillReturnRows(sqlmock.NewRows(columns))
			smock.ExpectQuery(reread).WithArgs(10).WillReturnRows(sqlmock.NewRows(columns).AddRow(tt.current...))

			_, err := repo.Enroll(context.Background(), 10, 5)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, smock.ExpectationsWereMet())
		})
	}

	t.Run("missing session", func(t *testing.T) {
		repo, smock := setupRepo(t)
		smock.ExpectQuery(enroll).WithArgs(99, 5).WillReturnRows(sqlmock.NewRows(columns))
		smock.ExpectQuery(reread).WithArgs(99).WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Enroll(context.Background(), 99, 5)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		repo, smock := setupRepo(t)
		smock.ExpectQuery(enroll).WithArgs(10, 5).WillReturnError(errors.New("connection reset"))

		_, err := repo.Enroll(context.Background(), 10, 5)
		assert.EqualError(t, err, "connection reset")
	})
}

func TestRepositoryTransition(t *testing.T) {
	update := regexp.QuoteMeta("WHERE id = $1 AND status = ANY($3::text[])")

	t.Run("moved", func(t *testing.T) {
		repo, smock := setupRepo(t)
		smock.ExpectQuery(update).WithArgs(10, "in_progress", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row(StatusInProgress, 3, "{4}")...))

		s, err := repo.Transition(context.Background(), 10, StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, s.Status)
	})

	t.Run("guard rejected", func(t *testing.T) {
		repo, smock := setupRepo(t)
		smock.ExpectQuery(update).WithArgs(10, "completed", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Transition(context.Background(), 10, StatusCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("no predecessors", func(t *testing.T) {
		repo, smock := setupRepo(t)
		_, err := repo.Transition(context.Background(), 10, StatusPending)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.NoError(t, smock.ExpectationsWereMet())
	})
}

func TestRepositoryListPublic(t *testing.T) {
	repo, smock := setupRepo(t)
	d, _ := ParseDate("2026-05-01")

	smock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('pending', 'confirmed') AND type = $1 AND session_date = $2 ORDER BY session_date, session_time, id")).
		WithArgs("yoga", "2026-05-01").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row(StatusPending, 3, "{}")...))

	sessions, err := repo.ListPublic(context.Background(), ListFilter{Type: "yoga", Date: &d})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestRepositoryDeleteAndActive(t *testing.T) {
	repo, smock := setupRepo(t)
	ctx := context.Background()

	smock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1 AND cardinality(clients_enrolled) = 0")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, 10), ErrHasEnrollments)

	smock.ExpectQuery(regexp.QuoteMeta("AND status <> 'cancelled' AND $2::bigint = ANY(clients_enrolled)")).
		WithArgs(2, 5).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.HasActiveSession(ctx, 2, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2026-05-01T00:00:00Z"))
	assert.Equal(t, "2026-05-01", d.String())

	require.NoError(t, d.Scan([]byte("2026-06-02")))
	assert.Equal(t, "2026-06-02", d.String())

	assert.Error(t, d.Scan(42))

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2026-06-02"`, string(b))
}
