package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fitstudio/internal/db"

	"github.com/lib/pq"
)

const sessionColumns = `id, trainer_id, session_date, session_time, type, status, max_clients,
	clients_enrolled, price_cents, start_at, end_at, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id int64) (*Session, error)
	ListPublic(ctx context.Context, filter ListFilter) ([]Session, error)
	ListByTrainer(ctx context.Context, trainerID int64) ([]Session, error)
	ListByMember(ctx context.Context, memberID int64) ([]Session, error)
	UpdateDetails(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id int64) error
	Enroll(ctx context.Context, sessionID, memberID int64) (*Session, error)
	Transition(ctx context.Context, id int64, to Status) (*Session, error)
	HasActiveSession(ctx context.Context, trainerID, memberID int64) (bool, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository accepts either the pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, s *Session) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO sessions (trainer_id, session_date, session_time, type, status, max_clients, price_cents)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING `+sessionColumns,
		s.TrainerID, s.Date, s.Time, s.Type, s.MaxClients, s.PriceCents,
	).StructScan(s)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListPublic(ctx context.Context, filter ListFilter) ([]Session, error) {
	where := []string{`status IN ('pending', 'confirmed')`}
	args := []any{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		where = append(where, fmt.Sprintf("session_date = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY session_date, session_time, id`

	sessions := []Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) ListByTrainer(ctx context.Context, trainerID int64) ([]Session, error) {
	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE trainer_id = $1
		ORDER BY session_date DESC, session_time DESC, id DESC`, trainerID)
	return sessions, err
}

func (r *repository) ListByMember(ctx context.Context, memberID int64) ([]Session, error) {
	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE $1::bigint = ANY(clients_enrolled)
		ORDER BY session_date DESC, session_time DESC, id DESC`, memberID)
	return sessions, err
}

// UpdateDetails rewrites the editable fields. The row is only touched while the
// session is not terminal and the new capacity still fits the enrollment.
func (r *repository) UpdateDetails(ctx context.Context, s *Session) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE sessions
		SET session_date = $2,
		    session_time = $3,
		    type = $4,
		    max_clients = $5,
		    price_cents = $6,
		    updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('completed', 'cancelled')
		  AND cardinality(clients_enrolled) <= $5
		RETURNING `+sessionColumns,
		s.ID, s.Date, s.Time, s.Type, s.MaxClients, s.PriceCents,
	).StructScan(s)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionChanged
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND cardinality(clients_enrolled) = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHasEnrollments
	}
	return nil
}

// Enroll adds memberID in a single conditional UPDATE: duplicate, capacity and
// status are checked by the same statement that writes, so concurrent joins
// can never exceed max_clients. The first enrollment confirms a pending session.
func (r *repository) Enroll(ctx context.Context, sessionID, memberID int64) (*Session, error) {
	var s Session
	err := r.db.QueryRowxContext(ctx, `
		UPDATE sessions
		SET clients_enrolled = array_append(clients_enrolled, $2::bigint),
		    status = CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		  AND cardinality(clients_enrolled) < max_clients
		  AND NOT ($2::bigint = ANY(clients_enrolled))
		RETURNING `+sessionColumns,
		sessionID, memberID,
	).StructScan(&s)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return nil, r.classifyEnrollFailure(ctx, sessionID, memberID)
}

// classifyEnrollFailure explains why the conditional UPDATE matched nothing.
func (r *repository) classifyEnrollFailure(ctx context.Context, sessionID, memberID int64) error {
	current, err := r.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	switch {
	case current.IsEnrolled(memberID):
		return ErrAlreadyEnrolled
	case !current.Joinable():
		return ErrSessionNotJoinable
	case current.IsFull():
		return ErrSessionFull
	default:
		return ErrSessionChanged
	}
}

// Transition moves the session to `to` only if its current status is a legal
// predecessor. It returns ErrInvalidTransition when no row matched.
func (r *repository) Transition(ctx context.Context, id int64, to Status) (*Session, error) {
	from := predecessors(to)
	if len(from) == 0 {
		return nil, ErrInvalidTransition
	}

	var s Session
	err := r.db.QueryRowxContext(ctx, `
		UPDATE sessions
		SET status = $2::text,
		    start_at = CASE WHEN $2::text = 'in_progress' THEN NOW() ELSE start_at END,
		    end_at = CASE WHEN $2::text = 'completed' THEN NOW() ELSE end_at END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = ANY($3::text[])
		RETURNING `+sessionColumns,
		id, string(to), pq.Array(from),
	).StructScan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return &s, nil
}

// HasActiveSession reports whether memberID is enrolled in a non-cancelled
// session of trainerID.
func (r *repository) HasActiveSession(ctx context.Context, trainerID, memberID int64) (bool, error) {
	return db.Exists(ctx, r.db, `
		SELECT EXISTS(
			SELECT 1 FROM sessions
			WHERE trainer_id = $1
			  AND status <> 'cancelled'
			  AND $2::bigint = ANY(clients_enrolled)
		)`, trainerID, memberID)
}
