package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fitstudio/internal/apperr"
	"fitstudio/internal/db"
)

var ErrAccessNotFound = apperr.New(apperr.ErrNotFound, "chat access not found")

const (
	accessColumns  = `id, trainer_id, member_id, expires_at, last_unlocked_at, reason`
	messageColumns = `id, trainer_id, member_id, sender_kind, sender_id, text, created_at`
)

type Repository interface {
	UpsertAccess(ctx context.Context, trainerID, memberID int64, expiresAt, unlockedAt time.Time, reason string) (*Access, error)
	GetAccess(ctx context.Context, trainerID, memberID int64) (*Access, error)
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, trainerID, memberID int64, limit, offset int) ([]Message, error)
	ListThreads(ctx context.Context, trainerID int64) ([]Thread, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository accepts either the pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

// UpsertAccess opens the pair's window or extends it. An existing window is
// never shortened.
func (r *repository) UpsertAccess(ctx context.Context, trainerID, memberID int64, expiresAt, unlockedAt time.Time, reason string) (*Access, error) {
	var a Access
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO chat_access (trainer_id, member_id, expires_at, last_unlocked_at, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (trainer_id, member_id) DO UPDATE
		SET expires_at = GREATEST(chat_access.expires_at, EXCLUDED.expires_at),
		    last_unlocked_at = EXCLUDED.last_unlocked_at,
		    reason = EXCLUDED.reason
		RETURNING `+accessColumns,
		trainerID, memberID, expiresAt, unlockedAt, reason,
	).StructScan(&a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetAccess(ctx context.Context, trainerID, memberID int64) (*Access, error) {
	var a Access
	err := r.db.GetContext(ctx, &a,
		`SELECT `+accessColumns+` FROM chat_access WHERE trainer_id = $1 AND member_id = $2`,
		trainerID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccessNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO messages (trainer_id, member_id, sender_kind, sender_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		m.TrainerID, m.MemberID, m.SenderKind, m.SenderID, m.Text,
	).StructScan(m)
}

// ListMessages pages backwards from the newest message of the pair.
func (r *repository) ListMessages(ctx context.Context, trainerID, memberID int64, limit, offset int) ([]Message, error) {
	msgs := []Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE trainer_id = $1 AND member_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		trainerID, memberID, limit, offset,
	)
	return msgs, err
}

func (r *repository) ListThreads(ctx context.Context, trainerID int64) ([]Thread, error) {
	threads := []Thread{}
	err := r.db.SelectContext(ctx, &threads, `
		SELECT t.member_id, t.member_name, t.last_message, t.last_sender_kind, t.last_message_at,
		       ca.expires_at AS access_expires_at
		FROM (
			SELECT DISTINCT ON (m.member_id)
			       m.member_id, a.name AS member_name, m.text AS last_message,
			       m.sender_kind AS last_sender_kind, m.created_at AS last_message_at
			FROM messages m
			JOIN accounts a ON a.id = m.member_id
			WHERE m.trainer_id = $1
			ORDER BY m.member_id, m.created_at DESC, m.id DESC
		) t
		LEFT JOIN chat_access ca ON ca.trainer_id = $1 AND ca.member_id = t.member_id
		ORDER BY t.last_message_at DESC`,
		trainerID,
	)
	return threads, err
}
