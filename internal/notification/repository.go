package notification

import (
	"context"

	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"

	"github.com/jmoiron/sqlx"
)

var ErrNotificationNotFound = apperr.New(apperr.ErrNotFound, "notification not found")

const notificationColumns = `id, recipient_user_id, role, type, title, message, data, is_read, created_at`

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListFor(ctx context.Context, userID int64, role auth.Role, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64, role auth.Role) error
	MarkAllRead(ctx context.Context, userID int64, role auth.Role) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (recipient_user_id, role, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		n.RecipientUserID, n.Role, n.Type, n.Title, n.Message, n.Data,
	).StructScan(n)
}

// ListFor returns the caller's personal notifications and the broadcasts for
// their role, newest first.
func (r *repository) ListFor(ctx context.Context, userID int64, role auth.Role, limit, offset int) ([]Notification, error) {
	items := []Notification{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_user_id = $1
		   OR (recipient_user_id IS NULL AND role = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		userID, role, limit, offset,
	)
	return items, err
}

func (r *repository) MarkRead(ctx context.Context, id, userID int64, role auth.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1
		  AND (recipient_user_id = $2 OR (recipient_user_id IS NULL AND role = $3))`,
		id, userID, role,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID int64, role auth.Role) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE is_read = FALSE
		  AND (recipient_user_id = $1 OR (recipient_user_id IS NULL AND role = $2))`,
		userID, role,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a personal notification. Broadcasts are shared and cannot be
// deleted by a single recipient.
func (r *repository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
