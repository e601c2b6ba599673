package subscription

import (
	"context"

	"fitstudio/internal/db"
)

const subscriptionColumns = `id, member_id, trainer_id, session_id, payment_id, amount_paid, admin_share,
	trainer_share, currency, paid_at, expires_at, active, created_at`

type repository struct {
	db db.DBTX
}

// NewRepository accepts either the pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, s *Subscription) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (member_id, trainer_id, session_id, payment_id, amount_paid,
		                           admin_share, trainer_share, currency, paid_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+subscriptionColumns,
		s.MemberID, s.TrainerID, s.SessionID, s.PaymentID, s.AmountPaid,
		s.AdminShare, s.TrainerShare, s.Currency, s.PaidAt, s.ExpiresAt, s.Active,
	).StructScan(s)
}

func (r *repository) ListActiveByMember(ctx context.Context, memberID int64) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE member_id = $1
		  AND active
		  AND expires_at > NOW()
		ORDER BY expires_at DESC, id DESC`, memberID)
	return subs, err
}
