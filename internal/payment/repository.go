package payment

import (
	"context"
	"database/sql"
	"errors"

	"fitstudio/internal/db"
)

const paymentColumns = `id, member_id, trainer_id, session_id, amount_total, admin_share, trainer_share,
	currency, status, provider_checkout_id, provider_payment_intent_id, created_at`

type Repository interface {
	// InsertIfNew stores p unless a payment with the same provider checkout
	// id exists. It reports false for a duplicate.
	InsertIfNew(ctx context.Context, p *Payment) (bool, error)
	ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]Payment, error)
	List(ctx context.Context, limit, offset int) ([]Payment, error)
	Revenue(ctx context.Context) (*Revenue, error)
	HasPaymentsForSession(ctx context.Context, sessionID int64) (bool, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) InsertIfNew(ctx context.Context, p *Payment) (bool, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payments (member_id, trainer_id, session_id, amount_total, admin_share,
			trainer_share, currency, status, provider_checkout_id, provider_payment_intent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_checkout_id) DO NOTHING
		RETURNING `+paymentColumns,
		p.MemberID, p.TrainerID, p.SessionID, p.AmountTotal, p.AdminShare,
		p.TrainerShare, p.Currency, p.Status, p.ProviderCheckoutID, p.ProviderPaymentIntentID,
	).StructScan(p)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]Payment, error) {
	payments := []Payment{}
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		memberID, limit, offset,
	)
	return payments, err
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Payment, error) {
	payments := []Payment{}
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+`
		FROM payments
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	return payments, err
}

func (r *repository) Revenue(ctx context.Context) (*Revenue, error) {
	var rev Revenue
	err := r.db.GetContext(ctx, &rev, `
		SELECT COUNT(*) AS payments,
		       COALESCE(SUM(amount_total), 0) AS amount_total,
		       COALESCE(SUM(admin_share), 0) AS admin_share,
		       COALESCE(SUM(trainer_share), 0) AS trainer_share
		FROM payments
		WHERE status = 'succeeded'`)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *repository) HasPaymentsForSession(ctx context.Context, sessionID int64) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM payments WHERE session_id = $1)`, sessionID)
}
