package subscription

import "time"

type Subscription struct {
	ID           int64     `db:"id" json:"id"`
	MemberID     int64     `db:"member_id" json:"member_id"`
	TrainerID    *int64    `db:"trainer_id" json:"trainer_id,omitempty"`
	SessionID    *int64    `db:"session_id" json:"session_id,omitempty"`
	PaymentID    *int64    `db:"payment_id" json:"payment_id,omitempty"`
	AmountPaid   int64     `db:"amount_paid" json:"amount_paid"`
	AdminShare   int64     `db:"admin_share" json:"admin_share"`
	TrainerShare int64     `db:"trainer_share" json:"trainer_share"`
	Currency     string    `db:"currency" json:"currency"`
	PaidAt       time.Time `db:"paid_at" json:"paid_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExpiryFor returns the end of the entitlement bought at paidAt.
func ExpiryFor(paidAt time.Time) time.Time {
	return paidAt.AddDate(0, 1, 0)
}

// NewFromPayment builds the active subscription granted by a payment.
func NewFromPayment(memberID, trainerID, sessionID, paymentID, amount, adminShare, trainerShare int64, currency string, paidAt time.Time) *Subscription {
	s := &Subscription{
		MemberID:     memberID,
		PaymentID:    &paymentID,
		AmountPaid:   amount,
		AdminShare:   adminShare,
		TrainerShare: trainerShare,
		Currency:     currency,
		PaidAt:       paidAt,
		ExpiresAt:    ExpiryFor(paidAt),
		Active:       true,
	}
	if trainerID > 0 {
		s.TrainerID = &trainerID
	}
	if sessionID > 0 {
		s.SessionID = &sessionID
	}
	return s
}
