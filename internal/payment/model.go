package payment

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// MaxChargeCents is the largest amount Stripe accepts in a single charge.
const MaxChargeCents int64 = 99999999

// Payment is one reconciled provider transaction.
type Payment struct {
	ID                      int64     `db:"id" json:"id"`
	MemberID                int64     `db:"member_id" json:"member_id"`
	TrainerID               int64     `db:"trainer_id" json:"trainer_id"`
	SessionID               *int64    `db:"session_id" json:"session_id,omitempty"`
	AmountTotal             int64     `db:"amount_total" json:"amount_total"`
	AdminShare              int64     `db:"admin_share" json:"admin_share"`
	TrainerShare            int64     `db:"trainer_share" json:"trainer_share"`
	Currency                string    `db:"currency" json:"currency"`
	Status                  Status    `db:"status" json:"status"`
	ProviderCheckoutID      string    `db:"provider_checkout_id" json:"provider_checkout_id"`
	ProviderPaymentIntentID *string   `db:"provider_payment_intent_id" json:"provider_payment_intent_id,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}

// Revenue aggregates succeeded payments.
type Revenue struct {
	Payments     int64 `db:"payments" json:"payments"`
	AmountTotal  int64 `db:"amount_total" json:"amount_total"`
	AdminShare   int64 `db:"admin_share" json:"admin_share"`
	TrainerShare int64 `db:"trainer_share" json:"trainer_share"`
}

type CheckoutRequest struct {
	SessionID int64 `json:"session_id" binding:"required,gt=0"`
}

type CheckoutResponse struct {
	URL        string `json:"url,omitempty"`
	CheckoutID string `json:"checkout_id,omitempty"`
	Free       bool   `json:"free,omitempty"`
	Message    string `json:"message,omitempty"`
}

type IntentResponse struct {
	ClientSecret    string `json:"client_secret,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	Free            bool   `json:"free,omitempty"`
	Message         string `json:"message,omitempty"`
}

const freeMessage = "free, no payment required"

// Metadata keys attached to every provider object so the webhook can
// reconcile without trusting client input.
const (
	MetaUserID       = "userId"
	MetaSessionID    = "sessionId"
	MetaTrainerID    = "trainerId"
	MetaAmount       = "amount"
	MetaAdminShare   = "adminShare"
	MetaTrainerShare = "trainerShare"
	MetaFlow         = "flow"

	FlowCheckout = "checkout"
	FlowIntent   = "intent"
)

type Metadata struct {
	UserID       int64
	SessionID    int64
	TrainerID    int64
	Amount       int64
	AdminShare   int64
	TrainerShare int64
	Flow         string
}

func (m Metadata) Map() map[string]string {
	return map[string]string{
		MetaUserID:       strconv.FormatInt(m.UserID, 10),
		MetaSessionID:    strconv.FormatInt(m.SessionID, 10),
		MetaTrainerID:    strconv.FormatInt(m.TrainerID, 10),
		MetaAmount:       strconv.FormatInt(m.Amount, 10),
		MetaAdminShare:   strconv.FormatInt(m.AdminShare, 10),
		MetaTrainerShare: strconv.FormatInt(m.TrainerShare, 10),
		MetaFlow:         m.Flow,
	}
}

// ParseMetadata reads the keys written by Map. The ids are required, the
// amounts default to zero.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	m := Metadata{Flow: raw[MetaFlow]}

	required := []struct {
		key string
		dst *int64
	}{
		{MetaUserID, &m.UserID},
		{MetaSessionID, &m.SessionID},
		{MetaTrainerID, &m.TrainerID},
	}
	for _, f := range required {
		v, err := strconv.ParseInt(raw[f.key], 10, 64)
		if err != nil || v <= 0 {
			return Metadata{}, ErrInvalidMetadata
		}
		*f.dst = v
	}

	optional := []struct {
		key string
		dst *int64
	}{
		{MetaAmount, &m.Amount},
		{MetaAdminShare, &m.AdminShare},
		{MetaTrainerShare, &m.TrainerShare},
	}
	for _, f := range optional {
		s, ok := raw[f.key]
		if !ok || s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Metadata{}, ErrInvalidMetadata
		}
		*f.dst = v
	}

	return m, nil
}
