package payment

import "context"

// ChargeRequest describes one session purchase sent to the provider.
type ChargeRequest struct {
	Description   string
	CustomerEmail string
	Amount        int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	Metadata      Metadata
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// Completion is a provider confirmation that money was collected.
// CheckoutID is the idempotency key: the checkout session id, or the
// payment intent id for the intent flow.
type Completion struct {
	CheckoutID      string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

// Event is a verified webhook delivery. Completion is nil for events that
// need no reconciliation.
type Event struct {
	ID         string
	Type       string
	Completion *Completion
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req ChargeRequest) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req ChargeRequest) (*PaymentIntent, error)
	// ParseWebhook verifies the signature header. Verification failures
	// wrap ErrInvalidSignature.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
