package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/account"
	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"
	"fitstudio/internal/chat"
	"fitstudio/internal/db"
	"fitstudio/internal/email"
	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
	"fitstudio/internal/notification"
	"fitstudio/internal/session"
	"fitstudio/internal/subscription"

	"github.com/jmoiron/sqlx"
)

// Outcome describes what a webhook delivery did.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

var errDuplicate = errors.New("payment already recorded")

type AccountFinder interface {
	FindByID(ctx context.Context, id int64) (*account.Account, error)
}

type Mailer interface {
	SendPaymentReceipt(ctx context.Context, r email.Receipt) error
}

type Service interface {
	CreateCheckout(ctx context.Context, actor auth.Identity, sessionID int64) (*CheckoutResponse, error)
	CreatePaymentIntent(ctx context.Context, actor auth.Identity, sessionID int64) (*IntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error)
	ListMine(ctx context.Context, actor auth.Identity, limit, offset int) ([]Payment, error)
	ListPayments(ctx context.Context, limit, offset int) ([]Payment, error)
	Revenue(ctx context.Context) (*Revenue, error)
}

type Options struct {
	Currency    string
	FrontendURL string
	Split       SplitPolicy
	ChatWindow  time.Duration
}

type service struct {
	db       *sqlx.DB
	repo     Repository
	sessions session.Repository
	accounts AccountFinder
	provider Provider
	notifier notification.Notifier
	mailer   Mailer
	opts     Options
	now      func() time.Time
}

// NewService wires reconciliation. conn is used to open the webhook
// transaction; repo and sessions serve reads outside it. notifier and mailer
// may be nil.
func NewService(conn *sqlx.DB, repo Repository, sessions session.Repository, accounts AccountFinder,
	provider Provider, notifier notification.Notifier, mailer Mailer, opts Options) Service {
	if opts.ChatWindow <= 0 {
		opts.ChatWindow = chat.DefaultWindow
	}
	return &service{
		db:       conn,
		repo:     repo,
		sessions: sessions,
		accounts: accounts,
		provider: provider,
		notifier: notifier,
		mailer:   mailer,
		opts:     opts,
		now:      time.Now,
	}
}

// quote validates the purchase and prices it. The returned metadata has a
// zero Amount for free sessions.
func (s *service) quote(ctx context.Context, actor auth.Identity, sessionID int64) (*session.Session, Metadata, error) {
	if !actor.IsMember() {
		return nil, Metadata{}, ErrMembersOnly
	}
	if sessionID <= 0 {
		return nil, Metadata{}, ErrSessionRequired
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, Metadata{}, err
	}

	switch {
	case sess.IsEnrolled(actor.ID):
		return nil, Metadata{}, session.ErrAlreadyEnrolled
	case !sess.Joinable():
		return nil, Metadata{}, session.ErrSessionNotJoinable
	case sess.IsFull():
		return nil, Metadata{}, session.ErrSessionFull
	}

	amount := sess.PriceCents
	if amount > MaxChargeCents {
		return nil, Metadata{}, ErrAmountTooLarge
	}
	if amount <= 0 {
		return sess, Metadata{}, nil
	}

	adminShare, trainerShare := s.opts.Split.Split(amount)
	return sess, Metadata{
		UserID:       actor.ID,
		SessionID:    sess.ID,
		TrainerID:    sess.TrainerID,
		Amount:       amount,
		AdminShare:   adminShare,
		TrainerShare: trainerShare,
	}, nil
}

func (s *service) chargeRequest(ctx context.Context, sess *session.Session, meta Metadata) ChargeRequest {
	req := ChargeRequest{
		Description: fmt.Sprintf("%s session on %s at %s", sess.Type, sess.Date.String(), sess.Time),
		Amount:      meta.Amount,
		Currency:    s.opts.Currency,
		SuccessURL:  fmt.Sprintf("%s/sessions/%d?payment=success", s.opts.FrontendURL, sess.ID),
		CancelURL:   fmt.Sprintf("%s/sessions/%d?payment=cancelled", s.opts.FrontendURL, sess.ID),
		Metadata:    meta,
	}
	if s.accounts != nil {
		if acc, err := s.accounts.FindByID(ctx, meta.UserID); err == nil {
			req.CustomerEmail = acc.Email
		}
	}
	return req
}

func (s *service) CreateCheckout(ctx context.Context, actor auth.Identity, sessionID int64) (*CheckoutResponse, error) {
	sess, meta, err := s.quote(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if meta.Amount == 0 {
		return &CheckoutResponse{Free: true, Message: freeMessage}, nil
	}

	meta.Flow = FlowCheckout
	cs, err := s.provider.CreateCheckoutSession(ctx, s.chargeRequest(ctx, sess, meta))
	if err != nil {
		logger.WithError(err).Error("checkout session creation failed",
			"session_id", sess.ID, "member_id", actor.ID)
		return nil, ErrProviderFailed
	}

	logger.Info("checkout session created",
		"checkout_id", cs.ID, "session_id", sess.ID, "member_id", actor.ID, "amount", meta.Amount)
	return &CheckoutResponse{URL: cs.URL, CheckoutID: cs.ID}, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, actor auth.Identity, sessionID int64) (*IntentResponse, error) {
	sess, meta, err := s.quote(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if meta.Amount == 0 {
		return &IntentResponse{Free: true, Message: freeMessage}, nil
	}

	meta.Flow = FlowIntent
	pi, err := s.provider.CreatePaymentIntent(ctx, s.chargeRequest(ctx, sess, meta))
	if err != nil {
		logger.WithError(err).Error("payment intent creation failed",
			"session_id", sess.ID, "member_id", actor.ID)
		return nil, ErrProviderFailed
	}

	logger.Info("payment intent created",
		"payment_intent_id", pi.ID, "session_id", sess.ID, "member_id", actor.ID, "amount", meta.Amount)
	return &IntentResponse{ClientSecret: pi.ClientSecret, PaymentIntentID: pi.ID}, nil
}

// HandleWebhook verifies and reconciles one provider delivery. Only a bad
// signature is returned as an error; every other failure is logged and the
// delivery is acknowledged.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			logger.WithError(err).Warn("webhook signature rejected")
			metrics.RecordWebhook("unknown", "rejected")
			return "", ErrInvalidSignature
		}
		logger.WithError(err).Error("webhook payload could not be decoded")
		metrics.RecordWebhook("unknown", string(OutcomeFailed))
		return OutcomeFailed, nil
	}

	outcome := s.reconcile(ctx, event)
	metrics.RecordWebhook(event.Type, string(outcome))
	return outcome, nil
}

type receipt struct {
	payment  *Payment
	meta     Metadata
	session  *session.Session
	enrolled bool
}

func (s *service) reconcile(ctx context.Context, event *Event) Outcome {
	if event.Completion == nil {
		logger.Debug("webhook event ignored", "event_id", event.ID, "type", event.Type)
		return OutcomeIgnored
	}
	c := event.Completion

	meta, err := ParseMetadata(c.Metadata)
	if err != nil {
		logger.WithError(err).Error("webhook metadata invalid", "event_id", event.ID, "checkout_id", c.CheckoutID)
		return OutcomeFailed
	}

	p := s.paymentFrom(c, meta)
	paidAt := s.now()

	var rec receipt
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		inserted, err := NewRepository(tx).InsertIfNew(ctx, p)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if !inserted {
			return errDuplicate
		}

		sess, err := session.NewRepository(tx).Enroll(ctx, meta.SessionID, meta.UserID)
		switch {
		case err == nil:
			rec.session = sess
			rec.enrolled = true
		case apperr.Known(err):
			logger.Warn("paid member not enrolled",
				"reason", apperr.Message(err), "session_id", meta.SessionID, "member_id", meta.UserID)
		default:
			return fmt.Errorf("enroll: %w", err)
		}

		sub := subscription.NewFromPayment(meta.UserID, meta.TrainerID, meta.SessionID, p.ID,
			p.AmountTotal, p.AdminShare, p.TrainerShare, p.Currency, paidAt)
		if err := subscription.NewRepository(tx).Create(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		if _, err := chat.NewRepository(tx).UpsertAccess(ctx, meta.TrainerID, meta.UserID,
			paidAt.Add(s.opts.ChatWindow), paidAt, "payment"); err != nil {
			return fmt.Errorf("grant chat access: %w", err)
		}

		rec.payment = p
		rec.meta = meta
		return nil
	})
	if errors.Is(err, errDuplicate) {
		logger.Info("duplicate webhook delivery", "event_id", event.ID, "checkout_id", c.CheckoutID)
		return OutcomeDuplicate
	}
	if err != nil {
		logger.WithError(err).Error("payment reconciliation failed",
			"event_id", event.ID, "checkout_id", c.CheckoutID, "session_id", meta.SessionID)
		metrics.RecordPayment(string(StatusFailed), p.Currency, p.AmountTotal)
		return OutcomeFailed
	}

	metrics.RecordPayment(string(p.Status), p.Currency, p.AmountTotal)
	logger.Info("payment recorded",
		"payment_id", p.ID, "checkout_id", p.ProviderCheckoutID, "member_id", p.MemberID,
		"session_id", meta.SessionID, "amount", p.AmountTotal, "enrolled", rec.enrolled)

	s.afterPayment(ctx, rec)
	return OutcomeProcessed
}

// paymentFrom trusts the provider's collected amount over the metadata and
// recomputes the split when the two disagree.
func (s *service) paymentFrom(c *Completion, meta Metadata) *Payment {
	amount := meta.Amount
	if c.AmountTotal > 0 && c.AmountTotal != amount {
		logger.Warn("provider amount differs from metadata",
			"checkout_id", c.CheckoutID, "metadata_amount", meta.Amount, "provider_amount", c.AmountTotal)
		amount = c.AmountTotal
	}

	adminShare, trainerShare := meta.AdminShare, meta.TrainerShare
	if adminShare < 0 || trainerShare < 0 || adminShare+trainerShare != amount {
		adminShare, trainerShare = s.opts.Split.Split(amount)
	}

	currency := c.Currency
	if currency == "" {
		currency = s.opts.Currency
	}

	sessionID := meta.SessionID
	p := &Payment{
		MemberID:           meta.UserID,
		TrainerID:          meta.TrainerID,
		SessionID:          &sessionID,
		AmountTotal:        amount,
		AdminShare:         adminShare,
		TrainerShare:       trainerShare,
		Currency:           currency,
		Status:             StatusSucceeded,
		ProviderCheckoutID: c.CheckoutID,
	}
	if c.PaymentIntentID != "" {
		intentID := c.PaymentIntentID
		p.ProviderPaymentIntentID = &intentID
	}
	return p
}

// afterPayment publishes notifications and the receipt email. The payment is
// committed, so every failure is logged only.
func (s *service) afterPayment(ctx context.Context, rec receipt) {
	p := rec.payment
	sess := rec.session
	if sess == nil {
		if current, err := s.sessions.GetByID(ctx, rec.meta.SessionID); err == nil {
			sess = current
		}
	}

	sessionType, when := "training", p.CreatedAt
	if sess != nil {
		sessionType, when = sess.Type, sess.Date.Time
	}
	amount := email.FormatAmount(p.AmountTotal, p.Currency)
	data := notification.Data{
		"payment_id": p.ID,
		"session_id": rec.meta.SessionID,
		"amount":     p.AmountTotal,
		"currency":   p.Currency,
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.To(p.MemberID, auth.RoleMember, notification.TypePaymentReceived,
			"Payment received",
			fmt.Sprintf("We received %s for your %s session.", amount, sessionType),
			data))
		s.notifier.Notify(ctx, notification.To(p.TrainerID, auth.RoleTrainer, notification.TypeNewBooking,
			"New paid booking",
			fmt.Sprintf("A client paid %s for your %s session.", amount, sessionType),
			data))
		s.notifier.Notify(ctx, notification.Broadcast(auth.RoleAdmin, notification.TypeRevenue,
			"New revenue",
			fmt.Sprintf("%s received (admin share %s).", amount, email.FormatAmount(p.AdminShare, p.Currency)),
			data))
	}

	if s.mailer == nil || s.accounts == nil {
		return
	}
	member, err := s.accounts.FindByID(ctx, p.MemberID)
	if err != nil {
		logger.WithError(err).Warn("receipt email skipped, member lookup failed", "member_id", p.MemberID)
		return
	}
	err = s.mailer.SendPaymentReceipt(ctx, email.Receipt{
		To:          member.Email,
		SessionType: sessionType,
		When:        when,
		AmountCents: p.AmountTotal,
		Currency:    p.Currency,
		Enrolled:    rec.enrolled,
		ChatWindow:  s.opts.ChatWindow,
	})
	if err != nil {
		logger.WithError(err).Warn("receipt email not queued", "payment_id", p.ID)
	}
}

func (s *service) ListMine(ctx context.Context, actor auth.Identity, limit, offset int) ([]Payment, error) {
	if !actor.IsMember() {
		return nil, ErrMembersOnly
	}
	return s.repo.ListByMember(ctx, actor.ID, limit, offset)
}

func (s *service) ListPayments(ctx context.Context, limit, offset int) ([]Payment, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *service) Revenue(ctx context.Context) (*Revenue, error) {
	return s.repo.Revenue(ctx)
}
