package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"
	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
	"fitstudio/internal/notification"
)

// AccessGranter opens or extends the chat window between a trainer and member.
type AccessGranter interface {
	GrantOrRefresh(ctx context.Context, trainerID, memberID int64, reason string) error
}

// PaymentChecker reports whether any payment references a session.
type PaymentChecker interface {
	HasPaymentsForSession(ctx context.Context, sessionID int64) (bool, error)
}

type Service interface {
	CreateSession(ctx context.Context, actor auth.Identity, req CreateSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id int64) (*Session, error)
	ListPublic(ctx context.Context, filter ListFilter) ([]Session, error)
	ListMine(ctx context.Context, actor auth.Identity) ([]Session, error)
	UpdateSession(ctx context.Context, actor auth.Identity, id int64, req UpdateSessionRequest) (*Session, error)
	DeleteSession(ctx context.Context, actor auth.Identity, id int64) error
	JoinSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error)
	StartSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error)
	CompleteSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error)
	CancelSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error)
}

type service struct {
	repo     Repository
	grants   AccessGranter
	notifier notification.Notifier
	payments PaymentChecker
	roles    auth.RoleResolver
}

// NewService wires the session lifecycle. roles verifies the trainer an admin
// creates a session for.
func NewService(repo Repository, grants AccessGranter, notifier notification.Notifier, payments PaymentChecker, roles auth.RoleResolver) Service {
	return &service{
		repo:     repo,
		grants:   grants,
		notifier: notifier,
		payments: payments,
		roles:    roles,
	}
}

func (s *service) CreateSession(ctx context.Context, actor auth.Identity, req CreateSessionRequest) (*Session, error) {
	trainerID := actor.ID
	if actor.IsAdmin() {
		if req.TrainerID == nil || *req.TrainerID <= 0 {
			return nil, ErrTrainerRequired
		}
		trainerID = *req.TrainerID
		if err := s.requireTrainer(ctx, trainerID); err != nil {
			return nil, err
		}
	}

	sess := &Session{
		TrainerID:  trainerID,
		Time:       strings.TrimSpace(req.Time),
		Type:       strings.TrimSpace(req.Type),
		MaxClients: req.MaxClients,
		PriceCents: req.PriceCents,
	}

	date, err := ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, ErrInvalidDate
	}
	sess.Date = date

	if err := validateDetails(sess); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logger.Info("session created", "session_id", sess.ID, "trainer_id", sess.TrainerID, "date", sess.Date.String())
	return sess, nil
}

func (s *service) requireTrainer(ctx context.Context, accountID int64) error {
	role, err := s.roles.ResolveRole(ctx, accountID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return ErrNotATrainer
	case err != nil:
		return fmt.Errorf("resolve trainer role: %w", err)
	case role != auth.RoleTrainer:
		return ErrNotATrainer
	}
	return nil
}

func validateDetails(sess *Session) error {
	if _, err := time.Parse(TimeLayout, sess.Time); err != nil {
		return ErrInvalidTime
	}
	if sess.Type == "" {
		return ErrInvalidType
	}
	if sess.MaxClients < 1 {
		return ErrInvalidCapacity
	}
	if sess.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (s *service) GetSession(ctx context.Context, id int64) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListPublic(ctx context.Context, filter ListFilter) ([]Session, error) {
	return s.repo.ListPublic(ctx, filter)
}

func (s *service) ListMine(ctx context.Context, actor auth.Identity) ([]Session, error) {
	switch actor.Role {
	case auth.RoleMember:
		return s.repo.ListByMember(ctx, actor.ID)
	case auth.RoleTrainer:
		return s.repo.ListByTrainer(ctx, actor.ID)
	}
	return nil, ErrNoOwnSessions
}

func (s *service) UpdateSession(ctx context.Context, actor auth.Identity, id int64, req UpdateSessionRequest) (*Session, error) {
	sess, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, ErrSessionClosed
	}

	if req.Date != nil {
		date, err := ParseDate(strings.TrimSpace(*req.Date))
		if err != nil {
			return nil, ErrInvalidDate
		}
		sess.Date = date
	}
	if req.Time != nil {
		sess.Time = strings.TrimSpace(*req.Time)
	}
	if req.Type != nil {
		sess.Type = strings.TrimSpace(*req.Type)
	}
	if req.MaxClients != nil {
		sess.MaxClients = *req.MaxClients
	}
	if req.PriceCents != nil {
		sess.PriceCents = *req.PriceCents
	}

	if err := validateDetails(sess); err != nil {
		return nil, err
	}
	if sess.MaxClients < len(sess.ClientsEnrolled) {
		return nil, ErrCapacityBelowSize
	}

	if err := s.repo.UpdateDetails(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *service) DeleteSession(ctx context.Context, actor auth.Identity, id int64) error {
	sess, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if len(sess.ClientsEnrolled) > 0 {
		return ErrHasEnrollments
	}
	if s.payments != nil {
		paid, err := s.payments.HasPaymentsForSession(ctx, id)
		if err != nil {
			return err
		}
		if paid {
			return ErrHasEnrollments
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info("session deleted", "session_id", id, "actor_id", actor.ID)
	return nil
}

func (s *service) JoinSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	if !actor.IsMember() {
		return nil, ErrMembersOnly
	}

	sess, err := s.repo.Enroll(ctx, id, actor.ID)
	if err != nil {
		metrics.RecordJoin(joinOutcome(err))
		return nil, err
	}
	metrics.RecordJoin("joined")

	s.afterJoin(ctx, sess, actor.ID)
	return sess, nil
}

// afterJoin runs the side effects of a successful enrollment. The enrollment
// is already committed, so failures here are logged only.
func (s *service) afterJoin(ctx context.Context, sess *Session, memberID int64) {
	if s.grants != nil {
		if err := s.grants.GrantOrRefresh(ctx, sess.TrainerID, memberID, "booking"); err != nil {
			logger.WithError(err).Warn("chat access grant failed after join",
				"session_id", sess.ID, "member_id", memberID)
		}
	}

	if s.notifier == nil {
		return
	}
	data := notification.Data{"session_id": sess.ID, "date": sess.Date.String(), "time": sess.Time}
	s.notifier.Notify(ctx, notification.To(memberID, auth.RoleMember, notification.TypeSessionJoined,
		"Session booked",
		fmt.Sprintf("You joined the %s session on %s at %s.", sess.Type, sess.Date.String(), sess.Time),
		data))
	s.notifier.Notify(ctx, notification.To(sess.TrainerID, auth.RoleTrainer, notification.TypeNewBooking,
		"New booking",
		fmt.Sprintf("A client joined your %s session on %s (%d/%d).", sess.Type, sess.Date.String(), len(sess.ClientsEnrolled), sess.MaxClients),
		data))
}

func joinOutcome(err error) string {
	switch {
	case errors.Is(err, ErrSessionFull):
		return "full"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "duplicate"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionNotJoinable), errors.Is(err, ErrSessionChanged):
		return "closed"
	default:
		return "error"
	}
}

func (s *service) StartSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return s.transition(ctx, actor, id, StatusInProgress)
}

func (s *service) CompleteSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	return s.transition(ctx, actor, id, StatusCompleted)
}

func (s *service) CancelSession(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	sess, err := s.transition(ctx, actor, id, StatusCancelled)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for _, memberID := range sess.ClientsEnrolled {
			s.notifier.Notify(ctx, notification.To(memberID, auth.RoleMember, notification.TypeSessionCancelled,
				"Session cancelled",
				fmt.Sprintf("The %s session on %s at %s was cancelled.", sess.Type, sess.Date.String(), sess.Time),
				notification.Data{"session_id": sess.ID}))
		}
	}
	return sess, nil
}

func (s *service) transition(ctx context.Context, actor auth.Identity, id int64, to Status) (*Session, error) {
	sess, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(sess.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.Transition(ctx, id, to)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(to))
	logger.Info("session status changed",
		"session_id", id, "from", sess.Status, "to", to, "actor_id", actor.ID)
	return updated, nil
}

// owned loads the session and checks that actor is its trainer or an admin.
func (s *service) owned(ctx context.Context, actor auth.Identity, id int64) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.OwnedBy(actor) {
		return nil, ErrNotOwner
	}
	return sess, nil
}
