package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"
	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
)

const DefaultWindow = 30 * 24 * time.Hour

var (
	ErrChatLocked      = LockedError(DefaultWindow)
	ErrNoActiveSession = apperr.New(apperr.ErrAccessDenied, "chat requires an active session between member and trainer")
	ErrEmptyMessage    = apperr.New(apperr.ErrValidation, "message text is required")
	ErrMessageTooLong  = apperr.New(apperr.ErrValidation, fmt.Sprintf("message text cannot exceed %d characters", MaxMessageLength))
	ErrChatRole        = apperr.New(apperr.ErrAuthorization, "only members and trainers can chat")
	ErrTrainersOnly    = apperr.New(apperr.ErrAuthorization, "only trainers have message threads")
)

// LockedError is the denial returned when a pair has no open window.
func LockedError(window time.Duration) error {
	days := int(window / (24 * time.Hour))
	return apperr.New(apperr.ErrAccessDenied,
		fmt.Sprintf("Chat locked. Book again to unlock chat for %d days.", days))
}

// SessionLinker reports whether a member is enrolled in a live session of a trainer.
type SessionLinker interface {
	HasActiveSession(ctx context.Context, trainerID, memberID int64) (bool, error)
}

// Publisher delivers realtime events to connected accounts.
type Publisher interface {
	SendToUser(accountID int64, event Event)
}

type Service interface {
	GrantOrRefresh(ctx context.Context, trainerID, memberID int64, reason string) error
	CheckAccess(ctx context.Context, trainerID, memberID int64) error
	GetAccess(ctx context.Context, actor auth.Identity, peerID int64) (*AccessStatus, error)
	SendMessage(ctx context.Context, actor auth.Identity, peerID int64, text string) (*Message, error)
	ListMessages(ctx context.Context, actor auth.Identity, peerID int64, limit, offset int) ([]Message, error)
	ListThreads(ctx context.Context, actor auth.Identity) ([]Thread, error)
}

type service struct {
	repo     Repository
	sessions SessionLinker
	hub      Publisher
	window   time.Duration
	locked   error
	now      func() time.Time
}

func NewService(repo Repository, sessions SessionLinker, hub Publisher, window time.Duration) Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{
		repo:     repo,
		sessions: sessions,
		hub:      hub,
		window:   window,
		locked:   LockedError(window),
		now:      time.Now,
	}
}

func (s *service) GrantOrRefresh(ctx context.Context, trainerID, memberID int64, reason string) error {
	now := s.now()
	a, err := s.repo.UpsertAccess(ctx, trainerID, memberID, now.Add(s.window), now, reason)
	if err != nil {
		return fmt.Errorf("grant chat access: %w", err)
	}

	logger.Debug("chat access granted",
		"trainer_id", trainerID, "member_id", memberID, "reason", reason, "expires_at", a.ExpiresAt)
	return nil
}

func (s *service) CheckAccess(ctx context.Context, trainerID, memberID int64) error {
	a, err := s.repo.GetAccess(ctx, trainerID, memberID)
	if err != nil {
		if errors.Is(err, ErrAccessNotFound) {
			return s.locked
		}
		return err
	}
	if !a.OpenAt(s.now()) {
		return s.locked
	}
	return nil
}

// authorize runs both chat gates for a pair.
func (s *service) authorize(ctx context.Context, trainerID, memberID int64) error {
	if err := s.CheckAccess(ctx, trainerID, memberID); err != nil {
		return err
	}

	active, err := s.sessions.HasActiveSession(ctx, trainerID, memberID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNoActiveSession
	}
	return nil
}

func (s *service) GetAccess(ctx context.Context, actor auth.Identity, peerID int64) (*AccessStatus, error) {
	trainerID, memberID, _, err := pair(actor, peerID)
	if err != nil {
		return nil, err
	}

	status := &AccessStatus{TrainerID: trainerID, MemberID: memberID}
	a, err := s.repo.GetAccess(ctx, trainerID, memberID)
	switch {
	case errors.Is(err, ErrAccessNotFound):
		status.Message = s.locked.Error()
		return status, nil
	case err != nil:
		return nil, err
	}

	status.ExpiresAt = &a.ExpiresAt
	status.LastUnlockedAt = &a.LastUnlockedAt
	status.Unlocked = a.OpenAt(s.now())
	if !status.Unlocked {
		status.Message = s.locked.Error()
	}
	return status, nil
}

func (s *service) SendMessage(ctx context.Context, actor auth.Identity, peerID int64, text string) (*Message, error) {
	trainerID, memberID, kind, err := pair(actor, peerID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return nil, ErrEmptyMessage
	case n > MaxMessageLength:
		return nil, ErrMessageTooLong
	}

	if err := s.authorize(ctx, trainerID, memberID); err != nil {
		if errors.Is(err, apperr.ErrAccessDenied) {
			metrics.RecordChatDenied()
		}
		return nil, err
	}

	msg := &Message{
		TrainerID:  trainerID,
		MemberID:   memberID,
		SenderKind: kind,
		SenderID:   actor.ID,
		Text:       text,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	metrics.RecordChatMessage(string(kind))

	if s.hub != nil {
		s.hub.SendToUser(peerID, Event{Type: "message", Data: msg})
	}
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, actor auth.Identity, peerID int64, limit, offset int) ([]Message, error) {
	trainerID, memberID, _, err := pair(actor, peerID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, trainerID, memberID); err != nil {
		if errors.Is(err, apperr.ErrAccessDenied) {
			metrics.RecordChatDenied()
		}
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, trainerID, memberID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Oldest first for display.
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *service) ListThreads(ctx context.Context, actor auth.Identity) ([]Thread, error) {
	if !actor.IsTrainer() {
		return nil, ErrTrainersOnly
	}
	return s.repo.ListThreads(ctx, actor.ID)
}

// pair orders actor and peer into (trainer, member) and names the actor's side.
func pair(actor auth.Identity, peerID int64) (trainerID, memberID int64, kind SenderKind, err error) {
	switch actor.Role {
	case auth.RoleMember:
		return peerID, actor.ID, SenderMember, nil
	case auth.RoleTrainer:
		return actor.ID, peerID, SenderTrainer, nil
	default:
		return 0, 0, "", ErrChatRole
	}
}
