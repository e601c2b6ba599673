package session

import "fitstudio/internal/apperr"

var (
	ErrSessionNotFound    = apperr.New(apperr.ErrNotFound, "session not found")
	ErrAlreadyEnrolled    = apperr.New(apperr.ErrConflict, "already enrolled in this session")
	ErrSessionFull        = apperr.New(apperr.ErrCapacity, "session is full")
	ErrSessionNotJoinable = apperr.New(apperr.ErrConflict, "session is not open for enrollment")
	ErrSessionChanged     = apperr.New(apperr.ErrConflict, "session changed, try again")
	ErrInvalidTransition  = apperr.New(apperr.ErrConflict, "invalid status transition")
	ErrSessionClosed      = apperr.New(apperr.ErrConflict, "session can no longer be modified")
	ErrHasEnrollments     = apperr.New(apperr.ErrConflict, "session has enrollments or payments and cannot be deleted")

	ErrNotOwner      = apperr.New(apperr.ErrAuthorization, "only the session trainer or an admin can do this")
	ErrNoOwnSessions = apperr.New(apperr.ErrAuthorization, "admins have no sessions of their own")
	ErrMembersOnly   = apperr.New(apperr.ErrAuthorization, "only members can join sessions")

	ErrInvalidDate       = apperr.New(apperr.ErrValidation, "date must be formatted as YYYY-MM-DD")
	ErrInvalidTime       = apperr.New(apperr.ErrValidation, "time must be formatted as HH:MM")
	ErrInvalidType       = apperr.New(apperr.ErrValidation, "type is required")
	ErrInvalidCapacity   = apperr.New(apperr.ErrValidation, "max_clients must be at least 1")
	ErrInvalidPrice      = apperr.New(apperr.ErrValidation, "price_cents cannot be negative")
	ErrCapacityBelowSize = apperr.New(apperr.ErrValidation, "max_clients cannot be lower than the number of enrolled clients")
	ErrTrainerRequired   = apperr.New(apperr.ErrValidation, "trainer_id is required when an admin creates a session")
	ErrNotATrainer       = apperr.New(apperr.ErrValidation, "trainer_id must reference a trainer account")
)
