package payment

import (
	"errors"

	"fitstudio/internal/apperr"
)

var (
	ErrSessionRequired = apperr.New(apperr.ErrValidation, "session_id is required")
	ErrMembersOnly     = apperr.New(apperr.ErrValidation, "only members can pay for sessions")
	ErrAmountTooLarge  = apperr.New(apperr.ErrValidation, "amount exceeds the maximum chargeable amount")
	ErrInvalidMetadata = apperr.New(apperr.ErrValidation, "payment metadata is missing or malformed")

	ErrInvalidSignature = apperr.New(apperr.ErrSignature, "invalid webhook signature")
	ErrProviderFailed   = apperr.New(apperr.ErrProvider, "payment provider is unavailable, try again later")

	ErrMissingSecretKey     = errors.New("stripe secret key is required")
	ErrMissingWebhookSecret = errors.New("stripe webhook signing secret is required")
)
