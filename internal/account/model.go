package account

import (
	"time"

	"fitstudio/internal/auth"
)

// Account is a member, trainer or admin, discriminated by Role.
type Account struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Role            auth.Role `db:"role" json:"role"`
	StripeAccountID *string   `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type CreateTrainerRequest struct {
	Name            string  `json:"name" binding:"required,min=2,max=100"`
	Email           string  `json:"email" binding:"required,email"`
	Password        string  `json:"password" binding:"required,min=8,max=72"`
	StripeAccountID *string `json:"stripe_account_id"`
}

type AuthResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	Account      Account `json:"account"`
}
