package account

import (
	"context"
	"errors"
	"strings"

	"fitstudio/internal/apperr"
	"fitstudio/internal/auth"
)

var (
	ErrEmailExists        = apperr.New(apperr.ErrConflict, "email already registered")
	ErrInvalidCredentials = apperr.New(apperr.ErrAuthentication, "invalid email or password")
	ErrAccountNotFound    = apperr.New(apperr.ErrNotFound, "account not found")
	ErrInvalidRefresh     = apperr.New(apperr.ErrAuthentication, "invalid or expired refresh token")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	CreateTrainer(ctx context.Context, req CreateTrainerRequest) (*Account, error)
	ListTrainers(ctx context.Context) ([]Account, error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	a, err := s.create(ctx, req.Name, req.Email, req.Password, auth.RoleMember, nil)
	if err != nil {
		return nil, err
	}
	return s.issue(a)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	a, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(a.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(a)
}

// Refresh mints a new access token. The role comes from the stored account,
// so refreshed tokens always carry an authoritative role claim.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := auth.ParseRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	a, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, err := auth.GenerateAccessToken(a.ID, a.Email, a.Role, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{AccessToken: accessToken, Account: *a}, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) CreateTrainer(ctx context.Context, req CreateTrainerRequest) (*Account, error) {
	return s.create(ctx, req.Name, req.Email, req.Password, auth.RoleTrainer, req.StripeAccountID)
}

func (s *service) ListTrainers(ctx context.Context) ([]Account, error) {
	return s.repo.ListByRole(ctx, auth.RoleTrainer)
}

func (s *service) create(ctx context.Context, name, email, password string, role auth.Role, stripeAccountID *string) (*Account, error) {
	email = normalizeEmail(email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, strings.TrimSpace(name), email, passwordHash, role, stripeAccountID)
}

func (s *service) issue(a *Account) (*AuthResponse, error) {
	accessToken, refreshToken, err := auth.GenerateTokens(a.ID, a.Email, a.Role, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      *a,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
