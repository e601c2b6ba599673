package account

import (
	"context"

	"fitstudio/internal/auth"
)

type Repository interface {
	Create(ctx context.Context, name, email, passwordHash string, role auth.Role, stripeAccountID *string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListByRole(ctx context.Context, role auth.Role) ([]Account, error)
	ResolveRole(ctx context.Context, id int64) (auth.Role, error)
}
