package account

import (
	"context"
	"database/sql"
	"errors"

	"fitstudio/internal/auth"
	"fitstudio/internal/db"

	"github.com/jmoiron/sqlx"
)

const accountColumns = `id, name, email, password_hash, role, stripe_account_id, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash string, role auth.Role, stripeAccountID *string) (*Account, error) {
	query := `
		INSERT INTO accounts (name, email, password_hash, role, stripe_account_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	var a Account
	err := r.db.GetContext(ctx, &a, query, name, email, passwordHash, role, stripeAccountID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return &a, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	var a Account
	if err := r.db.GetContext(ctx, &a, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var a Account
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *repository) ListByRole(ctx context.Context, role auth.Role) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 ORDER BY name`

	accounts := []Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, role); err != nil {
		return nil, err
	}

	return accounts, nil
}

// ResolveRole backs auth.RoleResolver for tokens without a role claim.
func (r *repository) ResolveRole(ctx context.Context, id int64) (auth.Role, error) {
	var role auth.Role
	err := r.db.GetContext(ctx, &role, `SELECT role FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	return role, nil
}
