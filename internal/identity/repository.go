package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noiddea/dash/internal/shared"
)

// Repository resolves affiliations from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) FindOwnerBusiness(ctx context.Context, userID string) (string, error) {
	const query = `
		SELECT b.id
		FROM business_owners o
		JOIN businesses b ON b.id = o.business_id
		WHERE o.user_id = $1 AND o.is_active
		LIMIT 1`
	var businessID string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&businessID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("identity: owner affiliation for %s: %w", userID, shared.ErrNotFound)
		}
		return "", err
	}
	return businessID, nil
}

func (r *Repository) FindCashierBusiness(ctx context.Context, userID string) (string, error) {
	const query = `
		SELECT br.business_id
		FROM branch_cashiers c
		JOIN branches br ON br.id = c.branch_id
		WHERE c.user_id = $1 AND c.is_active
		LIMIT 1`
	var businessID string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&businessID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("identity: cashier affiliation for %s: %w", userID, shared.ErrNotFound)
		}
		return "", err
	}
	return businessID, nil
}

func (r *Repository) GetBranch(ctx context.Context, branchID string) (Branch, error) {
	const query = `SELECT id, business_id, name FROM branches WHERE id = $1`
	var branch Branch
	if err := r.pool.QueryRow(ctx, query, branchID).Scan(&branch.ID, &branch.BusinessID, &branch.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, fmt.Errorf("identity: branch %s: %w", branchID, shared.ErrNotFound)
		}
		return Branch{}, err
	}
	return branch, nil
}
