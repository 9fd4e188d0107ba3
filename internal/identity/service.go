package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/noiddea/dash/internal/shared"
)

// RepositoryPort abstracts affiliation lookups for the Resolver.
type RepositoryPort interface {
	// FindOwnerBusiness returns the business the user actively owns,
	// shared.ErrNotFound when the user owns none.
	FindOwnerBusiness(ctx context.Context, userID string) (string, error)
	// FindCashierBusiness returns the business of the branch the user actively
	// works at, shared.ErrNotFound when the user is no cashier.
	FindCashierBusiness(ctx context.Context, userID string) (string, error)
	// GetBranch returns the branch row, shared.ErrNotFound when absent.
	GetBranch(ctx context.Context, branchID string) (Branch, error)
}

// Service resolves a caller and a target branch id into a Scope.
type Service struct {
	repo RepositoryPort
}

// NewService builds the Resolver.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Resolve determines the caller's business affiliation and validates the target
// branch against it. An owner resolves directly to the owned business; anyone
// else must be an active cashier of some branch of the business. The target id
// equal to the resolved business id selects flattened mode; otherwise a branch
// row with that id must exist under the business.
func (s *Service) Resolve(ctx context.Context, userID, targetBranchID string) (Scope, error) {
	if userID == "" {
		return Scope{}, fmt.Errorf("identity: no caller session: %w", shared.ErrNotAuthenticated)
	}
	if targetBranchID == "" {
		return Scope{}, fmt.Errorf("identity: target branch id required: %w", shared.ErrValidation)
	}

	businessID, authorized, err := s.affiliation(ctx, userID)
	if err != nil {
		return Scope{}, err
	}

	branch, err := s.resolveBranch(ctx, targetBranchID, businessID)
	if err != nil {
		return Scope{}, err
	}

	return Scope{
		UserID:     userID,
		BusinessID: businessID,
		Branch:     branch,
		Authorized: authorized,
	}, nil
}

// ResolveBusiness resolves affiliation only, for operations whose input names
// products rather than a target branch. The returned scope carries a zero
// BranchRef.
func (s *Service) ResolveBusiness(ctx context.Context, userID string) (Scope, error) {
	if userID == "" {
		return Scope{}, fmt.Errorf("identity: no caller session: %w", shared.ErrNotAuthenticated)
	}
	businessID, authorized, err := s.affiliation(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	return Scope{UserID: userID, BusinessID: businessID, Authorized: authorized}, nil
}

// affiliation resolves the caller's business: active owner first, active
// cashier as fallback.
func (s *Service) affiliation(ctx context.Context, userID string) (string, bool, error) {
	businessID, err := s.repo.FindOwnerBusiness(ctx, userID)
	if err == nil {
		return businessID, true, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", false, err
	}
	businessID, err = s.repo.FindCashierBusiness(ctx, userID)
	if err == nil {
		return businessID, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", false, err
	}
	return "", false, fmt.Errorf("identity: user %s has no business affiliation: %w", userID, shared.ErrPermissionDenied)
}

func (s *Service) resolveBranch(ctx context.Context, targetBranchID, businessID string) (BranchRef, error) {
	if targetBranchID == businessID {
		return FlattenedBranch(businessID), nil
	}
	branch, err := s.repo.GetBranch(ctx, targetBranchID)
	if errors.Is(err, shared.ErrNotFound) {
		return BranchRef{}, fmt.Errorf("identity: branch %s: %w", targetBranchID, shared.ErrNotFound)
	}
	if err != nil {
		return BranchRef{}, err
	}
	if branch.BusinessID != businessID {
		return BranchRef{}, fmt.Errorf("identity: branch %s: %w", targetBranchID, shared.ErrOwnershipMismatch)
	}
	return RealBranch(branch.ID, businessID), nil
}
