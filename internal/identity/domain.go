package identity

import (
	"fmt"

	"github.com/noiddea/dash/internal/shared"
)

// BranchRef identifies the branch a catalog operation targets. It is produced
// exactly once by the Resolver so that downstream services never re-derive the
// legacy dual meaning of a branch id: in flattened mode the branch id is
// literally the business id.
type BranchRef struct {
	BranchID   string
	BusinessID string
	Flattened  bool
}

// FlattenedBranch builds the legacy flattened reference where branch and
// business share one id.
func FlattenedBranch(businessID string) BranchRef {
	return BranchRef{BranchID: businessID, BusinessID: businessID, Flattened: true}
}

// RealBranch builds a reference to a branch row under a business.
func RealBranch(branchID, businessID string) BranchRef {
	return BranchRef{BranchID: branchID, BusinessID: businessID}
}

// Scope is the resolved identity of a caller against a target branch. Every
// mutating catalog component consumes a Scope instead of raw ids.
type Scope struct {
	UserID     string
	BusinessID string
	Branch     BranchRef
	// Authorized is true only when the caller is an active owner of the
	// business. Cashiers resolve but may not mutate.
	Authorized bool
}

// RequireOwner fails unless the caller holds owner rights.
func (s Scope) RequireOwner() error {
	if !s.Authorized {
		return fmt.Errorf("identity: owner rights required: %w", shared.ErrPermissionDenied)
	}
	return nil
}

// Branch models a branch row.
type Branch struct {
	ID         string
	BusinessID string
	Name       string
}
