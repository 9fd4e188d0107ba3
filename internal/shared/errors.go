package shared

import "errors"

// Error taxonomy shared by every catalog operation. Services wrap these with
// fmt.Errorf("...: %w", ...) and the HTTP boundary maps them to statuses.
var (
	// ErrNotAuthenticated indicates the caller has no session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPermissionDenied indicates an authenticated caller without owner rights.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOwnershipMismatch indicates a branch that cannot be verified under the
	// caller's business.
	ErrOwnershipMismatch = errors.New("branch does not belong to business")
	// ErrValidation indicates missing or invalid input fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a missing branch, product or presentation.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a transfer exceeding available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
