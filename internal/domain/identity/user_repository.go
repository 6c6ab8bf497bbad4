package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
)

// UserFilter defines filtering options for user queries
type UserFilter struct {
	shared.Filter
	Role      *UserRole
	SponsorID *uuid.UUID
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by email address
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByReferralCode finds the user owning the given referral code
	FindByReferralCode(ctx context.Context, code string) (*User, error)

	// FindAll finds users with filtering
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)

	// FindAllOrderedByRegistration returns every user ordered by creation time
	// ascending. Replay ordering matters: see the earnings recomputation flow.
	FindAllOrderedByRegistration(ctx context.Context) ([]*User, error)

	// FindDirectReferrals returns the direct children of a sponsor ordered by
	// registration time ascending, optionally filtered by activation state
	FindDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated *bool) ([]*User, error)

	// CountDirectReferrals counts a sponsor's direct children by activation state
	CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated bool) (int, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error

	// ExistsByEmail checks whether a user with the email exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
