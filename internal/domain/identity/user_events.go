package identity

import (
	"github.com/maraline/backend/internal/domain/shared"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserRegistered      = "UserRegistered"
	EventTypeReferralActivated   = "ReferralActivated"
	EventTypeReferralDeactivated = "ReferralDeactivated"
)

// UserRegisteredEvent is published when a user registers
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	ReferralCode string   `json:"referral_code"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID),
		Email:           user.Email,
		Role:            user.Role,
		ReferralCode:    user.ReferralCode,
	}
}

// ReferralActivatedEvent is published when a user crosses the spend threshold
type ReferralActivatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewReferralActivatedEvent creates a new ReferralActivatedEvent
func NewReferralActivatedEvent(user *User) *ReferralActivatedEvent {
	return &ReferralActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReferralActivated, AggregateTypeUser, user.ID),
		Email:           user.Email,
	}
}

// ReferralDeactivatedEvent is published when a reversal drops a user below the threshold
type ReferralDeactivatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewReferralDeactivatedEvent creates a new ReferralDeactivatedEvent
func NewReferralDeactivatedEvent(user *User) *ReferralDeactivatedEvent {
	return &ReferralDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReferralDeactivated, AggregateTypeUser, user.ID),
		Email:           user.Email,
	}
}
