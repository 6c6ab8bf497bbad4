package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService handles user management and referral tree queries
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetUser returns a single user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// ListUsers returns users matching the filter with a total count
func (s *UserService) ListUsers(ctx context.Context, filter identity.UserFilter) ([]UserInfo, int64, error) {
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	infos := make([]UserInfo, len(users))
	for i, u := range users {
		infos[i] = toUserInfo(u)
	}
	return infos, total, nil
}

// SetReferralLimit sets a per-user override of the sponsor capacity
func (s *UserService) SetReferralLimit(ctx context.Context, userID uuid.UUID, limit int) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.SetCustomReferralLimit(limit); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update referral limit")
	}
	s.logger.Info("Referral limit override set",
		zap.String("user_id", userID.String()),
		zap.Int("limit", limit))
	return nil
}

// ClearReferralLimit removes the per-user capacity override
func (s *UserService) ClearReferralLimit(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.ClearCustomReferralLimit()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update referral limit")
	}
	return nil
}

// ApproveSeller promotes a seller candidate to a full seller
func (s *UserService) ApproveSeller(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.PromoteToSeller(); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to promote seller")
	}
	s.logger.Info("Seller approved", zap.String("user_id", userID.String()))
	return nil
}

// GetReferralTree returns the sponsor's referral network down to the given
// depth. Depth 1 returns only direct referrals.
func (s *UserService) GetReferralTree(ctx context.Context, sponsorID uuid.UUID, depth int) ([]ReferralNode, error) {
	if depth < 1 {
		depth = 1
	}
	return s.buildTree(ctx, sponsorID, depth)
}

func (s *UserService) buildTree(ctx context.Context, sponsorID uuid.UUID, depth int) ([]ReferralNode, error) {
	children, err := s.userRepo.FindDirectReferrals(ctx, sponsorID, nil)
	if err != nil {
		return nil, err
	}

	nodes := make([]ReferralNode, 0, len(children))
	for _, child := range children {
		node := ReferralNode{
			User:      toUserInfo(child),
			Activated: child.MetReferralThreshold,
		}
		if depth > 1 {
			sub, err := s.buildTree(ctx, child.ID, depth-1)
			if err != nil {
				return nil, err
			}
			node.Children = sub
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
