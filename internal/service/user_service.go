package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ons-backend/internal/domain"
)

// UserService 管理端的账号审核：激活、改角色、标记邮箱已验证
type UserService struct {
	repo domain.UserRepository
	log  *zap.Logger
}

func NewUserService(repo domain.UserRepository, log *zap.Logger) *UserService {
	return &UserService{repo: repo, log: log.Named("admin.users")}
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter, p domain.Page) (*Paged[domain.User], error) {
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return newPaged(items, total, p), nil
}

func (s *UserService) find(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.log.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", active))
	return u, nil
}

func (s *UserService) SetRole(ctx context.Context, id, role string) (*domain.User, error) {
	switch role {
	case domain.RoleVisitor, domain.RoleMember, domain.RoleEditor, domain.RoleAdmin:
	default:
		return nil, domain.Invalid("invalid role: " + role)
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.log.Info("user role changed", zap.String("user_id", id), zap.String("role", role))
	return u, nil
}

func (s *UserService) Verify(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.EmailVerified {
		return u, nil
	}
	u.EmailVerified = true
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
