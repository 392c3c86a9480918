package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"homecare/internal/pkg/apperr"
)

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
	Role  Role   `json:"role" binding:"required"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a user in the directory. Identity proofing belongs to the
// auth collaborator; this only records who exists and with which role.
func (s *Service) Create(ctx context.Context, actorRole Role, req CreateUserRequest) (*User, error) {
	if !actorRole.IsManager() {
		return nil, ErrNotManager
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if req.Role == RoleOwner && actorRole != RoleOwner {
		return nil, ErrOwnerOnlyGrant
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, apperr.Validation("name and email are required")
	}

	u := &User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Phone: strings.TrimSpace(req.Phone),
		Role:  req.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role Role) ([]User, error) {
	if role != "" && !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.repo.List(ctx, role)
}

// SetRole changes a user's role. Only an owner may grant the owner role or
// change the role of an existing owner.
func (s *Service) SetRole(ctx context.Context, actorRole Role, targetID string, role Role) (*User, error) {
	if !actorRole.IsManager() {
		return nil, ErrNotManager
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	if (role == RoleOwner || target.Role == RoleOwner) && actorRole != RoleOwner {
		return nil, ErrOwnerOnlyGrant
	}

	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	target.Role = role
	return target, nil
}
