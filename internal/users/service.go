package users

import (
	"context"
	"fmt"

	"github.com/craftmeals/preorder-backend/pkg/auth"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service keeps local identity rows in sync with the external provider.
type Service interface {
	EnsureFromClaims(ctx context.Context, claims *auth.AccessTokenClaims) (*models.User, error)
}

type service struct {
	repo Repository
}

// NewService builds a users service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

// EnsureFromClaims upserts the identity row so foreign keys from orders hold.
func (s *service) EnsureFromClaims(ctx context.Context, claims *auth.AccessTokenClaims) (*models.User, error) {
	if claims == nil || claims.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if claims.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "email claim missing")
	}

	role := claims.Role
	if !role.IsValid() {
		role = enums.MemberRoleCustomer
	}

	user := &models.User{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  role,
	}
	if claims.Name != "" {
		name := claims.Name
		user.Name = &name
	}

	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting user")
	}
	return user, nil
}
