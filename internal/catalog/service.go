package catalog

import (
	"context"
	"fmt"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
)

// Service serves the public menu.
type Service interface {
	ListMenu(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListMenu(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog")
	}
	return products, nil
}
