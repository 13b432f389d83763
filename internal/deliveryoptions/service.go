package deliveryoptions

import (
	"context"
	"fmt"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines admin management of delivery options.
type Service interface {
	List(ctx context.Context) ([]models.DeliveryOption, error)
	Save(ctx context.Context, option *models.DeliveryOption) (*models.DeliveryOption, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a delivery options service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery options repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]models.DeliveryOption, error) {
	options, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading delivery options")
	}
	return options, nil
}

func (s *service) Save(ctx context.Context, option *models.DeliveryOption) (*models.DeliveryOption, error) {
	if option == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery option required")
	}
	if !option.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method").
			WithDetails(map[string]string{"method": option.Method.String()})
	}
	if option.Label.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}

	if err := s.repo.Upsert(ctx, option); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving delivery option")
	}
	return option, nil
}

// Delete removes an option unless a schedule slot still references it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery option id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery option not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading delivery option")
		}

		refs, err := repo.CountSlotReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting slot references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery option is referenced by schedule slots").
				WithDetails(map[string]any{"slot_count": refs})
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting delivery option")
		}
		return nil
	})
}
