package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
)

// Service exposes the customer identity lookups the API surfaces.
type Service interface {
	GetProfile(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
}

type service struct {
	repo *Repository
}

// NewService wires the customer lookup service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("customers: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if !customer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}
