package services

import (
	"context"
	"errors"
	"fmt"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

// Association operations, used as event and metric labels.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// AssociationService manages which products are linked to a customer.
type AssociationService struct {
	repo    repositories.AssociationRepository
	events  EventPublisher
	metrics MetricsRecorder
}

// NewAssociationService creates a new AssociationService. events and
// metrics may be nil.
func NewAssociationService(repo repositories.AssociationRepository, events EventPublisher, metrics MetricsRecorder) *AssociationService {
	return &AssociationService{
		repo:    repo,
		events:  events,
		metrics: recorderOrNoop(metrics),
	}
}

// List returns the products currently linked to customerID.
func (s *AssociationService) List(ctx context.Context, customerID uint) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx, customerID)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch customer products", err)
	}
	return products, nil
}

// Add links productIDs to the customer; existing links are left as they are.
func (s *AssociationService) Add(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	return s.apply(ctx, OpAdd, customerID, productIDs, s.repo.Add,
		"Failed to associate products with customer")
}

// Remove unlinks productIDs from the customer.
func (s *AssociationService) Remove(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	return s.apply(ctx, OpRemove, customerID, productIDs, s.repo.Remove,
		"Failed to remove product associations from customer")
}

// Replace makes productIDs the customer's complete product set.
func (s *AssociationService) Replace(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	return s.apply(ctx, OpReplace, customerID, productIDs, s.repo.Replace,
		"Failed to update product associations for customer")
}

type associationOp func(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error)

func (s *AssociationService) apply(ctx context.Context, op string, customerID uint, productIDs []uint, fn associationOp, failMsg string) ([]models.Product, error) {
	products, err := fn(ctx, customerID, productIDs)
	if err != nil {
		var unknown *repositories.UnknownProductsError
		s.metrics.RecordAssociationOp(op, OutcomeFailure)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, apperror.NotFound("Customer not found")
		case errors.As(err, &unknown):
			return nil, apperror.Validation(fmt.Sprintf("productIds references unknown products: %v", unknown.IDs))
		default:
			return nil, apperror.Internal(failMsg, err)
		}
	}

	s.metrics.RecordAssociationOp(op, OutcomeSuccess)
	publish(s.events, EventCustomerProductsChanged, map[string]interface{}{
		"customerId": customerID,
		"operation":  op,
		"productIds": productIDs,
	})
	return products, nil
}
