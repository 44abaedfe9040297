package repositories

import (
	"context"

	"bizdesk/internal/models"
)

// AssociationRepository reconciles rows of the customer/product join table.
// Every mutation runs in its own transaction and returns the customer's
// product list as seen at the end of that transaction.
type AssociationRepository interface {
	ListProducts(ctx context.Context, customerID uint) ([]models.Product, error)
	Add(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error)
	Remove(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error)
	Replace(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error)
}
