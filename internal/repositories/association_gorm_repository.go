package repositories

import (
	"context"
	"fmt"

	"bizdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMAssociationRepository is a GORM implementation of AssociationRepository.
type GORMAssociationRepository struct {
	db *gorm.DB
}

// NewGORMAssociationRepository creates a new instance of GORMAssociationRepository.
func NewGORMAssociationRepository(db *gorm.DB) *GORMAssociationRepository {
	return &GORMAssociationRepository{
		db: db,
	}
}

// ListProducts returns the products linked to customerID. The inner join
// drops join rows whose product no longer exists.
func (r *GORMAssociationRepository) ListProducts(ctx context.Context, customerID uint) ([]models.Product, error) {
	return listProducts(r.db.WithContext(ctx), customerID)
}

// Add links every product in productIDs to the customer, leaving existing
// links untouched.
func (r *GORMAssociationRepository) Add(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	productIDs = uniqueIDs(productIDs)
	var products []models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, customerID); err != nil {
			return err
		}
		if err := ensureProductsExist(tx, productIDs); err != nil {
			return err
		}
		if rows := joinRows(customerID, productIDs); len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to add products to customer %d: %w", customerID, err)
			}
		}
		var err error
		products, err = listProducts(tx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Remove deletes the links between the customer and productIDs. Ids that
// are not linked are ignored.
func (r *GORMAssociationRepository) Remove(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	productIDs = uniqueIDs(productIDs)
	var products []models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, customerID); err != nil {
			return err
		}
		if len(productIDs) > 0 {
			err := tx.Where("customer_id = ? AND product_id IN ?", customerID, productIDs).
				Delete(&models.CustomerProduct{}).Error
			if err != nil {
				return fmt.Errorf("failed to remove products from customer %d: %w", customerID, err)
			}
		}
		var err error
		products, err = listProducts(tx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Replace swaps the customer's whole association set for productIDs. The
// delete and insert share one transaction, so a failed insert leaves the
// previous set in place.
func (r *GORMAssociationRepository) Replace(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error) {
	productIDs = uniqueIDs(productIDs)
	var products []models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, customerID); err != nil {
			return err
		}
		if err := ensureProductsExist(tx, productIDs); err != nil {
			return err
		}
		if err := tx.Where("customer_id = ?", customerID).Delete(&models.CustomerProduct{}).Error; err != nil {
			return fmt.Errorf("failed to clear products of customer %d: %w", customerID, err)
		}
		if rows := joinRows(customerID, productIDs); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert products for customer %d: %w", customerID, err)
			}
		}
		var err error
		products, err = listProducts(tx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func listProducts(db *gorm.DB, customerID uint) ([]models.Product, error) {
	products := make([]models.Product, 0)
	err := db.Model(&models.Product{}).
		Joins("JOIN customer_products ON customer_products.product_id = products.id").
		Where("customer_products.customer_id = ?", customerID).
		Order("products.id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products of customer %d: %w", customerID, err)
	}
	return products, nil
}

// lockCustomer loads the customer row FOR UPDATE so concurrent operations on
// the same customer serialize. SQLite ignores the locking clause.
func lockCustomer(tx *gorm.DB, customerID uint) error {
	var customer models.Customer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&customer, "id = ?", customerID).Error
	if err != nil {
		return fmt.Errorf("failed to load customer %d: %w", customerID, translate(err))
	}
	return nil
}

func ensureProductsExist(tx *gorm.DB, productIDs []uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	var found []uint
	if err := tx.Model(&models.Product{}).Where("id IN ?", productIDs).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check products: %w", err)
	}
	if len(found) == len(productIDs) {
		return nil
	}
	known := make(map[uint]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	missing := make([]uint, 0, len(productIDs)-len(found))
	for _, id := range productIDs {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return &UnknownProductsError{IDs: missing}
}

func joinRows(customerID uint, productIDs []uint) []models.CustomerProduct {
	rows := make([]models.CustomerProduct, 0, len(productIDs))
	for _, id := range productIDs {
		rows = append(rows, models.CustomerProduct{CustomerID: customerID, ProductID: id})
	}
	return rows
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
