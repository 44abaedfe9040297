package repositories

import (
	"context"
	"fmt"

	"bizdesk/internal/models"

	"gorm.io/gorm"
)

// GORMCustomerRepository is a GORM implementation of CustomerRepository.
type GORMCustomerRepository struct {
	db *gorm.DB
}

// NewGORMCustomerRepository creates a new instance of GORMCustomerRepository.
func NewGORMCustomerRepository(db *gorm.DB) *GORMCustomerRepository {
	return &GORMCustomerRepository{
		db: db,
	}
}

// GetAll retrieves all customers, newest first.
func (r *GORMCustomerRepository) GetAll(ctx context.Context) ([]models.Customer, error) {
	customers := make([]models.Customer, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to get all customers: %w", err)
	}
	return customers, nil
}

// GetByID retrieves a single customer by its ID.
func (r *GORMCustomerRepository) GetByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get customer by ID %d: %w", id, translate(err))
	}
	return &customer, nil
}

// GetByEmail retrieves a single customer by email.
func (r *GORMCustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to get customer by email %s: %w", email, translate(err))
	}
	return &customer, nil
}

// Create creates a new customer in the database.
func (r *GORMCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", translate(err))
	}
	return nil
}

// Update overwrites the editable fields of an existing customer.
func (r *GORMCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]interface{}{
			"name":    customer.Name,
			"email":   customer.Email,
			"phone":   customer.Phone,
			"company": customer.Company,
			"address": customer.Address,
			"notes":   customer.Notes,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update customer: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("customer with ID %d not found for update: %w", customer.ID, ErrNotFound)
	}
	return r.db.WithContext(ctx).First(customer, "id = ?", customer.ID).Error
}

// Delete removes a customer together with its product associations.
func (r *GORMCustomerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&models.CustomerProduct{}).Error; err != nil {
			return fmt.Errorf("failed to delete associations of customer %d: %w", id, err)
		}
		res := tx.Delete(&models.Customer{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete customer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("customer with ID %d not found for deletion: %w", id, ErrNotFound)
		}
		return nil
	})
}
