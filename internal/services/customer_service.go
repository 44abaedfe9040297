package services

import (
	"context"
	"errors"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

// CustomerService handles business logic related to customers.
type CustomerService struct {
	repo repositories.CustomerRepository
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(repo repositories.CustomerRepository) *CustomerService {
	return &CustomerService{
		repo: repo,
	}
}

// GetAllCustomers retrieves all customers, newest first.
func (s *CustomerService) GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	customers, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch customers", err)
	}
	return customers, nil
}

// GetCustomerByID retrieves a single customer.
func (s *CustomerService) GetCustomerByID(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Customer not found")
		}
		return nil, apperror.Internal("Failed to fetch customer", err)
	}
	return customer, nil
}

// CreateCustomer stores a new customer. Emails are unique.
func (s *CustomerService) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if _, err := s.repo.GetByEmail(ctx, customer.Email); err == nil {
		return apperror.Conflict("Email already in use")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return apperror.Internal("Failed to create customer", err)
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return apperror.Conflict("Email already in use")
		}
		return apperror.Internal("Failed to create customer", err)
	}
	return nil
}

// UpdateCustomer overwrites an existing customer.
func (s *CustomerService) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	existing, err := s.repo.GetByEmail(ctx, customer.Email)
	switch {
	case err == nil && existing.ID != customer.ID:
		return apperror.Conflict("Email already in use by another customer")
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return apperror.Internal("Failed to update customer", err)
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return apperror.NotFound("Customer not found")
		case errors.Is(err, repositories.ErrDuplicate):
			return apperror.Conflict("Email already in use by another customer")
		default:
			return apperror.Internal("Failed to update customer", err)
		}
	}
	return nil
}

// DeleteCustomer removes a customer and its product associations.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperror.NotFound("Customer not found")
		}
		return apperror.Internal("Failed to delete customer", err)
	}
	return nil
}
