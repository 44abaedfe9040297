package services

import (
	"context"
	"errors"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch products", err)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal("Failed to fetch product", err)
	}
	return product, nil
}

// CreateProduct creates a new product. An empty SKU is stored as NULL.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	normalizeSKU(product)
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return apperror.Conflict("SKU already in use")
		}
		return apperror.Internal("Failed to create product", err)
	}
	return nil
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	normalizeSKU(product)
	if err := s.repo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return apperror.NotFound("Product not found")
		case errors.Is(err, repositories.ErrDuplicate):
			return apperror.Conflict("SKU already in use")
		default:
			return apperror.Internal("Failed to update product", err)
		}
	}
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperror.NotFound("Product not found")
		}
		return apperror.Internal("Failed to delete product", err)
	}
	return nil
}

func normalizeSKU(product *models.Product) {
	if product.SKU != nil && *product.SKU == "" {
		product.SKU = nil
	}
}
