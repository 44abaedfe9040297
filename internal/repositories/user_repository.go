package repositories

import (
	"context"

	"bizdesk/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile refreshes the provider-owned fields of an existing user.
	UpdateProfile(ctx context.Context, user *models.User) error
}
