package models

import "time"

// Product represents a catalog item.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null" validate:"required,min=1,max=255"`
	Description string    `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	SKU         *string   `json:"sku" gorm:"uniqueIndex;type:varchar(100)" validate:"omitempty,max=100"`
	Price       float64   `json:"price" validate:"gte=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
