package models

import "time"

// Customer is a business contact. Its lifecycle is independent from User.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Phone     string    `json:"phone" gorm:"type:varchar(50)" validate:"omitempty,max=50"`
	Company   string    `json:"company" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	Address   string    `json:"address" gorm:"type:text"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CustomerProduct is a row of the customer/product join table. The pair is
// the primary key, so a customer can be linked to a product at most once.
type CustomerProduct struct {
	CustomerID uint      `json:"customerId" gorm:"primaryKey;autoIncrement:false"`
	ProductID  uint      `json:"productId" gorm:"primaryKey;autoIncrement:false;index"`
	Customer   *Customer `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Product    *Product  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
