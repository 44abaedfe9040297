package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownProduct is returned when an association references a
	// product id that is not in the catalog.
	ErrUnknownProduct = errors.New("unknown product")
)

// translate maps GORM errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// UnknownProductsError lists the product ids an association referenced but
// the catalog does not contain. It matches ErrUnknownProduct with errors.Is.
type UnknownProductsError struct {
	IDs []uint
}

func (e *UnknownProductsError) Error() string {
	return fmt.Sprintf("unknown product ids %v", e.IDs)
}

func (e *UnknownProductsError) Is(target error) bool {
	return target == ErrUnknownProduct
}
