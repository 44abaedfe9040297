package repositories_test

import (
	"fmt"
	"testing"

	"bizdesk/internal/database"
	"bizdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory SQLite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrateAll(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: "Customer " + email, Email: email}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func seedProducts(t *testing.T, db *gorm.DB, names ...string) []models.Product {
	t.Helper()
	products := make([]models.Product, 0, len(names))
	for _, name := range names {
		p := models.Product{Name: name, Price: 10}
		require.NoError(t, db.Create(&p).Error)
		products = append(products, p)
	}
	return products
}

func productIDs(products []models.Product) []uint {
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}
