package testutil

import (
	"fmt"
	"testing"

	"github.com/kendall-kelly/barpos-api/config"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with every model migrated.
// The pool is limited to one connection so all statements see the same database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateTable inserts an unoccupied, active table
func CreateTable(t *testing.T, db *gorm.DB, number int) *models.Table {
	t.Helper()
	table := &models.Table{
		Number:   number,
		Name:     fmt.Sprintf("Table %d", number),
		IsActive: true,
	}
	if err := db.Create(table).Error; err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return table
}

// CreateCustomer inserts an active customer seated at table
func CreateCustomer(t *testing.T, db *gorm.DB, table *models.Table, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:     name,
		TableID:  table.ID,
		IsActive: true,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

// CreateProduct inserts an active product. price is a decimal string such as "5.00".
func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Type:     models.ProductTypeFood,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// CreateUser inserts a user with a bcrypt-hashed password
func CreateUser(t *testing.T, db *gorm.DB, username, passwordHash, role string, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		FullName:     username,
		Role:         role,
		IsActive:     active,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}
