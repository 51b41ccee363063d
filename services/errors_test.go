package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateStoreError(t *testing.T) {
	domain := &NotFoundError{Code: "TABLE_NOT_FOUND", Message: "gone"}
	unauthorized := &UnauthorizedError{Code: "INVALID_CREDENTIALS", Message: "unique username or password rejected"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, got error)
	}{
		{
			name: "nil stays nil",
			err:  nil,
			check: func(t *testing.T, got error) {
				assert.NoError(t, got)
			},
		},
		{
			name: "gorm duplicated key",
			err:  gorm.ErrDuplicatedKey,
			check: func(t *testing.T, got error) {
				var conflict *ConflictError
				assert.ErrorAs(t, got, &conflict)
				assert.Equal(t, "DUPLICATE_ENTRY", conflict.Code)
			},
		},
		{
			name: "driver unique message",
			err:  errors.New("UNIQUE constraint failed: tables.number"),
			check: func(t *testing.T, got error) {
				var conflict *ConflictError
				assert.ErrorAs(t, got, &conflict)
			},
		},
		{
			name: "domain error passes through",
			err:  domain,
			check: func(t *testing.T, got error) {
				assert.Same(t, domain, got)
			},
		},
		{
			name: "unauthorized passes through",
			err:  unauthorized,
			check: func(t *testing.T, got error) {
				assert.Same(t, unauthorized, got)
			},
		},
		{
			name: "other errors are wrapped",
			err:  errors.New("connection reset"),
			check: func(t *testing.T, got error) {
				assert.EqualError(t, got, "failed to do thing: connection reset")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, translateStoreError(tt.err, "do thing"))
		})
	}
}

func TestUniqueViolationFromStore(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateTable(t, db, 3)

	err := db.Create(&models.Table{Number: 3, Name: "dup", IsActive: true}).Error
	require.Error(t, err)

	var conflict *ConflictError
	assert.ErrorAs(t, translateStoreError(err, "create table"), &conflict)
}

func TestBumpVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	table := testutil.CreateTable(t, db, 1)
	order := models.Order{TableID: table.ID, Status: models.OrderStatusPending, IsActive: true, Version: 1}
	require.NoError(t, db.Omit("Items").Create(&order).Error)

	require.NoError(t, bumpVersion(db, &models.Order{}, "Order", order.ID, 1))

	err := bumpVersion(db, &models.Order{}, "Order", order.ID, 1)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)

	err = bumpVersion(db, &models.Order{}, "Order", uuid.New(), 1)
	assert.ErrorAs(t, err, &conflict)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, 2, reloaded.Version)
}

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		in       Pagination
		expected Pagination
		offset   int
	}{
		{Pagination{}, Pagination{Page: 1, Limit: 10}, 0},
		{Pagination{Page: 3, Limit: 20}, Pagination{Page: 3, Limit: 20}, 40},
		{Pagination{Page: -1, Limit: 500}, Pagination{Page: 1, Limit: 100}, 0},
	}

	for _, tt := range tests {
		got := tt.in.Normalize()
		assert.Equal(t, tt.expected, got)
		assert.Equal(t, tt.offset, got.Offset())
	}
}
