package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureExists returns a NotFoundError when no row of model has the given id
func ensureExists(tx *gorm.DB, model interface{}, entity string, id uuid.UUID) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound(entity, id)
	}
	return nil
}

// loadForUpdate reads a row by id inside tx, mapping a missing row to NotFoundError
func loadForUpdate(tx *gorm.DB, dest interface{}, entity string, id uuid.UUID) error {
	if err := tx.First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(entity, id)
		}
		return err
	}
	return nil
}

// bumpVersion increments the version of a row if it still equals expected.
// Zero affected rows means another writer got there first.
func bumpVersion(tx *gorm.DB, model interface{}, entity string, id uuid.UUID, expected int) error {
	res := tx.Model(model).
		Where("id = ? AND version = ?", id, expected).
		Update("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staleVersion(entity, id)
	}
	return nil
}

// checkVersion rejects a caller-supplied version that no longer matches the stored one
func checkVersion(supplied *int, stored int, entity string, id uuid.UUID) error {
	if supplied != nil && *supplied != stored {
		return staleVersion(entity, id)
	}
	return nil
}
