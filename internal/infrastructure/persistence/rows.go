package persistence

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellnest/backend/internal/domain/shared"
)

// translate maps gorm sentinels onto domain errors. dup replaces a unique
// violation; with dup nil it becomes shared.ErrAlreadyExists.
func translate(err error, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if dup != nil {
			return dup
		}
		return shared.ErrAlreadyExists
	}
	return err
}

// findOne loads the first row matching conds and converts it.
func findOne[M, D any](q *gorm.DB, toDomain func(*M) *D, conds ...any) (*D, error) {
	var row M
	if err := q.First(&row, conds...).Error; err != nil {
		return nil, translate(err, nil)
	}
	return toDomain(&row), nil
}

// updateVersion writes updates to row id only while its stored version is
// still version, and bumps the version. When nothing matched it looks again
// to tell a missing row from a stale one.
func updateVersion(tx *gorm.DB, model any, id uuid.UUID, version int, updates map[string]any) error {
	updates["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}
