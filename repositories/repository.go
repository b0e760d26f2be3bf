// Package repositories contains the database access layer. Each entity has
// a repository struct around an injected *gorm.DB; multi-entity mutations
// run inside a single transaction. Gorm errors are translated to the
// sentinel errors in models at this boundary.
package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
)

// translateError maps gorm errors onto the models error vocabulary.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrConflict
	default:
		return err
	}
}

// likePattern builds a case-insensitive contains pattern. Matching uses
// LOWER(column) LIKE ? so it behaves the same on postgres and sqlite.
func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}

// tableCounts reports active, deleted and total rows for a model's table
func tableCounts(db *gorm.DB, model interface{}) (dto.EntityCounts, error) {
	var counts dto.EntityCounts
	if err := db.Model(model).Count(&counts.Active).Error; err != nil {
		return counts, translateError(err)
	}
	if err := db.Unscoped().Model(model).Count(&counts.Total).Error; err != nil {
		return counts, translateError(err)
	}
	counts.Deleted = counts.Total - counts.Active
	return counts, nil
}
