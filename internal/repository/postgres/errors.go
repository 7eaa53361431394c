package postgres

import (
	"errors"
	"fmt"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
)

// translate maps gorm's translated errors onto the domain error kinds. dup
// is the kind reported for unique violations on this entity.
func translate(err error, entity string, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, entity)
	case errors.Is(err, gorm.ErrDuplicatedKey) && dup != nil:
		return fmt.Errorf("%w: %s", dup, entity)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s references a missing row", domain.ErrNotFound, entity)
	}
	return err
}
