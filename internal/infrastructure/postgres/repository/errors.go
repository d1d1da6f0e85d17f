package repository

import (
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the domain taxonomy. The DB must be opened
// with TranslateError so driver constraint errors surface as gorm errors.
func translate(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, what)
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreError, what, err)
	}
}
