package db

import (
	"errors"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint
// violation. Open sets TranslateError, so every supported driver
// surfaces gorm.ErrDuplicatedKey directly.
func IsDuplicateKeyErr(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
