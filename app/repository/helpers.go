package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ignoreNotFound converts gorm's not-found into nil so lookup methods can
// signal absence as (nil, nil).
func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
