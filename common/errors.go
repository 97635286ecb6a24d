package common

import (
	"errors"

	"gorm.io/gorm"

	"edumedia/apierr"
)

// NotFoundOr maps a missing record to NotFound(msg) and anything else to Internal.
func NotFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.NotFound(msg)
	}
	return apierr.Internal(err)
}
