package platform

import (
	"errors"
	"fmt"
)

// Platform identifiers used across clients and models.
const (
	Kiwify  = "kiwify"
	Hotmart = "hotmart"
)

// Error is returned for every non-2xx provider response. Callers decide
// whether to surface, count, or skip; clients never retry on their own.
type Error struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s api error: status=%d body=%s", e.Platform, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a platform error with the given status code.
func IsStatus(err error, code int) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.StatusCode == code
}
