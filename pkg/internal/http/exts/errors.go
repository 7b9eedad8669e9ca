package exts

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

var statusOfKind = map[error]int{
	services.ErrNotFound:     fiber.StatusNotFound,
	services.ErrForbidden:    fiber.StatusForbidden,
	services.ErrValidation:   fiber.StatusBadRequest,
	services.ErrConflict:     fiber.StatusConflict,
	services.ErrUnauthorized: fiber.StatusUnauthorized,
	services.ErrInternal:     fiber.StatusInternalServerError,
}

// ErrorOf maps a service failure to the HTTP status of its kind.
func ErrorOf(err error) error {
	if err == nil {
		return nil
	}
	return fiber.NewError(statusOfKind[services.KindOf(err)], err.Error())
}
