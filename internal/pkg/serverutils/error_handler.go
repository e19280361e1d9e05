package serverutils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorMapper translates a service error into an HTTP status. It returns 0
// for errors it does not know.
type ErrorMapper func(err error) int

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// envelope. Unknown errors become 500 with their message only.
func ErrorHandlerMiddleware(mappers ...ErrorMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := Classify(err, mappers...)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// Classify returns the status code and client message for err.
func Classify(err error, mappers ...ErrorMapper) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, describeValidation(ve)
	}
	for _, m := range mappers {
		if code := m(err); code != 0 {
			return code, err.Error()
		}
	}
	return fiber.StatusInternalServerError, err.Error()
}
