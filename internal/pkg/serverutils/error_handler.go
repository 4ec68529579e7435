package serverutils

import (
	"errors"

	"qnagen-be/pkg/qgen"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a workflow error kind to its HTTP status.
func StatusFor(kind qgen.ErrorKind) int {
	switch kind {
	case qgen.KindNotAuthenticated:
		return fiber.StatusUnauthorized
	case qgen.KindQuotaExhausted:
		return fiber.StatusPaymentRequired
	case qgen.KindInvalidInput, qgen.KindMultipleChoiceRefused:
		return fiber.StatusBadRequest
	case qgen.KindUploadFailed, qgen.KindPartialGenerationFailed, qgen.KindExportFailed:
		return fiber.StatusBadGateway
	case qgen.KindServiceUnavailable:
		return fiber.StatusServiceUnavailable
	case qgen.KindSuperseded:
		return fiber.StatusConflict
	case qgen.KindNotFound:
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is installed as the fiber app error handler.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var qerr *qgen.Error
	if errors.As(err, &qerr) {
		code := StatusFor(qerr.Kind)
		return ctx.Status(code).JSON(KindErrorResponse{
			Success: false,
			Code:    code,
			Message: qerr.UserMessage(),
			Kind:    string(qerr.Kind),
			Topic:   qerr.Topic,
		})
	}

	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
		msg = ferr.Message
	}
	return ctx.Status(code).JSON(ErrorResponse(code, msg))
}

// ErrorHandlerMiddleware converts errors returned by downstream handlers
// before they reach fiber's default handler.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
