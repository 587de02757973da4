package apperror

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// UpgradeURL is sent with plan errors so clients can link to the pricing page
const UpgradeURL = "/pricing"

// Body is the JSON shape of every error response
type Body struct {
	Error      Code         `json:"error"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"fields,omitempty"`
	UpgradeURL string       `json:"upgrade_url,omitempty"`
}

// Respond writes err as a JSON error response. Errors that are not *Error are
// logged and reported as INTERNAL without their detail.
func Respond(c *fiber.Ctx, err error) error {
	appErr, ok := As(err)
	if !ok {
		var fe *fiber.Error
		if asFiber(err, &fe) {
			appErr = fromFiber(fe)
		} else {
			appErr = Internal(err)
		}
	}

	if appErr.Code == CodeInternal {
		log.Errorf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), appErr)
	}

	body := Body{Error: appErr.Code, Message: appErr.Message, Fields: appErr.Fields}
	if appErr.Upgrade {
		body.UpgradeURL = UpgradeURL
	}
	return c.Status(appErr.HTTPStatus()).JSON(body)
}

func asFiber(err error, target **fiber.Error) bool {
	fe, ok := err.(*fiber.Error)
	if ok {
		*target = fe
	}
	return ok
}

func fromFiber(fe *fiber.Error) *Error {
	switch fe.Code {
	case fiber.StatusNotFound:
		return New(CodeNotFound, fe.Message)
	case fiber.StatusUnauthorized:
		return New(CodeUnauthenticated, fe.Message)
	case fiber.StatusForbidden:
		return New(CodeRoleForbidden, fe.Message)
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return New(CodeValidation, fe.Message)
	}
	return Internal(fe)
}

// ErrorHandler is the fiber app error handler for API routes
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Respond(c, err)
}
