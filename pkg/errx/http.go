package errx

import (
	"github.com/gofiber/fiber/v2"
)

// HTTPErrorResponse is the wire shape of an error returned to clients.
// Details carry machine-readable context only; underlying causes never leave
// the server.
type HTTPErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Type    string                 `json:"type"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Type:    string(e.Type),
		Details: e.Details,
	}
}

// WriteFiber writes the error as a JSON response on a fiber context
func (e *Error) WriteFiber(c *fiber.Ctx) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}

// HandleFiber writes any error to a fiber context, defaulting to a 500
// internal error for non-errx errors so no raw error text leaks out.
func HandleFiber(c *fiber.Ctx, err error) error {
	var customErr *Error
	if As(err, &customErr) {
		return customErr.WriteFiber(c)
	}

	var fiberErr *fiber.Error
	if As(err, &fiberErr) {
		e := New(fiberErr.Message, TypeInternal)
		e.HTTPStatus = fiberErr.Code
		return e.WriteFiber(c)
	}

	return New("internal server error", TypeInternal).WriteFiber(c)
}
