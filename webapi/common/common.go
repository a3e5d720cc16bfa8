// Package common holds the response envelope, problem details rendering and
// request binding shared by every webapi sub-package.
package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// RequestIDKey is the Locals key the requestid middleware stores its id under.
const RequestIDKey = "requestid"

// ProblemContentType is the media type of every error response.
const ProblemContentType = "application/problem+json"

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type          string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title         string `json:"title"`              // Short, human-readable summary
	Status        int    `json:"status"`             // HTTP status code
	Detail        string `json:"detail,omitempty"`   // Human-readable explanation
	Instance      string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	CorrelationID string `json:"correlation_id"`     // Matches the server-side log line
	Errors        any    `json:"errors,omitempty"`   // Optional: additional error details
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ProblemDetailsJSON writes an RFC 9457 response. Optional args are a string
// detail, an int status or extra error details, in any order. Without an
// explicit status it is derived from err.
//
// Only the message of the matched domain sentinel reaches the client, never
// the wrapped chain. The full error is logged with the correlation id.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	pd := ProblemDetails{
		Type:          "about:blank",
		Title:         title,
		Status:        ErrorToStatusCode(err),
		Instance:      c.OriginalURL(),
		CorrelationID: CorrelationID(c),
	}
	if err == nil {
		pd.Status = fiber.StatusBadRequest
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			pd.Detail = v
		case int:
			pd.Status = v
		default:
			pd.Errors = v
		}
	}
	if pd.Detail == "" && err != nil && pd.Status < fiber.StatusInternalServerError {
		pd.Detail = publicDetail(err)
	}

	if err != nil {
		if pd.Status >= fiber.StatusInternalServerError {
			log.Errorw(title, "correlation_id", pd.CorrelationID, "path", c.Path(), "error", err)
		} else {
			log.Infow(title, "correlation_id", pd.CorrelationID, "path", c.Path(), "error", err)
		}
	}

	return c.Status(pd.Status).JSON(pd, ProblemContentType)
}

// CorrelationID returns the request id set by the requestid middleware, or a
// fresh one when the middleware is not installed.
func CorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

var (
	badRequest = []error{
		account.ErrInvalidAmount,
		account.ErrSelfTransfer,
		account.ErrInvalidDescription,
		account.ErrInvalidIdempotencyKey,
		account.ErrInvalidFilter,
		account.ErrStatementTooLarge,
		user.ErrInvalidUser,
		domain.ErrValidation,
	}
	notFound = []error{
		account.ErrAccountNotFound,
		account.ErrTransactionNotFound,
		user.ErrUserNotFound,
		domain.ErrNotFound,
	}
	conflict = []error{
		account.ErrInsufficientFunds,
		account.ErrIdempotencyKeyReused,
		user.ErrUsernameTaken,
		domain.ErrConflict,
		domain.ErrAlreadyExists,
	}
	unauthorized = []error{
		user.ErrUserUnauthorized,
		domain.ErrUnauthorized,
	}
	forbidden = []error{
		user.ErrWrongPassword,
		domain.ErrForbidden,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// publicDetail returns the message of the first domain sentinel err matches.
// Storage errors are often wrapped under a sentinel, so err.Error() itself
// may carry driver text and is never used.
func publicDetail(err error) string {
	for _, group := range [][]error{badRequest, notFound, conflict, unauthorized, forbidden} {
		for _, t := range group {
			if errors.Is(err, t) {
				return t.Error()
			}
		}
	}
	return ""
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusOK
	case isAny(err, badRequest):
		return fiber.StatusBadRequest
	case isAny(err, notFound):
		return fiber.StatusNotFound
	case isAny(err, conflict):
		return fiber.StatusConflict
	case isAny(err, unauthorized):
		return fiber.StatusUnauthorized
	case isAny(err, forbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BindAndValidate decodes the JSON body strictly and validates it with
// go-playground/validator. Unknown fields, wrong JSON types and trailing data
// are rejected. On failure the problem response is already written and the
// returned error should be passed back to fiber unchanged.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := decodeStrict(c.Body(), &input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
			return nil, ProblemDetailsJSON(c, "Validation failed", nil, "One or more fields are invalid", fields, fiber.StatusBadRequest)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", nil, fiber.StatusBadRequest)
	}
	return &input, nil
}

func decodeStrict(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &typeErr):
			return fmt.Errorf("field %q has the wrong type", typeErr.Field)
		case errors.As(err, &syntaxErr):
			return errors.New("malformed JSON")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return errors.New("malformed JSON")
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// BindQuery parses query parameters into T and validates them. Like
// BindAndValidate it writes the problem response itself and returns nil on
// failure.
func BindQuery[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.QueryParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid query parameters", nil, "Query parameters have the wrong type", fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		fields := []FieldError{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
		}
		return nil, ProblemDetailsJSON(c, "Invalid query parameters", nil, "One or more parameters are invalid", fields, fiber.StatusBadRequest)
	}
	return &input, nil
}
