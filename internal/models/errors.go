package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors shared across packages.
var (
	ErrMissingParticipant = errors.New("missing participant: current user, recipient and business ids are required")
	ErrNotConnected       = errors.New("realtime connection is not established")
	ErrUploadFailed       = errors.New("media upload failed")
	ErrUnknownMessage     = errors.New("message not found in conversation")
)

// ErrorResponse is the JSON error body used by the local API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a categorized failure.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAPIError wraps a non-2xx REST response. message is the best-effort body text.
func NewAPIError(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	code := "API_ERROR"
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = "UNAUTHORIZED"
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = "VALIDATION_ERROR"
	}
	return &AppError{Code: code, Message: message, Status: status}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
		Status:  http.StatusNotFound,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewTransportError wraps a network-level failure talking to the API.
func NewTransportError(op string, err error) *AppError {
	return &AppError{
		Code:    "TRANSPORT_ERROR",
		Message: op + " failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// IsNotFound reports whether err is an AppError with a NOT_FOUND code.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
		if status == 0 {
			status = appErr.Status
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}
	switch {
	case status == 0 && errors.Is(err, ErrMissingParticipant):
		status = fiber.StatusBadRequest
	case status == 0 && errors.Is(err, ErrNotConnected):
		status = fiber.StatusServiceUnavailable
	case status == 0 && errors.Is(err, ErrUnknownMessage):
		status = fiber.StatusNotFound
	case status == 0:
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(response)
}
