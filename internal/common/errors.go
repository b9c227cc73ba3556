package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError carries a stable machine-readable code next to a message and the
// underlying cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Sentinels that callers match with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrUnsupported  = errors.New("unsupported document")
)

// WrapError prefixes err with message; nil stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

type errorClass struct {
	sentinel error
	grpc     codes.Code
	http     int
}

// first match wins
var errorClasses = []errorClass{
	{ErrNotFound, codes.NotFound, http.StatusNotFound},
	{ErrInvalidInput, codes.InvalidArgument, http.StatusBadRequest},
	{ErrValidation, codes.InvalidArgument, http.StatusBadRequest},
	{ErrUnsupported, codes.InvalidArgument, http.StatusUnsupportedMediaType},
	{ErrDatabase, codes.Unavailable, http.StatusServiceUnavailable},
}

func classify(err error) (codes.Code, int) {
	for _, c := range errorClasses {
		if errors.Is(err, c.sentinel) {
			return c.grpc, c.http
		}
	}
	return codes.Internal, http.StatusInternalServerError
}

// ToStatus converts err into a gRPC status error. Errors that already carry a
// status pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code, _ := classify(err)
	return status.Error(code, err.Error())
}

// HTTPStatus maps err to the HTTP status a handler should answer with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	_, code := classify(err)
	return code
}

// InternalErrorf builds a codes.Internal status error.
func InternalErrorf(format string, args ...any) error {
	return status.Errorf(codes.Internal, format, args...)
}
