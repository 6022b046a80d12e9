package api

import (
	"errors"
	"fmt"

	"github.com/devshare/devshare/internal/account"
	"github.com/devshare/devshare/internal/billing"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)

// Application error codes, carried in the JSON-RPC error object so clients
// can branch on the failure class
const (
	ErrNotFound         = -32001
	ErrUnsupportedType  = -32002
	ErrPermissionDenied = -32003
	ErrPrecondition     = -32004
	ErrUnavailable      = -32005
)

// Error is a coded API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// translate maps a domain error onto a coded API error. Unknown errors come
// back as generic server errors so internals never leak to clients.
func translate(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return NewError(ErrNotFound, "not found")
	case errors.Is(err, posts.ErrUnsupportedKind):
		return NewError(ErrUnsupportedType, "unsupported post type")
	case errors.Is(err, posts.ErrPermissionDenied):
		return NewError(ErrPermissionDenied, "permission denied")
	case errors.Is(err, posts.ErrInvalidInput):
		return NewError(ErrInvalidParams, err.Error())
	case errors.Is(err, storage.ErrPrecondition):
		return NewError(ErrPrecondition, "query precondition failed")
	case errors.Is(err, storage.ErrUnavailable):
		return NewError(ErrUnavailable, "store unavailable")
	case errors.Is(err, billing.ErrUnauthenticated):
		return NewError(ErrPermissionDenied, err.Error())
	case errors.Is(err, billing.ErrPriceNotAllowed):
		return NewError(ErrPermissionDenied, "price id not allowed")
	case errors.Is(err, billing.ErrPriceInactive):
		return NewError(ErrPrecondition, err.Error())
	case errors.Is(err, billing.ErrInvalidArgument):
		return NewError(ErrInvalidParams, err.Error())
	case errors.Is(err, account.ErrNoUser):
		return NewError(ErrInvalidParams, err.Error())
	default:
		return NewError(ErrInternalError, "server error")
	}
}
