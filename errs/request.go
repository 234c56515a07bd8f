package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	Unauthorized = NewUnauthorizedError("authentication credentials were not provided")
)

// Authentication & Authorization Errors
var (
	ErrInvalidToken      = errors.New("invalid authentication token")
	ErrExpiredToken      = errors.New("authentication token expired")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrNotAuthor         = errors.New("only the author may modify this resource")
	ErrInsufficientRole  = errors.New("insufficient role")
)

func NewExpiredTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrExpiredToken,
		Details:    "Please log in again",
	}
}

func NewInvalidTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidToken,
	}
}

func NewInvalidCredentialsError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidCredential,
		Details:    "Unable to log in with provided credentials",
	}
}

func NewNotAuthorError(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        fmt.Errorf("%w: %w", ErrForbidden, ErrNotAuthor),
		Details:    fmt.Sprintf("You are not the author of this %s", entity),
	}
}

func NewInsufficientRoleError(requiredRole string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        fmt.Errorf("%w: %w", ErrForbidden, ErrInsufficientRole),
		Details:    fmt.Sprintf("Role %q is required", requiredRole),
	}
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsExpiredTokenError(err error) bool {
	return errors.Is(err, ErrExpiredToken)
}

func IsNotAuthorError(err error) bool {
	return errors.Is(err, ErrNotAuthor)
}
