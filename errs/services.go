package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Configuration & Environment Errors
var (
	ErrConfigMissing       = errors.New("configuration missing")
	ErrEnvironmentVariable = errors.New("environment variable error")
)

// Dependency Errors
var (
	ErrServiceUnreachable = errors.New("service unreachable")
	ErrStorage            = errors.New("storage operation failed")
)

// Encoding Errors
var (
	ErrBase64Decode     = errors.New("base64 decode error")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("Configuration error for %s", configName),
		Cause:      cause,
	}
}

func NewEnvironmentVariableError(varName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrEnvironmentVariable,
		Details:    fmt.Sprintf("Environment variable %s is not set or invalid", varName),
		Field:      varName,
	}
}

func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrServiceUnreachable,
		Details:    fmt.Sprintf("Service %s is unreachable", service),
		Cause:      cause,
	}
}

func NewStorageError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrStorage,
		Details:    fmt.Sprintf("Storage error in %s", operation),
		Cause:      cause,
	}
}

func NewBase64DecodeError(field string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrBase64Decode,
		Details:    "expected a base64 encoded data URI",
		Cause:      cause,
		Field:      field,
	}
}

func NewUnsupportedImageError(field, contentType string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrUnsupportedImage,
		Details:    fmt.Sprintf("content type %q is not an accepted image type", contentType),
		Field:      field,
	}
}

func IsServiceUnreachableError(err error) bool {
	return errors.Is(err, ErrServiceUnreachable)
}

func IsBase64DecodeError(err error) bool {
	return errors.Is(err, ErrBase64Decode)
}
