// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeSchemaError        = "SCHEMA_ERROR"
	CodeStringIndexError   = "STRING_INDEX_OUT_OF_RANGE"
	CodeGraphInconsistency = "GRAPH_INCONSISTENCY"
	CodeStorageError       = "STORAGE_ERROR"
	CodeDownloadError      = "DOWNLOAD_ERROR"
	CodeUploadError        = "UPLOAD_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConfigError        = "CONFIG_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrSchemaError        = New(CodeSchemaError, "malformed snapshot schema")
	ErrStringIndexError   = New(CodeStringIndexError, "string index out of range")
	ErrGraphInconsistency = New(CodeGraphInconsistency, "graph inconsistency")
	ErrStorageError       = New(CodeStorageError, "storage error")
	ErrDownloadError      = New(CodeDownloadError, "download error")
	ErrUploadError        = New(CodeUploadError, "upload error")
	ErrInvalidInput       = New(CodeInvalidInput, "invalid input")
	ErrConfigError        = New(CodeConfigError, "configuration error")
)

// IsSchemaError checks if the error is a snapshot schema error.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchemaError)
}

// IsStringIndexError checks if the error is a string index error.
func IsStringIndexError(err error) bool {
	return errors.Is(err, ErrStringIndexError)
}

// IsGraphInconsistency checks if the error is a graph inconsistency error.
func IsGraphInconsistency(err error) bool {
	return errors.Is(err, ErrGraphInconsistency)
}

// IsStorageError checks if the error is a storage engine error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
