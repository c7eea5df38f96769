package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrorType represents different categories of application errors
type ErrorType int

const (
	ValidationError ErrorType = iota
	DatabaseError
	FileSystemError
	ConfigurationError
	CatalogError
	DeviceError
	WriteError
)

// AppError represents application-specific errors with context
type AppError struct {
	Type    ErrorType
	Op      string                 // Operation that failed
	Err     error                  // Original error
	Message string                 // Operator-facing message, short enough for the panel
	Code    int                    // HTTP status code
	Context map[string]interface{} // Additional context
}

func (e *AppError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string for logging
func (et ErrorType) String() string {
	switch et {
	case ValidationError:
		return "validation"
	case DatabaseError:
		return "database"
	case FileSystemError:
		return "filesystem"
	case ConfigurationError:
		return "configuration"
	case CatalogError:
		return "catalog"
	case DeviceError:
		return "device"
	case WriteError:
		return "write"
	default:
		return "unknown"
	}
}

// NewValidationError creates a new validation error
func NewValidationError(op string, err error) *AppError {
	return &AppError{
		Type:    ValidationError,
		Op:      op,
		Err:     err,
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(op string, err error) *AppError {
	return &AppError{
		Type:    DatabaseError,
		Op:      op,
		Err:     err,
		Message: "Database error",
		Code:    http.StatusInternalServerError,
	}
}

// NewFileSystemError creates a new filesystem error
func NewFileSystemError(op string, err error) *AppError {
	return &AppError{
		Type:    FileSystemError,
		Op:      op,
		Err:     err,
		Message: "File system error",
		Code:    http.StatusInternalServerError,
	}
}

// NewConfigurationError creates a new configuration error. These are shown on
// the panel and never retried.
func NewConfigurationError(op string, err error) *AppError {
	return &AppError{
		Type:    ConfigurationError,
		Op:      op,
		Err:     err,
		Message: "Config error",
		Code:    http.StatusInternalServerError,
	}
}

// NewCatalogError creates a new image catalog error
func NewCatalogError(op string, err error) *AppError {
	return &AppError{
		Type:    CatalogError,
		Op:      op,
		Err:     err,
		Message: "Image scan failed",
		Code:    http.StatusInternalServerError,
	}
}

// NewDeviceError creates a new device topology error
func NewDeviceError(op string, err error) *AppError {
	return &AppError{
		Type:    DeviceError,
		Op:      op,
		Err:     err,
		Message: "Device error",
		Code:    http.StatusServiceUnavailable,
	}
}

// NewWriteError creates a new write pipeline error
func NewWriteError(op string, err error) *AppError {
	return &AppError{
		Type:    WriteError,
		Op:      op,
		Err:     err,
		Message: "Write failed",
		Code:    http.StatusInternalServerError,
	}
}

// NewNotFoundError creates a validation error answered with 404
func NewNotFoundError(op string, err error) *AppError {
	return &AppError{
		Type:    ValidationError,
		Op:      op,
		Err:     err,
		Message: err.Error(),
		Code:    http.StatusNotFound,
	}
}

// WithContext adds context to an existing AppError
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogError logs an AppError with appropriate context
func LogError(logger *slog.Logger, err *AppError) {
	logArgs := []interface{}{
		slog.String("type", err.Type.String()),
		slog.String("operation", err.Op),
		slog.Int("code", err.Code),
	}
	if err.Err != nil {
		logArgs = append(logArgs, slog.String("error", err.Err.Error()))
	}

	for k, v := range err.Context {
		logArgs = append(logArgs, slog.Any(k, v))
	}

	logger.Error(err.Message, logArgs...)
}

// HandleHTTPError sends appropriate HTTP error response and logs the error
func HandleHTTPError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *AppError

	if IsAppError(err, &appErr) {
		LogError(logger, appErr)
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	logger.Error("Unhandled error", slog.String("error", err.Error()))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// IsAppError checks if an error is or wraps an AppError and extracts it
func IsAppError(err error, target **AppError) bool {
	return stderrors.As(err, target)
}

// Is reports whether err has the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return IsAppError(err, &appErr) && appErr.Type == t
}

// Wrap wraps an error with additional context
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if IsAppError(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Op:      op + " -> " + appErr.Op,
			Err:     appErr.Err,
			Message: appErr.Message,
			Code:    appErr.Code,
			Context: appErr.Context,
		}
	}

	return &AppError{
		Type:    ValidationError,
		Op:      op,
		Err:     err,
		Message: "Operation failed",
		Code:    http.StatusInternalServerError,
	}
}
