package validation

import (
	"net"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	devicePathRegex   = regexp.MustCompile(`^/dev/[a-zA-Z0-9_\-]+(/[a-zA-Z0-9_\-.:]+)*$`)
	variableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ValidateDevicePath accepts block device nodes under /dev.
func ValidateDevicePath(path string) error {
	if path == "" {
		return NewValidationError("device", "device path is required")
	}
	if filepath.Clean(path) != path || strings.Contains(path, "..") {
		return NewValidationError("device", "device path must be clean")
	}
	if !devicePathRegex.MatchString(path) {
		return NewValidationError("device", "device path must name a node under /dev")
	}
	return nil
}

// ValidateWriteID checks the format of a write history ID.
func ValidateWriteID(id string) error {
	if id == "" {
		return NewValidationError("id", "write id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return NewValidationError("id", "invalid write id")
	}
	return nil
}

// ValidateVariableName checks that an image variable can be exported to a
// script environment.
func ValidateVariableName(name string) error {
	if name == "" {
		return NewValidationError("variable", "variable name is required")
	}
	if !variableNameRegex.MatchString(name) {
		return NewValidationError("variable", "variable name must be a shell identifier")
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address. The host may be empty.
func ValidateListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return NewValidationError("listen", "invalid listen address")
	}
	return ValidatePort(port)
}

// ValidatePort validates port number
func ValidatePort(port string) error {
	if port == "" {
		return NewValidationError("port", "port is required")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return NewValidationError("port", "invalid port number")
	}

	if portNum <= 0 || portNum > 65535 {
		return NewValidationError("port", "port number out of range (1-65535)")
	}

	return nil
}

// ValidateRequired checks if a string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, field+" is required")
	}
	return nil
}
