package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures layout or input validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigurationError reports a mistake in the element tree itself, such as an
// element type the renderer does not know. It aborts the commit it occurs in.
type ConfigurationError struct {
	Type    string
	Message string
}

// NewConfigurationError constructs a ConfigurationError for the given element type.
func NewConfigurationError(elementType, message string) error {
	return &ConfigurationError{Type: elementType, Message: message}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" {
		return fmt.Sprintf("configuration error [%s]: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// DeviceError represents a failed device call for one key.
type DeviceError struct {
	Op    string
	Index int
	Err   error
}

// NewDeviceError constructs a DeviceError.
func NewDeviceError(op string, index int, err error) error {
	return &DeviceError{Op: op, Index: index, Err: err}
}

func (e *DeviceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Index >= 0 {
		return fmt.Sprintf("device error: %s key %d: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("device error: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the root error.
func (e *DeviceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ActionError represents a failed key press action.
type ActionError struct {
	Page  string
	Index int
	Err   error
}

// NewActionError constructs an ActionError for the key at index on page.
func NewActionError(page string, index int, err error) error {
	return &ActionError{Page: page, Index: index, Err: err}
}

func (e *ActionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Page != "" {
		return fmt.Sprintf("action error on %s key %d: %v", e.Page, e.Index, e.Err)
	}
	return fmt.Sprintf("action error on key %d: %v", e.Index, e.Err)
}

// Unwrap exposes the root error.
func (e *ActionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
