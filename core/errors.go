package core

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrConfiguration  = errors.New("invalid configuration")
	ErrNotInitialized = errors.New("adapter not initialized")
	ErrAlreadyInit    = errors.New("adapter already initialized")
	ErrPluginCycle    = errors.New("plugin dependency cycle")
	ErrPluginDep      = errors.New("missing plugin dependency")
	ErrPluginInit     = errors.New("plugin initialization failed")
	ErrTransform      = errors.New("compatibility transform failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// BridgeError represents an adapter error with additional context.
type BridgeError struct {
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// NewBridgeError creates a new adapter error.
func NewBridgeError(code, message string, err error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds details to the error.
func (e *BridgeError) WithDetails(key string, value interface{}) *BridgeError {
	e.Details[key] = value
	return e
}

// Error codes
const (
	ErrCodeConfiguration  = "CONFIGURATION"
	ErrCodeNotInitialized = "NOT_INITIALIZED"
	ErrCodePluginCycle    = "PLUGIN_CYCLE"
	ErrCodePluginDep      = "PLUGIN_DEPENDENCY"
	ErrCodePluginInit     = "PLUGIN_INIT"
	ErrCodeTransform      = "COMPAT_TRANSFORM"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
)
