package errors

import (
	"errors"
	"fmt"
)

// PanelAPIError represents an error from the panel API
type PanelAPIError struct {
	Operation string
	Status    int
	Message   string
}

// Error returns the error message
func (e *PanelAPIError) Error() string {
	return fmt.Sprintf("panel API error during %s (status %d): %s", e.Operation, e.Status, e.Message)
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// PaymentError represents an error from a payment provider
type PaymentError struct {
	Provider string
	Status   int
	Message  string
}

// Error returns the error message
func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment provider %s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Section string
	Message string
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Section, e.Message)
}
