package helpers

import (
	"errors"
	"fmt"

	"market-sync/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SyncError struct {
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ SyncError }
type NetworkError struct{ SyncError }
type NotFoundError struct{ SyncError }
type ServerError struct {
	SyncError
	StatusCode int
}
type InvalidSnapshotError struct{ SyncError }
type DatabaseError struct{ SyncError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{SyncError{Message: msg, Cause: cause}}
}

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{SyncError{Message: msg, Cause: cause}}
}

func NewNotFoundError(msg string, cause error) error {
	return &NotFoundError{SyncError{Message: msg, Cause: cause}}
}

func NewServerError(msg string, status int, cause error) error {
	return &ServerError{SyncError: SyncError{Message: msg, Cause: cause}, StatusCode: status}
}

func NewInvalidSnapshotError(msg string) error {
	return &InvalidSnapshotError{SyncError{Message: msg}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{SyncError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// Error kinds surfaced to the view layer.
const (
	KindNetwork         = "NetworkError"
	KindNotFound        = "NotFound"
	KindServer          = "ServerError"
	KindInvalidSnapshot = "InvalidSnapshot"
	KindDatabase        = "DatabaseError"
	KindConfiguration   = "ConfigurationError"
	KindUnknown         = "Unknown"
)

// Kind returns the category of err for user-visible messaging.
func Kind(err error) string {
	var netErr *NetworkError
	var notFound *NotFoundError
	var srvErr *ServerError
	var snapErr *InvalidSnapshotError
	var dbErr *DatabaseError
	var cfgErr *ConfigurationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &srvErr):
		return KindServer
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &snapErr):
		return KindInvalidSnapshot
	case errors.As(err, &dbErr):
		return KindDatabase
	case errors.As(err, &cfgErr):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err with its category; nil is a no-op.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++
	e.Logger.Error("Error in %s [%s]: %v", context, Kind(err), err)
}
