package apperrors

import "fmt"

// Standard application errors
var (
	ErrNotFound       = New("resource_not_found", "The requested resource could not be found.")
	ErrInvalidInput   = New("invalid_input", "The input provided is invalid.")
	ErrDatabase       = New("database_error", "A database error occurred.")
	ErrParse          = New("spreadsheet_parse_error", "An error occurred while parsing the spreadsheet file.")
	ErrRemoteWrite    = New("remote_write_error", "Failed to persist the uploaded data to the remote store.")
	ErrRemoteRead     = New("remote_read_error", "Failed to fetch data from the remote store.")
	ErrCacheRead      = New("cache_read_error", "The local snapshot could not be read.")
	ErrInternalServer = New("internal_server_error", "An unexpected error occurred on the server.")
)

// AppError defines a standard application error
type AppError struct {
	Code    string `json:"code"`    // Machine-readable error code
	Message string `json:"message"` // Human-readable message
	Err     error  `json:"-"`       // Underlying error, not exposed in JSON by default
}

// Error builds and returns an error string
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code: %s, original_error: %v)", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// Unwrap exposes the underlying error so errors.Is/As can walk the chain
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError, providing additional context
// If customMessage is provided, it overrides the default message of appErr
func Wrap(err error, baseAppErr *AppError, customMessage ...string) *AppError {
	msg := baseAppErr.Message
	if len(customMessage) > 0 && customMessage[0] != "" {
		msg = customMessage[0]
	}
	return &AppError{
		Code:    baseAppErr.Code,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error is of a specific AppError type by comparing codes
func Is(err error, target *AppError) bool {
	if e, ok := err.(*AppError); ok {
		return e.Code == target.Code
	}
	return false
}
