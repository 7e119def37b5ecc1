package apperrors

// ErrorCode classifies failures for clients and logs.
type ErrorCode string

const (
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeUpstreamError   ErrorCode = "UPSTREAM_ERROR"
)

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	// Retryable marks failures the client should retry after backing off,
	// i.e. upstream rate limiting that survived our own retry budget.
	Retryable bool
}

func (err *AppError) Error() string {
	return err.Message
}

func NewAppError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404)
}

func NewRateLimitError(message string) *AppError {
	err := NewAppError(ErrorCodeRateLimited, message, 429)
	err.Retryable = true
	return err
}

func NewUpstreamError(message string) *AppError {
	return NewAppError(ErrorCodeUpstreamError, message, 500)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("Internal server error")
}
