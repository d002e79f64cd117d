// Package apperror holds the error taxonomy shared by the services.
package apperror

import "errors"

type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeValidation         Code = "validation_error"
	CodePersistFailed      Code = "persist_failed"
	CodeChannelUnavailable Code = "channel_unavailable"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string, err error) *Error {
	return New(CodeNotFound, message, err)
}

func Validation(message string) *Error {
	return New(CodeValidation, message, nil)
}

func PersistFailed(message string, err error) *Error {
	return New(CodePersistFailed, message, err)
}

func ChannelUnavailable(message string, err error) *Error {
	return New(CodeChannelUnavailable, message, err)
}

func Conflict(message string, err error) *Error {
	return New(CodeConflict, message, err)
}

func Unauthorized(message string, err error) *Error {
	return New(CodeUnauthorized, message, err)
}

func Internal(message string, err error) *Error {
	return New(CodeInternal, message, err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
