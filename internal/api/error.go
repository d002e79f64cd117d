package api

import (
	"fmt"
	"net/http"

	"botpos-chat-backend/internal/apperror"
)

type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

type ApiError struct {
	Error string `json:"message"`
}

var statusByCode = map[apperror.Code]int{
	apperror.CodeValidation:         http.StatusBadRequest,
	apperror.CodeUnauthorized:       http.StatusUnauthorized,
	apperror.CodeForbidden:          http.StatusForbidden,
	apperror.CodeNotFound:           http.StatusNotFound,
	apperror.CodeConflict:           http.StatusConflict,
	apperror.CodeChannelUnavailable: http.StatusBadGateway,
	apperror.CodePersistFailed:      http.StatusInternalServerError,
	apperror.CodeInternal:           http.StatusInternalServerError,
}

// ServiceError translates a service error into the response the client
// sees. Server-side failures never leak their message.
func ServiceError(err error) *HTTPError {
	appErr, ok := apperror.As(err)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	var errorLog error = appErr
	if appErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", appErr.Message, appErr.Err)
	}

	message := appErr.Message
	if status == http.StatusInternalServerError && appErr.Code != apperror.CodePersistFailed {
		message = "Internal server error"
	}

	return &HTTPError{
		StatusCode: status,
		Message:    message,
		ErrorLog:   errorLog,
	}
}
