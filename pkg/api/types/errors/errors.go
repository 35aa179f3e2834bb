package errors

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorMessage is the JSON error envelope of every non-2xx response.
type ErrorMessage struct {
	Reason string `json:"message"`
	Advice string `json:"advice,omitempty"`
	See    string `json:"see,omitempty"`
	Cause  error  `json:"-"`
}

func (em ErrorMessage) Error() string {
	msg := em.Reason
	if em.Advice != "" {
		msg += ": " + em.Advice
	}
	if em.Cause != nil {
		msg += " (caused by: " + em.Cause.Error() + ")"
	}
	return msg
}

func (em ErrorMessage) Unwrap() error {
	return em.Cause
}

func (em ErrorMessage) MarshalJSON() ([]byte, error) {
	out := struct {
		Reason string `json:"message"`
		Advice string `json:"advice,omitempty"`
		See    string `json:"see,omitempty"`
	}{Reason: em.Reason, Advice: em.Advice, See: em.See}
	return json.Marshal(out)
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithAdvice(advice string) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if advice != "" {
			in.Advice = advice
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}
	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadRequest,
		"bad request",
		WithAdvice(advice),
		WithError(err),
	)
}

func Unauthorized(message string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnauthorized, message, WithError(err))
}

func Forbidden(message string) *echo.HTTPError {
	return NewErrorMessage(http.StatusForbidden, message)
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found")
}

func Conflict(message string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, message, opts...)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError,
		"unexpected error",
		WithError(err),
	)
}

func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusServiceUnavailable,
		"service unavailable temporarily",
		WithAdvice(advice),
		WithError(err),
	)
}
