package types

import (
	"errors"
	"net/http"
)

// HTTPError is an error that carries the HTTP response it should produce.
// Handlers return one to pick the status code; anything else maps to 500.
type HTTPError struct {
	Kind        string `json:"error"`
	Status      int    `json:"-"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`

	// Violations lists validation failures for 422 responses.
	Violations []string `json:"violations,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.Description != "" {
		return e.Kind + ": " + e.Message + " (" + e.Description + ")"
	}
	return e.Kind + ": " + e.Message
}

// NewHTTPError builds an error for an arbitrary status. Kind is derived from
// the status text with spaces removed, e.g. "UnprocessableEntity".
func NewHTTPError(status int, message string, description ...string) *HTTPError {
	e := &HTTPError{Kind: kindFromStatus(status), Status: status, Message: message}
	if len(description) > 0 {
		e.Description = description[0]
	}
	return e
}

func kindFromStatus(status int) string {
	switch status {
	case http.StatusTeapot:
		return "ImATeapot"
	case http.StatusHTTPVersionNotSupported:
		return "HttpVersionNotSupported"
	case http.StatusRequestEntityTooLarge:
		return "PayloadTooLarge"
	}
	text := http.StatusText(status)
	if text == "" {
		return "Unknown"
	}
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if c := text[i]; c != ' ' && c != '-' && c != '\'' {
			out = append(out, c)
		}
	}
	return string(out)
}

// ValidationFailed builds the 422 response for rejected input.
func ValidationFailed(violations []string) *HTTPError {
	e := NewHTTPError(http.StatusUnprocessableEntity, "Validation errors")
	e.Violations = violations
	return e
}

// AsHTTPError unwraps err into an HTTPError, falling back to 500.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return NewHTTPError(http.StatusInternalServerError, err.Error())
}

func BadRequest(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, msg, desc...)
}

func Unauthorized(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, msg, desc...)
}

func Forbidden(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, msg, desc...)
}

func NotFound(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, msg, desc...)
}

func MethodNotAllowed(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, msg, desc...)
}

func NotAcceptable(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusNotAcceptable, msg, desc...)
}

func RequestTimeout(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusRequestTimeout, msg, desc...)
}

func Conflict(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusConflict, msg, desc...)
}

func Gone(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusGone, msg, desc...)
}

func PreconditionFailed(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusPreconditionFailed, msg, desc...)
}

func PayloadTooLarge(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, msg, desc...)
}

func UnsupportedMediaType(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusUnsupportedMediaType, msg, desc...)
}

func ImATeapot(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusTeapot, msg, desc...)
}

func UnprocessableEntity(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, msg, desc...)
}

func InternalServerError(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, msg, desc...)
}

func NotImplemented(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusNotImplemented, msg, desc...)
}

func BadGateway(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusBadGateway, msg, desc...)
}

func ServiceUnavailable(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, msg, desc...)
}

func GatewayTimeout(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusGatewayTimeout, msg, desc...)
}

func HTTPVersionNotSupported(msg string, desc ...string) *HTTPError {
	return NewHTTPError(http.StatusHTTPVersionNotSupported, msg, desc...)
}
