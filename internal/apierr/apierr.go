// Package apierr carries the error taxonomy shared by the gateway and the
// client: configuration, not-found, transient and best-effort failures.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindNotFound
	KindInvalid
	KindUnauthorized
	KindForbidden
	KindTransient
	KindBestEffort
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	case KindBestEffort:
		return "best_effort"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Code: code, Err: err}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: "not_found", Err: fmt.Errorf("%s not found", what)}
}

func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Status: http.StatusBadRequest, Code: "invalid", Err: errors.New(msg)}
}

func Config(msg string) *Error {
	return &Error{Kind: KindConfig, Status: http.StatusInternalServerError, Code: "config", Err: errors.New(msg)}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Status: http.StatusBadGateway, Code: "backend_unavailable", Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// StatusOf maps err to an HTTP status; unknown errors are 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status >= 400 && status < 500:
		return KindInvalid
	case status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Write replies with the JSON error envelope and the status derived from err.
func Write(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	code := ""
	var ae *Error
	if errors.As(err, &ae) {
		code = ae.Code
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}
