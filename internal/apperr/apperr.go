// Package apperr defines the error taxonomy shared by the gateway, cart and
// checkout layers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindNetwork
	KindServer
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrServer       = &Error{Kind: KindServer}
	ErrBusy         = &Error{Kind: KindBusy}
)

// Error is a normalized failure. Status is the backend HTTP status when one
// was received, zero otherwise.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrBusy) works
// regardless of Op or Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

func Validation(op, detail string) *Error { return New(KindValidation, op, detail) }

// KindOf returns the kind of err, or zero if err is not part of the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Retryable reports whether repeating the same call unchanged may succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}

// HTTPStatus maps err onto a status for the local storefront surface.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		var e *Error
		if errors.As(err, &e) && e.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBusy:
		return http.StatusConflict
	case KindNetwork, KindServer:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
