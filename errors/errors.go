package errors

import (
	"errors"
	"net/http"
	"strings"
)

type ErrCode string

const (
	ErrCodeNotFound          ErrCode = "NotFound"
	ErrCodeServiceFailure    ErrCode = "ServiceFailure"
	ErrCodeValidation        ErrCode = "Validation"
	ErrCodeDependencyFailure ErrCode = "DependencyFailure"
	ErrCodeExisted           ErrCode = "Existed"
	ErrCodeRateLimited       ErrCode = "RateLimited"
	ErrCodeOversized         ErrCode = "Oversized"
)

// Err is the error type shared by every layer of the service. Store failures carry
// ErrCodeDependencyFailure; the request layer only ever shows Error() of client-side codes.
type Err struct {
	Code  ErrCode
	msg   string
	cause error
}

func (e *Err) Error() string {
	return e.msg
}

// Trace returns the message of e followed by its chain of causes, one per line.
func (e *Err) Trace() string {
	b := &strings.Builder{}
	b.WriteString(e.msg)
	indent := "\n\t"
	err := errors.Unwrap(e)
	for err != nil {
		b.WriteString(indent)
		b.WriteString("Caused by: ")
		b.WriteString(err.Error())
		indent += "\t"
		err = errors.Unwrap(err)
	}
	return b.String()
}

func (e *Err) Unwrap() error {
	return e.cause
}

// prefer NewXxx(msg).WithCause(err) over NewXxx(msg, err): the cause param of the latter is easy to misread
func (e *Err) WithCause(c error) *Err {
	e.cause = c
	return e
}

// Is reports whether e carries code c.
func (e *Err) Is(c ErrCode) bool {
	return e != nil && e.Code == c
}

func NewServiceFailure(m string) *Err {
	return &Err{Code: ErrCodeServiceFailure, msg: m}
}

func NewDependencyFailure(m string) *Err {
	return &Err{Code: ErrCodeDependencyFailure, msg: m}
}

func NewNotFound(m string) *Err {
	return &Err{Code: ErrCodeNotFound, msg: m}
}

func NewValidation(m string) *Err {
	return &Err{Code: ErrCodeValidation, msg: m}
}

func NewExisted(m string) *Err {
	return &Err{Code: ErrCodeExisted, msg: m}
}

func NewRateLimited(m string) *Err {
	return &Err{Code: ErrCodeRateLimited, msg: m}
}

func NewOversized(m string) *Err {
	return &Err{Code: ErrCodeOversized, msg: m}
}

// StatusCode returns the http response status code associated with the Err value
func (e *Err) StatusCode() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeExisted:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeOversized:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// ClientFacing reports whether the message of e is safe to show to the requester.
func (e *Err) ClientFacing() bool {
	return e.StatusCode() < http.StatusInternalServerError
}
