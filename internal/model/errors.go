package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures recovered at component boundaries
type ErrorKind string

const (
	KindResolution         ErrorKind = "resolution"
	KindFetch              ErrorKind = "fetch"
	KindTimeout            ErrorKind = "timeout"
	KindDownloadProcess    ErrorKind = "download_process"
	KindMissingDestination ErrorKind = "missing_destination"
	KindAnalysis           ErrorKind = "analysis"
	KindIO                 ErrorKind = "io"
	KindBusy               ErrorKind = "busy"
)

// Sentinels for errors.Is matching against *Error values of the same kind
var (
	ErrResolution         = &Error{Kind: KindResolution}
	ErrFetch              = &Error{Kind: KindFetch}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrDownloadProcess    = &Error{Kind: KindDownloadProcess}
	ErrMissingDestination = &Error{Kind: KindMissingDestination}
	ErrAnalysis           = &Error{Kind: KindAnalysis}
	ErrIO                 = &Error{Kind: KindIO}
	ErrBusy               = &Error{Kind: KindBusy}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
