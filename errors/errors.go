// Package errors extends github.com/pkg/errors with the causer-chain
// conventions used across this module: a root cause, an optional list
// of human-readable detail strings, and an optional key-value data
// bag, so that the §7 error taxonomy stays string-identifiable for
// tests while still carrying a stack trace for logs.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// New returns an error that formats as the given text.
func New(text string) error {
	return pkgerrors.New(text)
}

// Sub reports a sub-error of a sentinel group error. The returned
// error's message is that of sub; Cause(returned) is group, so
// callers can test `errors.Cause(err) == ErrBadTx` regardless of
// which suberror actually occurred.
func Sub(group, sub error) error {
	return &subError{group: group, sub: sub}
}

type subError struct {
	group error
	sub   error
}

func (e *subError) Error() string { return e.sub.Error() }
func (e *subError) Cause() error  { return e.group }
func (e *subError) Unwrap() error { return e.group }

// Cause returns the underlying cause of err, if possible, by
// successively calling Cause() or Unwrap() on it.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}

// Root is an alias for Cause, kept for readers coming from the
// teacher's own errors package naming.
func Root(err error) error {
	return Cause(err)
}

// Wrap annotates err with a message. Arguments are handled as in
// fmt.Sprint. Wrap returns nil if err is nil.
func Wrap(err error, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithMessage(err, fmt.Sprint(a...))
}

// Wrapf is like Wrap, but arguments are handled as in fmt.Printf.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithMessage(err, fmt.Sprintf(format, a...))
}

type detailedError struct {
	error
	detail string
	data   map[string]interface{}
}

func (e *detailedError) Cause() error  { return e.error }
func (e *detailedError) Unwrap() error { return e.error }

// WithDetail returns a new error that wraps err, carrying text as
// additional human-readable context retrievable with Detail.
func WithDetail(err error, text string) error {
	if err == nil {
		return nil
	}
	if text == "" {
		return err
	}
	return &detailedError{error: pkgerrors.WithMessage(err, text), detail: text}
}

// WithDetailf is like WithDetail, but formats as in fmt.Printf.
func WithDetailf(err error, format string, v ...interface{}) error {
	return WithDetail(err, fmt.Sprintf(format, v...))
}

// Detail returns the detail message attached to err by WithDetail, if
// any.
func Detail(err error) string {
	var de *detailedError
	for e := err; e != nil; {
		if d, ok := e.(*detailedError); ok {
			de = d
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if de == nil {
		return ""
	}
	return de.detail
}

// WithData attaches a key-value data bag to err, merging with any
// data already attached. keyval takes the form k1, v1, k2, v2, ....
func WithData(err error, keyval ...interface{}) error {
	if err == nil {
		return nil
	}
	data := map[string]interface{}{}
	for k, v := range Data(err) {
		data[k] = v
	}
	for i := 0; i+1 < len(keyval); i += 2 {
		data[keyval[i].(string)] = keyval[i+1]
	}
	return &detailedError{error: err, detail: Detail(err), data: data}
}

// Data returns the key-value data bag attached to err, if any.
func Data(err error) map[string]interface{} {
	for e := err; e != nil; {
		if d, ok := e.(*detailedError); ok && d.data != nil {
			return d.data
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return nil
}

// Stack returns the stack trace attached to err by
// github.com/pkg/errors, rendered as text with "%+v" (function and
// file:line for each frame), for use by the log package.
func Stack(err error) []byte {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	for e := err; e != nil; {
		if st, ok := e.(stackTracer); ok {
			return []byte(fmt.Sprintf("%+v", st.StackTrace()))
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return nil
}
