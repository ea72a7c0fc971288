// Package errortypes defines the error values that carry a location in a
// template source file.
package errortypes

import "fmt"

// ErrFilePos extends the error interface to add details on the file position where the error occurred.
type ErrFilePos interface {
	error
	File() string
	Line() int
	Col() int
}

// NewErrFilePosf creates an error conforming to the ErrFilePos interface.
// The message is prefixed with "template <file>:<line>:<col>: ".
func NewErrFilePosf(file string, line, col int, format string, args ...interface{}) error {
	return &errFilePos{
		msg:  fmt.Sprintf("template %s:%d:%d: %s", file, line, col, fmt.Sprintf(format, args...)),
		file: file,
		line: line,
		col:  col,
	}
}

// IsErrFilePos identifies whether or not the root cause of the provided error is of the ErrFilePos type.
// Wrapped errors are unwrapped via Unwrap() or Cause().
func IsErrFilePos(err error) bool {
	return ToErrFilePos(err) != nil
}

// ToErrFilePos converts the input error to an ErrFilePos if possible, or nil if not.
// If IsErrFilePos returns true, this will not return nil.
func ToErrFilePos(err error) ErrFilePos {
	for err != nil {
		if out, ok := err.(ErrFilePos); ok {
			return out
		}
		err = unwrap(err)
	}
	return nil
}

func unwrap(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Cause() error }:
		return e.Cause()
	}
	return nil
}

var _ ErrFilePos = &errFilePos{}

type errFilePos struct {
	msg  string
	file string
	line int
	col  int
}

func (e *errFilePos) Error() string {
	return e.msg
}

func (e *errFilePos) File() string {
	return e.file
}

func (e *errFilePos) Line() int {
	return e.line
}

func (e *errFilePos) Col() int {
	return e.col
}
