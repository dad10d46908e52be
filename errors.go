package xarchive

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nguyengg/xarchive/engine"
)

var (
	// ErrClosed is returned by every method called after Close.
	ErrClosed = errors.New("archive is closed")
	// ErrBusy is returned while an Entries iteration is in progress.
	ErrBusy = errors.New("archive is busy iterating entries")
	// ErrNotOpen is returned when entries are requested before Open or OpenBuffer.
	ErrNotOpen = errors.New("archive is not open")
	// ErrAlreadyOpen is returned when the archive is configured or opened after it has been opened.
	ErrAlreadyOpen = errors.New("archive is already open")
	// ErrNoEntry is returned when entry data is requested before the first header has been read.
	ErrNoEntry = errors.New("no current entry")
	// ErrUnknownFilter is returned for a Filter value or name that does not exist.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnknownFormat is returned for a Format value or name that does not exist.
	ErrUnknownFormat = errors.New("unknown format")
)

// Error is a failure reported by the engine.
type Error struct {
	status engine.Status
	code   int
	msg    string
	hasMsg bool
}

// Status returns the status code of the engine call that failed.
func (e *Error) Status() Status {
	return e.status
}

// Code returns the errno recorded by the engine.
func (e *Error) Code() int {
	return e.code
}

// Message returns the message recorded by the engine. The boolean is false if there is none.
func (e *Error) Message() (string, bool) {
	return e.msg, e.hasMsg
}

// HasMessage reports whether the engine recorded a message.
func (e *Error) HasMessage() bool {
	return e.hasMsg
}

func (e *Error) Error() string {
	if e.hasMsg {
		return fmt.Sprintf("archive error %d: %s", e.code, e.msg)
	}

	return fmt.Sprintf("archive error %d", e.code)
}

// IOError is a failure reading the data source of an archive.
//
// Err is usually an *fs.PathError so errors.Is(err, fs.ErrNotExist) works through it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Error() string {
	var pathErr *fs.PathError
	if errors.As(e.Err, &pathErr) {
		return "i/o error: " + pathErr.Error()
	}

	return fmt.Sprintf("i/o error: %s %s: %v", e.Op, e.Path, e.Err)
}

// IsArchiveError reports whether err wraps an *Error.
func IsArchiveError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsIOError reports whether err wraps an *IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// fromCode runs fn and converts a status other than StatusOK or StatusWarn into an *Error carrying a's errno and
// message.
func fromCode(a Archive, fn func() engine.Status) error {
	if status := fn(); status != engine.StatusOK && status != engine.StatusWarn {
		return newError(a.Handle(), status)
	}

	return nil
}

func newError(h *engine.Archive, status engine.Status) *Error {
	msg, ok := engine.ErrorString(h)
	return &Error{
		status: status,
		code:   engine.Errno(h),
		msg:    msg,
		hasMsg: ok,
	}
}
