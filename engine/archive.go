package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Status is the return code of most engine functions.
type Status int

const (
	// StatusEOF is returned by ReadNextHeader2 at the end of the archive and by ReadData at the end of an entry.
	StatusEOF Status = 1
	// StatusOK indicates success.
	StatusOK Status = 0
	// StatusRetry indicates that the operation may succeed if retried.
	StatusRetry Status = -10
	// StatusWarn indicates success with a diagnostic left in ErrorString.
	StatusWarn Status = -20
	// StatusFailed indicates that the current operation failed but the handle remains usable.
	StatusFailed Status = -25
	// StatusFatal indicates that the handle is no longer usable except to be freed.
	StatusFatal Status = -30
)

func (s Status) String() string {
	switch s {
	case StatusEOF:
		return "EOF"
	case StatusOK:
		return "OK"
	case StatusRetry:
		return "RETRY"
	case StatusWarn:
		return "WARN"
	case StatusFailed:
		return "FAILED"
	case StatusFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error numbers reported by Errno.
const (
	ErrnoMisc       = -1
	ErrnoIO         = 5
	ErrnoNoMem      = 12
	ErrnoProgrammer = 22
	ErrnoFileFormat = 84
)

const (
	readMagic  uint32 = 0xdeb0c5
	writeMagic uint32 = 0xb0c5c0de
)

type state uint32

const (
	stateNew    state = 1
	stateHeader state = 2
	stateData   state = 4
	stateEOF    state = 0x10
	stateClosed state = 0x20
	stateFatal  state = 0x8000
	stateAny    state = 0xffff &^ stateFatal
)

func (s state) String() string {
	var names []string
	for _, v := range []struct {
		state
		name string
	}{
		{stateNew, "new"},
		{stateHeader, "header"},
		{stateData, "data"},
		{stateEOF, "eof"},
		{stateClosed, "closed"},
		{stateFatal, "fatal"},
	} {
		if s&v.state != 0 {
			names = append(names, v.name)
		}
	}

	if len(names) == 0 {
		return "??"
	}

	return strings.Join(names, "/")
}

// Archive is an opaque read or write handle.
//
// A handle is created by ReadNew or WriteNew and must be released exactly once by ReadFree or WriteFree.
type Archive struct {
	magic uint32
	state state
	freed atomic.Bool

	errno  int
	errMsg string
	hasErr bool

	read  *reader
	write *writer
}

// Freed reports whether the handle has been released by ReadFree or WriteFree.
func Freed(a *Archive) bool {
	return a != nil && a.freed.Load()
}

// Errno returns the error number of the most recent failure, or 0.
func Errno(a *Archive) int {
	if a == nil {
		return 0
	}

	return a.errno
}

// ErrorString returns the message of the most recent failure. The boolean is false if no message is set.
func ErrorString(a *Archive) (string, bool) {
	if a == nil || !a.hasErr {
		return "", false
	}

	return a.errMsg, true
}

// ClearError resets both Errno and ErrorString.
func ClearError(a *Archive) {
	if a != nil {
		a.clearError()
	}
}

func (a *Archive) clearError() {
	a.errno, a.errMsg, a.hasErr = 0, "", false
}

func (a *Archive) setError(errno int, format string, args ...any) {
	a.errno = errno
	a.errMsg = fmt.Sprintf(format, args...)
	a.hasErr = true
}

// fatal records the error and moves the handle to the fatal state.
func (a *Archive) fatal(errno int, format string, args ...any) Status {
	a.setError(errno, format, args...)
	a.state = stateFatal
	return StatusFatal
}

// check validates the handle kind and state before fn does anything.
func (a *Archive) check(magic uint32, states state, fn string) Status {
	switch {
	case a == nil:
		return StatusFatal
	case a.freed.Load():
		a.setError(ErrnoProgrammer, "INTERNAL ERROR: Function '%s' invoked on a freed archive handle", fn)
		return StatusFatal
	case a.magic != magic:
		return a.fatal(ErrnoProgrammer, "INTERNAL ERROR: Function '%s' invoked with invalid archive handle", fn)
	case a.state&states == 0:
		return a.fatal(ErrnoProgrammer,
			"INTERNAL ERROR: Function '%s' invoked with archive structure in state '%s', should be in state '%s'",
			fn, a.state, states)
	}

	return StatusOK
}

// ReadNew allocates a read handle.
func ReadNew() *Archive {
	return &Archive{
		magic: readMagic,
		state: stateNew,
		read:  newReader(),
	}
}

// ReadFree releases the read handle and everything it holds. Freeing a nil handle is a no-op; freeing twice fails
// with StatusFatal.
func ReadFree(a *Archive) Status {
	if a == nil {
		return StatusOK
	}
	if s := a.check(readMagic, stateAny|stateFatal, "archive_read_free"); s != StatusOK {
		return s
	}

	a.read.release()
	a.state = stateClosed
	a.freed.Store(true)
	return StatusOK
}

// WriteNew allocates a write handle.
func WriteNew() *Archive {
	return &Archive{
		magic: writeMagic,
		state: stateNew,
		write: &writer{},
	}
}

// WriteFree releases the write handle. Freeing a nil handle is a no-op; freeing twice fails with StatusFatal.
func WriteFree(a *Archive) Status {
	if a == nil {
		return StatusOK
	}
	if s := a.check(writeMagic, stateAny|stateFatal, "archive_write_free"); s != StatusOK {
		return s
	}

	a.write = &writer{}
	a.state = stateClosed
	a.freed.Store(true)
	return StatusOK
}
