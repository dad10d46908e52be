package xarchive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"runtime"

	"github.com/nguyengg/xarchive/engine"
)

// DefaultBlockSize is the block size passed to the engine when opening a buffer.
const DefaultBlockSize = 10240

type readState int

const (
	readNew readState = iota
	readOpen
	readEOF
	readFailed
)

// ReadArchive reads entries from an archive.
//
// The zero value is not usable; use NewReadArchive, FromPath, or FromBuffer. A ReadArchive moves from configuration
// (SupportFilter, SupportFormat, Set*Option) to open (Open or OpenBuffer) to iteration (Next or Entries) and finally
// to Close. Calls made out of that order return ErrAlreadyOpen, ErrNotOpen, or ErrClosed.
type ReadArchive struct {
	h       *engine.Archive
	cleanup runtime.Cleanup

	state  readState
	closed bool
	busy   bool

	// err is the terminal error once state is readFailed.
	err error
	// warning is the engine warning from the most recent header, if any.
	warning *Error
	// hasEntry is true once a header has been read and until the end of the archive.
	hasEntry bool

	// buf is kept alive for as long as the engine may read from it.
	buf []byte
}

var _ ReadOnlyArchive = &ReadArchive{}

// NewReadArchive returns a ReadArchive with no filters or formats enabled.
func NewReadArchive() *ReadArchive {
	h := engine.ReadNew()
	if h == nil {
		panic("xarchive: failed to allocate read archive")
	}

	r := &ReadArchive{h: h}
	r.cleanup = runtime.AddCleanup(r, freeRead, h)
	return r
}

func freeRead(h *engine.Archive) {
	engine.ReadFree(h)
}

// FromPath enables every filter and format and opens the named file.
//
// On failure the archive is closed and the returned error is either an *IOError or an *Error.
func FromPath(path string) (*ReadArchive, error) {
	return open(func(r *ReadArchive) error {
		return r.Open(path)
	})
}

// FromBuffer is FromPath over bytes already in memory.
func FromBuffer(buf []byte) (*ReadArchive, error) {
	return open(func(r *ReadArchive) error {
		return r.OpenBuffer(buf)
	})
}

func open(fn func(r *ReadArchive) error) (*ReadArchive, error) {
	r := NewReadArchive()

	err := r.SupportFilter(FilterAll)
	if err == nil {
		err = r.SupportFormat(FormatAll)
	}
	if err == nil {
		err = fn(r)
	}
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// Handle returns the underlying engine handle, which remains owned by r.
func (r *ReadArchive) Handle() *engine.Archive {
	return r.h
}

// guard rejects calls on a closed archive, and on a busy one unless allowBusy is set.
func (r *ReadArchive) guard(op string, allowBusy bool) error {
	switch {
	case r.closed:
		return fmt.Errorf("%s: %w", op, ErrClosed)
	case r.busy && !allowBusy:
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}

	return nil
}

// guardConfig additionally requires that the archive has not been opened yet.
func (r *ReadArchive) guardConfig(op string) error {
	if err := r.guard(op, false); err != nil {
		return err
	}

	switch r.state {
	case readNew:
		return nil
	case readFailed:
		return r.err
	default:
		return fmt.Errorf("%s: %w", op, ErrAlreadyOpen)
	}
}

// SupportFormat enables format, or every format except FormatRaw for FormatAll. A warning from the engine counts as
// success.
func (r *ReadArchive) SupportFormat(format Format) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("supportFormat"); err != nil {
		return err
	}

	fn, err := lookupFormat(readFormatFuncs[:], format)
	if err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return fn(r.h)
	})
}

// SupportFilter enables filter, or every filter for FilterAll. Filters backed by an external program succeed with a
// warning that the engine records but does not return.
func (r *ReadArchive) SupportFilter(filter Filter) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("supportFilter"); err != nil {
		return err
	}

	fn, err := lookupFilter(readFilterFuncs[:], filter)
	if err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return fn(r.h)
	})
}

// SetFilterOption sets option on the filter named module, or on every enabled filter if module is empty. An empty
// value unsets the option.
func (r *ReadArchive) SetFilterOption(module, option, value string) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("setFilterOption"); err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return engine.ReadSetFilterOption(r.h, module, option, value)
	})
}

// SetFormatOption sets option on the format named module, or on every enabled format if module is empty. An empty
// value unsets the option.
func (r *ReadArchive) SetFormatOption(module, option, value string) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("setFormatOption"); err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return engine.ReadSetFormatOption(r.h, module, option, value)
	})
}

// SetOption sets option on formats and filters alike. A failure from either side is returned.
func (r *ReadArchive) SetOption(module, option, value string) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("setOption"); err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return engine.ReadSetOption(r.h, module, option, value)
	})
}

// SetOptions applies a comma-separated list of "[module:]option[=value]" items, "!option" unsetting one.
func (r *ReadArchive) SetOptions(options string) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("setOptions"); err != nil {
		return err
	}

	return fromCode(r, func() engine.Status {
		return engine.ReadSetOptions(r.h, options)
	})
}

// Open reads the named file entirely and opens it with OpenBuffer.
//
// A failure to read the file is returned as an *IOError.
func (r *ReadArchive) Open(path string) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("open"); err != nil {
		return err
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}

	return r.OpenBuffer(buf)
}

// OpenBuffer opens the archive over buf, which must not be modified until r is closed.
//
// If the engine cannot open the archive, the archive moves to a failed state in which every later call other than
// Close returns the same *Error.
func (r *ReadArchive) OpenBuffer(buf []byte) error {
	defer runtime.KeepAlive(r)

	if err := r.guardConfig("openBuffer"); err != nil {
		return err
	}

	r.buf = buf
	if err := fromCode(r, func() engine.Status {
		return engine.ReadOpenMemory(r.h, buf, DefaultBlockSize)
	}); err != nil {
		r.fail(err)
		return err
	}

	r.state = readOpen
	return nil
}

func (r *ReadArchive) fail(err error) {
	r.state = readFailed
	r.err = err
	r.hasEntry = false
}

// Next returns the next entry, or io.EOF at the end of the archive.
//
// An *Error whose Status is StatusFailed means only the entry at this position could not be read; the following call
// may succeed. Any other *Error is terminal and is returned again by every later call. The returned Entry is owned by
// the caller.
func (r *ReadArchive) Next() (*Entry, error) {
	defer runtime.KeepAlive(r)

	if err := r.guard("next", false); err != nil {
		return nil, err
	}

	return r.next()
}

func (r *ReadArchive) next() (*Entry, error) {
	switch r.state {
	case readNew:
		return nil, fmt.Errorf("next: %w", ErrNotOpen)
	case readEOF:
		return nil, io.EOF
	case readFailed:
		return nil, r.err
	}

	e := NewEntry()
	r.warning = nil

	switch status := engine.ReadNextHeader2(r.h, e.h); status {
	case engine.StatusOK:
		r.hasEntry = true
		return e, nil
	case engine.StatusWarn:
		r.hasEntry = true
		r.warning = newError(r.h, status)
		return e, nil
	case engine.StatusEOF:
		_ = e.Close()
		r.state = readEOF
		r.hasEntry = false
		return nil, io.EOF
	case engine.StatusFailed:
		_ = e.Close()
		r.hasEntry = false
		return nil, newError(r.h, status)
	default:
		_ = e.Close()
		err := newError(r.h, status)
		r.fail(err)
		return nil, err
	}
}

// Warning returns the warning the engine reported while reading the most recent header, or nil.
//
// Warnings never fail an operation. They are reported, for example, when an external program decodes a filter or a
// pathname had to be altered.
func (r *ReadArchive) Warning() *Error {
	return r.warning
}

// Entries returns an iterator over the remaining entries.
//
// The iterator yields (entry, nil) per header and stops silently at the end of the archive. On error it yields
// (nil, err) once and stops. The archive is busy while the range loop runs: Close, Next, configuration, and a second
// Entries return ErrBusy, while Read and Skip remain available for the current entry.
//
// Each yielded Entry is owned by the loop body, which may Close it or keep it.
func (r *ReadArchive) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		defer runtime.KeepAlive(r)

		if err := r.guard("entries", false); err != nil {
			yield(nil, err)
			return
		}

		r.busy = true
		defer func() {
			r.busy = false
		}()

		for {
			e, err := r.next()
			switch {
			case err == io.EOF:
				return
			case err != nil:
				yield(nil, err)
				return
			case !yield(e, nil):
				return
			}
		}
	}
}

// Read reads the data of the current entry. It returns io.EOF at the end of the entry's data.
func (r *ReadArchive) Read(p []byte) (int, error) {
	defer runtime.KeepAlive(r)

	if err := r.guardData("read"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, status := engine.ReadData(r.h, p)
	switch status {
	case engine.StatusOK, engine.StatusWarn:
		return n, nil
	case engine.StatusEOF:
		return 0, io.EOF
	case engine.StatusFailed:
		return n, newError(r.h, status)
	default:
		err := newError(r.h, status)
		r.fail(err)
		return n, err
	}
}

// Skip discards the rest of the current entry's data.
func (r *ReadArchive) Skip() error {
	defer runtime.KeepAlive(r)

	if err := r.guardData("skip"); err != nil {
		return err
	}

	if err := fromCode(r, func() engine.Status {
		return engine.ReadDataSkip(r.h)
	}); err != nil {
		if err.(*Error).Status() != engine.StatusFailed {
			r.fail(err)
		}
		return err
	}

	return nil
}

func (r *ReadArchive) guardData(op string) error {
	if err := r.guard(op, true); err != nil {
		return err
	}

	switch r.state {
	case readNew:
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	case readFailed:
		return r.err
	}
	if !r.hasEntry {
		return fmt.Errorf("%s: %w", op, ErrNoEntry)
	}

	return nil
}

// FormatName returns the name of the detected format, or "" before a successful open.
func (r *ReadArchive) FormatName() string {
	defer runtime.KeepAlive(r)

	if r.closed {
		return ""
	}

	return engine.FormatName(r.h)
}

// FilterNames returns the filters applied to the input, innermost first and always ending with "none", or nil
// before a successful open.
func (r *ReadArchive) FilterNames() []string {
	defer runtime.KeepAlive(r)

	if r.closed {
		return nil
	}

	n := engine.FilterCount(r.h)
	if n == 0 {
		return nil
	}

	names := make([]string, n)
	for i := range n {
		names[i] = engine.FilterName(r.h, i)
	}
	return names
}

// FileCount returns the number of headers read so far.
func (r *ReadArchive) FileCount() int {
	defer runtime.KeepAlive(r)

	if r.closed {
		return 0
	}

	return engine.FileCount(r.h)
}

// Close frees the engine handle. Close returns ErrBusy during Entries iteration and is idempotent otherwise.
func (r *ReadArchive) Close() error {
	defer runtime.KeepAlive(r)

	if r.closed {
		return nil
	}
	if r.busy {
		return fmt.Errorf("close: %w", ErrBusy)
	}

	r.cleanup.Stop()
	r.closed = true
	r.buf = nil
	return fromCode(r, func() engine.Status {
		return engine.ReadFree(r.h)
	})
}
