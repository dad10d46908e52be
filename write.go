package xarchive

import (
	"fmt"
	"runtime"

	"github.com/nguyengg/xarchive/engine"
)

// WriteArchive owns a write-mode engine handle.
//
// Only format and filter selection is available: entries cannot be written yet.
type WriteArchive struct {
	h       *engine.Archive
	cleanup runtime.Cleanup
	closed  bool
}

var _ Archive = &WriteArchive{}

// NewWriteArchive returns a WriteArchive with no format or filter selected.
func NewWriteArchive() *WriteArchive {
	h := engine.WriteNew()
	if h == nil {
		panic("xarchive: failed to allocate write archive")
	}

	w := &WriteArchive{h: h}
	w.cleanup = runtime.AddCleanup(w, freeWrite, h)
	return w
}

func freeWrite(h *engine.Archive) {
	engine.WriteFree(h)
}

// Handle returns the underlying engine handle, which remains owned by w.
func (w *WriteArchive) Handle() *engine.Archive {
	return w.h
}

// SupportFormat selects the output format, replacing any earlier selection.
//
// FormatAll, FormatEmpty, FormatCab, FormatLha, and FormatRar cannot be written and return an *Error.
func (w *WriteArchive) SupportFormat(format Format) error {
	defer runtime.KeepAlive(w)

	if w.closed {
		return fmt.Errorf("supportFormat: %w", ErrClosed)
	}

	fn, err := lookupFormat(writeFormatFuncs[:], format)
	if err != nil {
		return err
	}

	return fromCode(w, func() engine.Status {
		return fn(w.h)
	})
}

// SupportFilter appends an output filter. FilterAll and FilterRpm cannot be written and return an *Error.
func (w *WriteArchive) SupportFilter(filter Filter) error {
	defer runtime.KeepAlive(w)

	if w.closed {
		return fmt.Errorf("supportFilter: %w", ErrClosed)
	}

	fn, err := lookupFilter(writeFilterFuncs[:], filter)
	if err != nil {
		return err
	}

	return fromCode(w, func() engine.Status {
		return fn(w.h)
	})
}

// FormatName returns the name of the selected format, or "".
func (w *WriteArchive) FormatName() string {
	defer runtime.KeepAlive(w)

	if w.closed {
		return ""
	}

	return engine.WriteFormatName(w.h)
}

// FilterNames returns the selected filters in the order they were added.
func (w *WriteArchive) FilterNames() []string {
	defer runtime.KeepAlive(w)

	if w.closed {
		return nil
	}

	return engine.WriteFilterNames(w.h)
}

// Close frees the engine handle. Close is idempotent.
func (w *WriteArchive) Close() error {
	defer runtime.KeepAlive(w)

	if w.closed {
		return nil
	}

	w.cleanup.Stop()
	w.closed = true
	return fromCode(w, func() engine.Status {
		return engine.WriteFree(w.h)
	})
}
