package engine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nguyengg/xarchive/archive"
	"github.com/valyala/bytebufferpool"
)

// reader is the read side of an Archive.
type reader struct {
	filters []*filterBidder
	formats []*formatBidder
	options map[string]driverOptions

	// set by ReadOpenMemory.
	active []activeFilter
	format *formatBidder
	pooled *bytebufferpool.ByteBuffer
	next   func() (archive.File, error, bool)
	stop   func()

	// current entry.
	file      archive.File
	data      io.ReadCloser
	fileCount int
}

type activeFilter struct {
	name string
	rc   io.ReadCloser
}

func newReader() *reader {
	return &reader{options: make(map[string]driverOptions)}
}

func (r *reader) addFilter(f *filterBidder) {
	if !slices.Contains(r.filters, f) {
		r.filters = append(r.filters, f)
	}
}

func (r *reader) addFormat(f *formatBidder) {
	if !slices.Contains(r.formats, f) {
		r.formats = append(r.formats, f)
	}
}

func (r *reader) setDriverOption(a *Archive, module string, kinds map[string]optionKind, option, value string) Status {
	kind, ok := kinds[option]
	if !ok {
		return StatusWarn
	}

	if value != "" {
		var err error
		switch kind {
		case intOption:
			_, err = strconv.Atoi(value)
		case uintOption:
			_, err = strconv.ParseUint(value, 10, 64)
		}
		if err != nil {
			a.setError(ErrnoMisc, "Invalid value for option `%s:%s': %q", module, option, value)
			return StatusFailed
		}
	}

	opts := r.options[module]
	if opts == nil {
		opts = make(driverOptions)
		r.options[module] = opts
	}

	if value == "" {
		delete(opts, option)
	} else {
		opts[option] = value
	}

	return StatusOK
}

// closeData releases the current entry's data reader.
func (r *reader) closeData() {
	if r.data != nil {
		_ = r.data.Close()
		r.data = nil
	}
	r.file = nil
}

func (r *reader) release() {
	r.closeData()

	if r.stop != nil {
		r.stop()
		r.next, r.stop = nil, nil
	}

	for _, f := range r.active {
		_ = f.rc.Close()
	}
	r.active = nil

	if r.pooled != nil {
		bytebufferpool.Put(r.pooled)
		r.pooled = nil
	}
}

// ReadOpenMemory opens the handle on buf, which must not be modified until the handle is freed.
//
// The buffer is handed to the filters in blocks of at most blockSize bytes; blockSize <= 0 means one block. Filters
// are stacked for as long as one of the registered filters recognizes the stream, then the format with the highest
// bid wins.
func ReadOpenMemory(a *Archive, buf []byte, blockSize int) Status {
	if s := a.check(readMagic, stateNew, "archive_read_open_memory"); s != StatusOK {
		return s
	}

	a.clearError()
	r := a.read

	if len(r.formats) == 0 {
		return a.fatal(ErrnoProgrammer, "No formats registered")
	}

	if blockSize <= 0 {
		blockSize = max(len(buf), 1)
	}

	var src io.Reader = &blockReader{buf: buf, size: blockSize}
	br := bufio.NewReaderSize(src, filterPeekSize)

	for i := 0; ; i++ {
		peek, _ := br.Peek(filterPeekSize)
		f := bestFilter(r.filters, peek)
		if f == nil {
			break
		}
		if i == maxFilters {
			return a.fatal(ErrnoMisc, "Input requires too many filters for decoding")
		}

		dec, err := f.newCodec(r.options[f.name]).NewDecoder(br)
		if err != nil {
			return a.fatal(errnoFor(err), "Error initializing %s decompressor: %v", f.name, err)
		}

		r.active = slices.Insert(r.active, 0, activeFilter{name: f.name, rc: dec})
		br = bufio.NewReaderSize(dec, filterPeekSize)
	}

	fr := bufio.NewReaderSize(br, formatPeekSize)
	peek, err := fr.Peek(formatPeekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return a.fatal(errnoFor(err), "Error reading archive: %v", err)
	}

	f := bestFormat(r.formats, peek)
	if f == nil {
		return a.fatal(ErrnoFileFormat, "Unrecognized archive format")
	}
	if f.newArchiver == nil {
		return a.fatal(ErrnoFileFormat, "%s format is recognized but not supported", f.label)
	}

	var in io.Reader = fr
	switch {
	case f.access == streamAccess:
	case len(r.active) == 0:
		in = bytes.NewReader(buf)
	case f.access == randomAccess:
		r.pooled = bytebufferpool.Get()
		if _, err = r.pooled.ReadFrom(fr); err != nil {
			return a.fatal(errnoFor(err), "Error reading archive: %v", err)
		}
		in = bytes.NewReader(r.pooled.B)
	}

	seq, err := f.newArchiver(r.options[f.name]).Open(in)
	if err != nil {
		return a.fatal(errnoFor(err), "%v", err)
	}

	r.format = f
	r.next, r.stop = iter.Pull2(seq)
	a.state = stateHeader
	return StatusOK
}

func bestFilter(filters []*filterBidder, peek []byte) (best *filterBidder) {
	var bid int
	for _, f := range filters {
		if b := f.bid(peek); b > bid {
			best, bid = f, b
		}
	}

	return
}

func bestFormat(formats []*formatBidder, peek []byte) (best *formatBidder) {
	var bid int
	for _, f := range formats {
		if b := f.bid(peek); b > bid {
			best, bid = f, b
		}
	}

	return
}

// ReadNextHeader2 reads the next header into e, which is cleared first.
//
// It returns StatusOK or StatusWarn with e populated, StatusEOF at the end of the archive, StatusFailed if the entry
// at this position had to be skipped (the next call may succeed), or StatusFatal.
func ReadNextHeader2(a *Archive, e *Entry) Status {
	if s := a.check(readMagic, stateHeader|stateData, "archive_read_next_header2"); s != StatusOK {
		return s
	}
	if e == nil || e.freed.Load() {
		a.setError(ErrnoProgrammer, "INTERNAL ERROR: Function 'archive_read_next_header2' invoked with invalid entry")
		return StatusFatal
	}

	a.clearError()
	EntryClear(e)

	r := a.read
	r.closeData()

	f, err, ok := r.next()
	if !ok {
		a.state = stateEOF
		return StatusEOF
	}

	if f == nil {
		var skip *archive.SkipError
		if errors.As(err, &skip) {
			a.setError(ErrnoFileFormat, "%v", skip)
			a.state = stateHeader
			return StatusFailed
		}

		if err == nil {
			err = errors.New("missing file header")
		}
		return a.fatal(errnoFor(err), "%v", err)
	}

	status := StatusOK
	var warn *archive.Warning
	if errors.As(err, &warn) {
		a.setError(ErrnoMisc, "%v", warn)
		status = StatusWarn
	}

	if msg := fillEntry(e, f); msg != "" {
		a.setError(ErrnoMisc, "%s", msg)
		status = StatusWarn
	}

	r.file = f
	r.fileCount++
	a.state = stateData
	return status
}

// fillEntry copies the file's metadata into e. It returns a warning message if the pathname had to be altered.
func fillEntry(e *Entry, f archive.File) (warning string) {
	name := f.Name()
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "\uFFFD")
		warning = fmt.Sprintf("Pathname cannot be converted to UTF-8; replaced invalid bytes in %q", name)
	}
	EntrySetPathname(e, name)

	mode := f.Mode()
	EntrySetMode(e, mode)

	fi := f.FileInfo()
	switch {
	case mode.IsDir():
		EntrySetSize(e, 0)
	case fi.Size() >= 0:
		EntrySetSize(e, fi.Size())
	}

	if t := fi.ModTime(); !t.IsZero() {
		EntrySetMtime(e, t)
	}

	if l, ok := f.(archive.Linker); ok {
		if s := l.Symlink(); s != "" {
			EntrySetSymlink(e, s)
		}
		if s := l.Hardlink(); s != "" {
			EntrySetHardlink(e, s)
		}
	}

	if o, ok := f.(archive.Owner); ok {
		EntrySetUid(e, int64(o.Uid()))
		EntrySetGid(e, int64(o.Gid()))
		if s := o.Uname(); s != "" {
			EntrySetUname(e, s)
		}
		if s := o.Gname(); s != "" {
			EntrySetGname(e, s)
		}
	}

	if t, ok := f.(archive.Timer); ok {
		if at := t.AccessTime(); !at.IsZero() {
			EntrySetAtime(e, at)
		}
		if ct := t.ChangeTime(); !ct.IsZero() {
			EntrySetCtime(e, ct)
		}
	}

	return
}

// ReadData reads the data of the current entry into p.
//
// It returns the number of bytes read with StatusOK, 0 with StatusEOF once the entry's data is exhausted, or a
// failure status. Errors while decoding data are fatal since the stream position is lost.
func ReadData(a *Archive, p []byte) (int, Status) {
	if s := a.check(readMagic, stateData, "archive_read_data"); s != StatusOK {
		return 0, s
	}

	r := a.read
	if r.data == nil {
		if r.file == nil {
			return 0, StatusEOF
		}

		rc, err := r.file.Open()
		if err != nil {
			a.setError(errnoFor(err), "Error opening entry data: %v", err)
			return 0, StatusFailed
		}
		r.data = rc
	}

	n, err := r.data.Read(p)
	switch {
	case err == io.EOF && n == 0:
		return 0, StatusEOF
	case err == nil, err == io.EOF:
		return n, StatusOK
	default:
		return n, a.fatal(errnoFor(err), "Error reading entry data: %v", err)
	}
}

// ReadDataSkip discards the rest of the current entry's data.
func ReadDataSkip(a *Archive) Status {
	if s := a.check(readMagic, stateData, "archive_read_data_skip"); s != StatusOK {
		return s
	}

	r := a.read
	if r.data == nil && r.file != nil {
		rc, err := r.file.Open()
		if err != nil {
			a.setError(errnoFor(err), "Error opening entry data: %v", err)
			return StatusFailed
		}
		r.data = rc
	}

	if r.data != nil {
		if _, err := io.Copy(io.Discard, r.data); err != nil {
			return a.fatal(errnoFor(err), "Error skipping entry data: %v", err)
		}
	}

	r.closeData()
	return StatusOK
}

// FormatName returns the label of the format chosen by ReadOpenMemory, or "" before a successful open.
func FormatName(a *Archive) string {
	if a == nil || a.read == nil || a.read.format == nil {
		return ""
	}

	return a.read.format.label
}

// FilterCount returns the number of filters applied to the stream, including the final "none" pass-through, or 0
// before a successful open.
func FilterCount(a *Archive) int {
	if a == nil || a.read == nil || a.read.format == nil {
		return 0
	}

	return len(a.read.active) + 1
}

// FilterName returns the name of the i-th filter counting from the one closest to the format; the last one is
// always "none".
func FilterName(a *Archive, i int) string {
	n := FilterCount(a)
	switch {
	case i < 0 || i >= n:
		return ""
	case i == n-1:
		return "none"
	default:
		return a.read.active[i].name
	}
}

// FileCount returns the number of headers read so far.
func FileCount(a *Archive) int {
	if a == nil || a.read == nil {
		return 0
	}

	return a.read.fileCount
}

// errnoFor maps a Go error to the closest error number.
func errnoFor(err error) int {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ErrnoIO
	}

	return ErrnoFileFormat
}

// blockReader hands out a memory buffer in blocks of at most size bytes.
type blockReader struct {
	buf  []byte
	size int
}

func (r *blockReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p[:min(len(p), r.size)], r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
