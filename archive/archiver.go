package archive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"
)

// Archiver reads archives such as tar, zip, and 7z files.
//
// All archiver implementations are not thread-safe by default.
type Archiver interface {
	// Open produces an iterator returning the files from the archive opened by the given io.Reader.
	//
	// The src io.Reader will be consumed by the end of the iterator. Formats that need random access (zip's central
	// directory, 7z, iso9660) use it if src implements ReaderAt.
	//
	// Besides a terminal (nil, error) pair, the iterator may yield a File together with a *Warning, or a nil File
	// with a *SkipError; iteration can continue in both cases.
	Open(src io.Reader) (iter.Seq2[File, error], error)
}

// ReaderAt is a source with random access and a known size, such as bytes.Reader or io.SectionReader.
type ReaderAt interface {
	io.Reader
	io.ReaderAt
	Size() int64
}

// UnknownSize is returned by File.FileInfo().Size() for files whose size is not recorded in the archive header.
const UnknownSize int64 = -1

// File represents a file in an archive.
//
// The interface intentionally matches that of zip.File for simplicity.
type File interface {
	// Name returns the full name of the file in the archive.
	Name() string
	// FileInfo returns description about the file.
	FileInfo() os.FileInfo
	// Mode returns the file's mode, including its type bits.
	Mode() os.FileMode
	// Open opens the file for reading.
	//
	// For streaming formats, the returned reader becomes invalid once the iterator advances.
	Open() (io.ReadCloser, error)
}

// Linker is implemented by files whose format records link targets.
type Linker interface {
	// Symlink returns the target of a symbolic link, or "" if the file is not one.
	Symlink() string
	// Hardlink returns the target of a hard link, or "" if the file is not one.
	Hardlink() string
}

// Owner is implemented by files whose format records ownership.
type Owner interface {
	Uid() int
	Gid() int
	Uname() string
	Gname() string
}

// Timer is implemented by files whose format records timestamps besides the modification time.
//
// Zero values mean the timestamp is not recorded.
type Timer interface {
	AccessTime() time.Time
	ChangeTime() time.Time
}

// Warning is yielded together with a usable File when part of its metadata could not be decoded.
type Warning struct {
	Err error
}

func (w *Warning) Error() string {
	return w.Err.Error()
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// SkipError is yielded with a nil File when the file at the current position cannot be decoded but the files after it
// can still be read.
type SkipError struct {
	Name string
	Err  error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf(`skip file "%s": %v`, e.Name, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// emptyReader is returned by Open for files that carry no data.
func emptyReader() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
