package archive

import (
	stdzip "archive/zip"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/krolaw/zipstream"
)

// maxSymlinkSize bounds how much of a symlink entry's data is read as its target.
const maxSymlinkSize = 4096

// Zip implements Archiver for ZIP files.
type Zip struct {
	// IgnoreCRC32 suppresses checksum mismatches when reading file contents.
	IgnoreCRC32 bool
}

var _ Archiver = Zip{}

// Open reads the central directory if src implements ReaderAt; otherwise it streams local file headers.
func (z Zip) Open(src io.Reader) (iter.Seq2[File, error], error) {
	if ra, ok := src.(ReaderAt); ok {
		return z.fromReaderAt(ra)
	}

	return z.fromReader(src)
}

func (z Zip) fromReader(src io.Reader) (iter.Seq2[File, error], error) {
	zr := zipstream.NewReader(src)

	return func(yield func(File, error) bool) {
		for {
			fh, err := zr.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			f := &zipFile{
				name: fh.Name,
				fi:   fh.FileInfo(),
				open: func() (io.ReadCloser, error) {
					return z.wrap(io.NopCloser(zr)), nil
				},
			}
			if err = f.readSymlink(); err != nil {
				yield(nil, err)
				return
			}

			if !yield(f, nil) {
				return
			}
		}
	}, nil
}

func (z Zip) fromReaderAt(src ReaderAt) (iter.Seq2[File, error], error) {
	zr, err := zip.NewReader(src, src.Size())
	if err != nil {
		return nil, fmt.Errorf("open zip file error: %w", err)
	}

	return func(yield func(File, error) bool) {
		for _, zf := range zr.File {
			f := &zipFile{
				name: zf.Name,
				fi:   zf.FileInfo(),
				open: func() (io.ReadCloser, error) {
					rc, err := zf.Open()
					if err != nil {
						return nil, err
					}
					return z.wrap(rc), nil
				},
			}
			if err := f.readSymlink(); err != nil {
				if !yield(nil, &SkipError{Name: zf.Name, Err: err}) {
					return
				}
				continue
			}

			if !yield(f, nil) {
				return
			}
		}
	}, nil
}

func (z Zip) wrap(rc io.ReadCloser) io.ReadCloser {
	if z.IgnoreCRC32 {
		return &crcTolerantReader{rc}
	}

	return rc
}

type zipFile struct {
	name    string
	fi      os.FileInfo
	open    func() (io.ReadCloser, error)
	symlink string
}

var _ File = &zipFile{}
var _ Linker = &zipFile{}

func (f *zipFile) Name() string {
	return f.name
}

func (f *zipFile) FileInfo() os.FileInfo {
	return f.fi
}

func (f *zipFile) Mode() os.FileMode {
	if strings.HasSuffix(f.name, "/") {
		return f.fi.Mode() | os.ModeDir
	}

	return f.fi.Mode()
}

func (f *zipFile) Open() (io.ReadCloser, error) {
	if f.symlink != "" {
		return emptyReader()
	}

	return f.open()
}

func (f *zipFile) Symlink() string {
	return f.symlink
}

func (f *zipFile) Hardlink() string {
	return ""
}

// readSymlink stores the link target, which zip keeps as the contents of a symlink entry.
func (f *zipFile) readSymlink() error {
	if f.fi.Mode()&os.ModeSymlink == 0 {
		return nil
	}

	rc, err := f.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSymlinkSize))
	if err != nil {
		return fmt.Errorf(`read symlink "%s" error: %w`, f.name, err)
	}

	f.symlink = string(data)
	return nil
}

// crcTolerantReader turns a checksum mismatch at the end of a file into a clean io.EOF.
type crcTolerantReader struct {
	io.ReadCloser
}

func (r *crcTolerantReader) Read(p []byte) (n int, err error) {
	if n, err = r.ReadCloser.Read(p); errors.Is(err, zip.ErrChecksum) || errors.Is(err, stdzip.ErrChecksum) {
		err = io.EOF
	}

	return
}
