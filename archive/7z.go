package archive

import (
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/bodgit/sevenzip"
)

// SevenZip implements Archiver for 7z files.
type SevenZip struct {
	// Password decrypts AES-encrypted archives.
	Password string
}

var _ Archiver = SevenZip{}

func (s SevenZip) Open(src io.Reader) (iter.Seq2[File, error], error) {
	ra, ok := src.(ReaderAt)
	if !ok {
		return nil, fmt.Errorf("7z archives must be opened with random access")
	}

	var (
		zr  *sevenzip.Reader
		err error
	)
	if s.Password != "" {
		zr, err = sevenzip.NewReaderWithPassword(ra, ra.Size(), s.Password)
	} else {
		zr, err = sevenzip.NewReader(ra, ra.Size())
	}
	if err != nil {
		return nil, fmt.Errorf("open 7z file error: %w", err)
	}

	return func(yield func(File, error) bool) {
		for _, zf := range zr.File {
			if !yield(&sevenZipFile{
				FileHeader: zf.FileHeader,
				open:       zf.Open,
			}, nil) {
				return
			}
		}
	}, nil
}

type sevenZipFile struct {
	sevenzip.FileHeader
	open func() (io.ReadCloser, error)
}

var _ File = &sevenZipFile{}
var _ Timer = &sevenZipFile{}

func (f *sevenZipFile) Name() string {
	return f.FileHeader.Name
}

func (f *sevenZipFile) Open() (io.ReadCloser, error) {
	if f.FileHeader.FileInfo().IsDir() {
		return emptyReader()
	}

	return f.open()
}

func (f *sevenZipFile) AccessTime() time.Time {
	return f.FileHeader.Accessed
}

func (f *sevenZipFile) ChangeTime() time.Time {
	return time.Time{}
}
