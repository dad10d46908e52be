package archive

import (
	"io"
	"iter"
	"os"
	"time"

	"github.com/nwaples/rardecode"
)

// Rar implements Archiver for RAR (v1.5 to v5) files.
type Rar struct {
	// Password decrypts encrypted archives.
	Password string
}

var _ Archiver = Rar{}

func (r Rar) Open(src io.Reader) (iter.Seq2[File, error], error) {
	rr, err := rardecode.NewReader(src, r.Password)
	if err != nil {
		return nil, err
	}

	return fromRarReader(rr), nil
}

func fromRarReader(r *rardecode.Reader) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		for {
			fh, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(&rarFile{
				rarFileInfo: rarFileInfo{fh},
				Reader:      r,
			}, nil) {
				return
			}
		}
	}
}

type rarFile struct {
	rarFileInfo
	io.Reader
}

var _ File = &rarFile{}
var _ Timer = &rarFile{}

func (f *rarFile) FileInfo() os.FileInfo {
	return f
}

func (f *rarFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f), nil
}

func (f *rarFile) AccessTime() time.Time {
	return f.FileHeader.AccessTime
}

func (f *rarFile) ChangeTime() time.Time {
	return time.Time{}
}

type rarFileInfo struct {
	*rardecode.FileHeader
}

var _ os.FileInfo = &rarFileInfo{}

func (fi *rarFileInfo) Name() string {
	return fi.FileHeader.Name
}

func (fi *rarFileInfo) Size() int64 {
	if fi.FileHeader.UnKnownSize {
		return UnknownSize
	}

	return fi.FileHeader.UnPackedSize
}

func (fi *rarFileInfo) ModTime() time.Time {
	return fi.FileHeader.ModificationTime
}

func (fi *rarFileInfo) IsDir() bool {
	return fi.FileHeader.IsDir
}

func (fi *rarFileInfo) Sys() any {
	return nil
}
