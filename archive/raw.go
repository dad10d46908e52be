package archive

import (
	"io"
	"iter"
	"os"
	"time"
)

// RawName is the name of the single file yielded by Raw.
const RawName = "data"

// Raw implements Archiver by treating the whole (decompressed) stream as the contents of one file named RawName.
type Raw struct {
}

var _ Archiver = Raw{}

func (r Raw) Open(src io.Reader) (iter.Seq2[File, error], error) {
	return func(yield func(File, error) bool) {
		yield(&rawFile{src}, nil)
	}, nil
}

type rawFile struct {
	io.Reader
}

var _ File = &rawFile{}
var _ os.FileInfo = &rawFile{}

func (f *rawFile) Name() string {
	return RawName
}

func (f *rawFile) FileInfo() os.FileInfo {
	return f
}

func (f *rawFile) Mode() os.FileMode {
	return 0644
}

func (f *rawFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f.Reader), nil
}

func (f *rawFile) Size() int64 {
	return UnknownSize
}

func (f *rawFile) ModTime() time.Time {
	return time.Time{}
}

func (f *rawFile) IsDir() bool {
	return false
}

func (f *rawFile) Sys() any {
	return nil
}

// Empty implements Archiver for zero-length input, which contains no files.
type Empty struct {
}

var _ Archiver = Empty{}

func (e Empty) Open(_ io.Reader) (iter.Seq2[File, error], error) {
	return func(yield func(File, error) bool) {}, nil
}
