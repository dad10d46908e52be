package archive

import (
	"io"
	"iter"
	"os"

	"github.com/cavaliergopher/cpio"
)

// Cpio implements Archiver for SVR4 ("newc" and "crc") cpio archives.
type Cpio struct {
}

var _ Archiver = Cpio{}

func (c Cpio) Open(src io.Reader) (iter.Seq2[File, error], error) {
	cr := cpio.NewReader(src)

	return func(yield func(File, error) bool) {
		for {
			hdr, err := cr.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(&cpioFile{Reader: cr, hdr: hdr}, nil) {
				return
			}
		}
	}, nil
}

type cpioFile struct {
	*cpio.Reader
	hdr *cpio.Header
}

var _ File = &cpioFile{}
var _ Linker = &cpioFile{}
var _ Owner = &cpioFile{}

func (f *cpioFile) Name() string {
	return f.hdr.Name
}

func (f *cpioFile) FileInfo() os.FileInfo {
	return f.hdr.FileInfo()
}

func (f *cpioFile) Mode() os.FileMode {
	return f.hdr.FileInfo().Mode()
}

func (f *cpioFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f.Reader), nil
}

func (f *cpioFile) Symlink() string {
	return f.hdr.Linkname
}

// Hardlink is always empty: newc stores hard links as repeated inodes, with the data on the last one.
func (f *cpioFile) Hardlink() string {
	return ""
}

func (f *cpioFile) Uid() int {
	return f.hdr.Uid
}

func (f *cpioFile) Gid() int {
	return f.hdr.Guid
}

func (f *cpioFile) Uname() string {
	return ""
}

func (f *cpioFile) Gname() string {
	return ""
}
