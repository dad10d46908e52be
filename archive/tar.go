package archive

import (
	"archive/tar"
	"io"
	"iter"
	"os"
	"time"
)

// Tar implements Archiver for ustar, pax, and GNU tar archives.
type Tar struct {
	// ReadConcatenated keeps reading past the end-of-archive marker, so that archives created with cat a.tar b.tar
	// are read as one archive.
	ReadConcatenated bool
}

var _ Archiver = Tar{}

func (t Tar) Open(src io.Reader) (iter.Seq2[File, error], error) {
	cr := &countingReader{Reader: src}
	tr := tar.NewReader(cr)

	return func(yield func(File, error) bool) {
		for {
			hdr, err := tr.Next()

			// a fresh reader past the end-of-archive marker either finds the next archive or consumes more zero
			// blocks; it is done once it stops making progress.
			for err == io.EOF && t.ReadConcatenated {
				n := cr.n
				tr = tar.NewReader(cr)
				if hdr, err = tr.Next(); err == io.EOF && cr.n == n {
					break
				}
			}

			switch {
			case err == io.EOF:
				return
			case err != nil:
				yield(nil, err)
				return
			case hdr.Typeflag == tar.TypeXGlobalHeader:
				continue
			}

			if !yield(&tarFile{Reader: tr, hdr: hdr}, nil) {
				return
			}
		}
	}, nil
}

type tarFile struct {
	*tar.Reader
	hdr *tar.Header
}

var _ File = &tarFile{}
var _ Linker = &tarFile{}
var _ Owner = &tarFile{}
var _ Timer = &tarFile{}

func (f *tarFile) Name() string {
	return f.hdr.Name
}

func (f *tarFile) FileInfo() os.FileInfo {
	return f.hdr.FileInfo()
}

func (f *tarFile) Mode() os.FileMode {
	return f.hdr.FileInfo().Mode()
}

func (f *tarFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f.Reader), nil
}

func (f *tarFile) Symlink() string {
	if f.hdr.Typeflag == tar.TypeSymlink {
		return f.hdr.Linkname
	}

	return ""
}

func (f *tarFile) Hardlink() string {
	if f.hdr.Typeflag == tar.TypeLink {
		return f.hdr.Linkname
	}

	return ""
}

func (f *tarFile) Uid() int {
	return f.hdr.Uid
}

func (f *tarFile) Gid() int {
	return f.hdr.Gid
}

func (f *tarFile) Uname() string {
	return f.hdr.Uname
}

func (f *tarFile) Gname() string {
	return f.hdr.Gname
}

func (f *tarFile) AccessTime() time.Time {
	return f.hdr.AccessTime
}

func (f *tarFile) ChangeTime() time.Time {
	return f.hdr.ChangeTime
}

type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	r.n += int64(n)
	return
}
