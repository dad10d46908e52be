package archive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"strings"
	"time"

	"github.com/kdomanski/iso9660"
)

// Iso9660 implements Archiver for ISO 9660 images, with Rock Ridge names when present.
//
// Files are yielded depth-first, each directory before its children.
type Iso9660 struct {
}

var _ Archiver = Iso9660{}

func (i Iso9660) Open(src io.Reader) (iter.Seq2[File, error], error) {
	ra, ok := src.(ReaderAt)
	if !ok {
		return nil, fmt.Errorf("iso9660 images must be opened with random access")
	}

	img, err := iso9660.OpenImage(ra)
	if err != nil {
		return nil, fmt.Errorf("open iso9660 image error: %w", err)
	}

	root, err := img.RootDir()
	if err != nil {
		return nil, fmt.Errorf("read iso9660 root directory error: %w", err)
	}

	return func(yield func(File, error) bool) {
		var walk func(dir string, f *iso9660.File) bool
		walk = func(dir string, f *iso9660.File) bool {
			children, err := f.GetChildren()
			if err != nil {
				yield(nil, fmt.Errorf(`read iso9660 directory "%s" error: %w`, dir, err))
				return false
			}

			for _, child := range children {
				name := isoName(child.Name())
				if name == "" || name == "." || name == ".." {
					continue
				}

				name = path.Join(dir, name)
				if !yield(&isoFile{f: child, name: name}, nil) {
					return false
				}

				if child.IsDir() && !walk(name, child) {
					return false
				}
			}

			return true
		}

		walk("", root)
	}, nil
}

// isoName strips the ";1" version suffix and the trailing dot of extension-less ISO 9660 names.
func isoName(name string) string {
	if i := strings.LastIndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}

	switch name {
	case "\x00", "\x01":
		return ""
	case ".", "..":
		return name
	default:
		return strings.TrimSuffix(name, ".")
	}
}

type isoFile struct {
	f    *iso9660.File
	name string
}

var _ File = &isoFile{}
var _ os.FileInfo = &isoFile{}

func (f *isoFile) Name() string {
	return f.name
}

func (f *isoFile) FileInfo() os.FileInfo {
	return f
}

func (f *isoFile) Mode() os.FileMode {
	perm := f.f.Mode().Perm()
	if f.f.IsDir() {
		if perm == 0 {
			perm = 0755
		}
		return os.ModeDir | perm
	}

	if perm == 0 {
		perm = 0644
	}
	return perm
}

func (f *isoFile) Open() (io.ReadCloser, error) {
	if f.f.IsDir() {
		return emptyReader()
	}

	return io.NopCloser(f.f.Reader()), nil
}

func (f *isoFile) Size() int64 {
	if f.f.IsDir() {
		return 0
	}

	return f.f.Size()
}

func (f *isoFile) ModTime() time.Time {
	return f.f.ModTime()
}

func (f *isoFile) IsDir() bool {
	return f.f.IsDir()
}

func (f *isoFile) Sys() any {
	return f.f
}
