package archive

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// Ar implements Archiver for Unix ar archives in both the GNU/SVR4 and the BSD variant.
//
// Symbol tables are skipped; long file names are resolved from the GNU "//" table or the BSD "#1/" prefix.
type Ar struct {
}

var _ Archiver = Ar{}

// maxArNameLen bounds the BSD "#1/<len>" name that is read ahead of the member data.
const maxArNameLen = 4096

func (a Ar) Open(src io.Reader) (iter.Seq2[File, error], error) {
	r := ar.NewReader(src)

	return func(yield func(File, error) bool) {
		var names []byte

		for {
			hdr, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			name, size := hdr.Name, hdr.Size

			switch {
			case name == "/" || name == "/SYM64/" || strings.HasPrefix(name, "__.SYMDEF"):
				continue
			case name == "//":
				if names, err = io.ReadAll(r); err != nil {
					yield(nil, fmt.Errorf("read long name table error: %w", err))
					return
				}
				continue
			case strings.HasPrefix(name, "#1/"):
				n, err := strconv.ParseInt(name[3:], 10, 64)
				if err != nil || n < 0 || n > size || n > maxArNameLen {
					if !yield(nil, &SkipError{Name: name, Err: fmt.Errorf("invalid BSD long name length")}) {
						return
					}
					continue
				}

				b, err := io.ReadAll(io.LimitReader(r, n))
				if err == nil && int64(len(b)) != n {
					err = io.ErrUnexpectedEOF
				}
				if err != nil {
					yield(nil, fmt.Errorf("read BSD long name error: %w", err))
					return
				}
				name, size = string(bytes.TrimRight(b, "\x00")), size-n
			case len(name) > 1 && name[0] == '/':
				if name, err = lookupArName(names, name[1:]); err != nil {
					if !yield(nil, &SkipError{Name: hdr.Name, Err: err}) {
						return
					}
					continue
				}
			default:
				name = strings.TrimSuffix(name, "/")
			}

			if !yield(&arFile{Reader: r, hdr: hdr, name: name, size: size}, nil) {
				return
			}
		}
	}, nil
}

// lookupArName resolves a GNU "/offset" name against the "//" table whose entries end with "/\n".
func lookupArName(names []byte, offset string) (string, error) {
	i, err := strconv.Atoi(offset)
	if err != nil || i < 0 || i >= len(names) {
		return "", fmt.Errorf("invalid long name offset %q", offset)
	}

	name := names[i:]
	if j := bytes.IndexByte(name, '\n'); j >= 0 {
		name = name[:j]
	}

	return strings.TrimSuffix(string(name), "/"), nil
}

type arFile struct {
	*ar.Reader
	hdr  *ar.Header
	name string
	size int64
}

var _ File = &arFile{}
var _ Owner = &arFile{}
var _ os.FileInfo = &arFile{}

func (f *arFile) Name() string {
	return f.name
}

func (f *arFile) FileInfo() os.FileInfo {
	return f
}

// Mode falls back to 0644 when the header mode could not be parsed, which is the case for GNU ar's short octal field.
func (f *arFile) Mode() os.FileMode {
	if perm := os.FileMode(f.hdr.Mode).Perm(); perm != 0 {
		return perm
	}

	return 0644
}

func (f *arFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f.Reader), nil
}

func (f *arFile) Size() int64 {
	return f.size
}

func (f *arFile) ModTime() time.Time {
	return f.hdr.ModTime
}

func (f *arFile) IsDir() bool {
	return false
}

func (f *arFile) Sys() any {
	return f.hdr
}

func (f *arFile) Uid() int {
	return f.hdr.Uid
}

func (f *arFile) Gid() int {
	return f.hdr.Gid
}

func (f *arFile) Uname() string {
	return ""
}

func (f *arFile) Gname() string {
	return ""
}
