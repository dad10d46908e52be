package archive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vbatts/go-mtree"
	"github.com/vbatts/go-mtree/pkg/govis"
)

// Mtree implements Archiver for BSD mtree specifications.
//
// An mtree file carries metadata only. Files have no data unless CheckFS is set, in which case the data of regular
// files is read from the file system relative to Dir.
type Mtree struct {
	CheckFS bool
	// Dir is the directory that CheckFS resolves paths against. Defaults to the working directory.
	Dir string
}

var _ Archiver = Mtree{}

// mtreeKeywords are the keywords that are understood but carry nothing File can report.
var mtreeKeywords = map[string]bool{
	"cksum": true, "contents": true, "device": true, "flags": true, "ignore": true, "inode": true, "md5": true,
	"md5digest": true, "nlink": true, "nochange": true, "optional": true, "resdevice": true, "rmd160": true,
	"rmd160digest": true, "sha1": true, "sha1digest": true, "sha256": true, "sha256digest": true, "sha384": true,
	"sha384digest": true, "sha512": true, "sha512digest": true,
}

func (m Mtree) Open(src io.Reader) (iter.Seq2[File, error], error) {
	dh, err := mtree.ParseSpec(src)
	if err != nil {
		return nil, fmt.Errorf("parse mtree spec error: %w", err)
	}

	return func(yield func(File, error) bool) {
		for _, e := range dh.Entries {
			if e.Type != mtree.RelativeType && e.Type != mtree.FullType {
				continue
			}

			name, err := e.Path()
			if err != nil {
				if !yield(nil, &SkipError{Name: e.Name, Err: err}) {
					return
				}
				continue
			}

			kvs := make(map[string]string)
			for _, kv := range e.AllKeys() {
				kvs[string(kv.Keyword())] = kv.Value()
			}

			f := &mtreeFile{m: m, name: path.Clean(name), mode: 0644}
			if warn := f.apply(kvs); warn != nil {
				err = &Warning{Err: fmt.Errorf("%s: %w", f.name, warn)}
			}
			if !yield(f, err) {
				return
			}
		}
	}, nil
}

type mtreeFile struct {
	m        Mtree
	name     string
	fileType os.FileMode
	mode     os.FileMode
	size     int64
	hasSize  bool
	modTime  time.Time
	uid, gid int
	uname    string
	gname    string
	link     string
}

var _ File = &mtreeFile{}
var _ Linker = &mtreeFile{}
var _ Owner = &mtreeFile{}
var _ os.FileInfo = &mtreeFile{}

// apply sets the keyword values on f, returning an error describing the first keyword that was ignored.
func (f *mtreeFile) apply(kvs map[string]string) (warn error) {
	note := func(err error) {
		if warn == nil {
			warn = err
		}
	}

	for k, v := range kvs {
		switch k {
		case "type":
			switch v {
			case "file":
				f.fileType = 0
			case "dir":
				f.fileType = os.ModeDir
			case "link":
				f.fileType = os.ModeSymlink
			case "block":
				f.fileType = os.ModeDevice
			case "char":
				f.fileType = os.ModeDevice | os.ModeCharDevice
			case "fifo":
				f.fileType = os.ModeNamedPipe
			case "socket":
				f.fileType = os.ModeSocket
			default:
				note(fmt.Errorf("unrecognized file type %q", v))
			}
		case "mode":
			if m, err := strconv.ParseUint(v, 8, 32); err != nil {
				note(fmt.Errorf("invalid mode %q", v))
			} else {
				f.mode = os.FileMode(m).Perm()
			}
		case "size":
			if n, err := strconv.ParseInt(v, 10, 64); err != nil || n < 0 {
				note(fmt.Errorf("invalid size %q", v))
			} else {
				f.size, f.hasSize = n, true
			}
		case "time":
			sec, nsec, _ := strings.Cut(v, ".")
			s, err := strconv.ParseInt(sec, 10, 64)
			if err != nil {
				note(fmt.Errorf("invalid time %q", v))
				continue
			}
			var ns int64
			if nsec != "" {
				if ns, err = strconv.ParseInt(nsec, 10, 64); err != nil || ns >= 1e9 {
					note(fmt.Errorf("invalid time %q", v))
					continue
				}
			}
			f.modTime = time.Unix(s, ns)
		case "uid":
			if n, err := strconv.Atoi(v); err != nil {
				note(fmt.Errorf("invalid uid %q", v))
			} else {
				f.uid = n
			}
		case "gid":
			if n, err := strconv.Atoi(v); err != nil {
				note(fmt.Errorf("invalid gid %q", v))
			} else {
				f.gid = n
			}
		case "uname":
			f.uname = v
		case "gname":
			f.gname = v
		case "link":
			if s, err := govis.Unvis(v, mtree.DefaultVisFlags); err != nil {
				note(err)
			} else {
				f.link = s
			}
		default:
			if !mtreeKeywords[k] {
				note(fmt.Errorf("unknown keyword %q", k))
			}
		}
	}

	return
}

func (f *mtreeFile) Name() string {
	return f.name
}

func (f *mtreeFile) FileInfo() os.FileInfo {
	return f
}

func (f *mtreeFile) Mode() os.FileMode {
	return f.fileType | f.mode
}

func (f *mtreeFile) Open() (io.ReadCloser, error) {
	if !f.m.CheckFS || f.fileType != 0 {
		return emptyReader()
	}

	return os.Open(filepath.Join(f.m.Dir, filepath.FromSlash(f.name)))
}

func (f *mtreeFile) Size() int64 {
	if !f.hasSize {
		return UnknownSize
	}

	return f.size
}

func (f *mtreeFile) ModTime() time.Time {
	return f.modTime
}

func (f *mtreeFile) IsDir() bool {
	return f.fileType == os.ModeDir
}

func (f *mtreeFile) Sys() any {
	return nil
}

func (f *mtreeFile) Symlink() string {
	if f.fileType == os.ModeSymlink {
		return f.link
	}

	return ""
}

func (f *mtreeFile) Hardlink() string {
	return ""
}

func (f *mtreeFile) Uid() int {
	return f.uid
}

func (f *mtreeFile) Gid() int {
	return f.gid
}

func (f *mtreeFile) Uname() string {
	return f.uname
}

func (f *mtreeFile) Gname() string {
	return f.gname
}
