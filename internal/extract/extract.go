// Package extract writes the entries of an archive to a local directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xarchive"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/util"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

const defaultBufferSize = 32 * 1024

// ErrUnsafePath is returned for an entry whose path or link target would land outside the output directory.
var ErrUnsafePath = errors.New("path escapes output directory")

// Opener returns a freshly opened archive. Extract may open the archive more than once.
type Opener func() (*xarchive.ReadArchive, error)

// Options customises Extract.
type Options struct {
	// ProgressBar if given will be used to provide progress report.
	ProgressBar *progressbar.ProgressBar
	// RootDir is removed from the start of every entry's path. See Scan.
	RootDir internal.RootDir
	// Logger receives warnings and periodic progress. Defaults to log.Default().
	Logger *log.Logger
}

// Summary is the result of Scan.
type Summary struct {
	// Count is the number of entries.
	Count int
	// Size is the sum of the recorded sizes of regular files.
	Size int64
	// RootDir is the common root directory of all entries, or "".
	RootDir internal.RootDir
}

// Scan reads every header without extracting anything.
func Scan(ctx context.Context, open Opener) (s Summary, err error) {
	a, err := open()
	if err != nil {
		return s, err
	}
	defer a.Close()

	rootFinder := internal.NewRootDirFinder()
	hasRoot := true

	for e, err := range a.Entries() {
		if err != nil {
			return s, err
		}

		name := e.Pathname()
		if e.IsDir() && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		if hasRoot {
			s.RootDir, hasRoot = rootFinder(name)
		}

		if size, ok := e.Size(); ok && e.IsRegular() {
			s.Size += size
		}
		s.Count++
		_ = e.Close()

		if err = ctx.Err(); err != nil {
			return s, err
		}
	}

	return s, nil
}

// Stats is the result of Extract.
type Stats struct {
	Files, Dirs, Links, Skipped int
	Bytes                       int64
}

// Extract extracts every entry of the archive into dir, which must exist.
//
// An entry that the archive reports as unreadable is logged and skipped; any other error stops the extraction.
func Extract(ctx context.Context, open Opener, dir string, optFns ...func(*Options)) (stats Stats, err error) {
	opts := &Options{Logger: log.Default()}
	for _, fn := range optFns {
		fn(opts)
	}

	a, err := open()
	if err != nil {
		return stats, err
	}
	defer a.Close()

	x := &extractor{
		a:         a,
		dir:       dir,
		opts:      opts,
		buf:       make([]byte, defaultBufferSize),
		sometimes: rate.Sometimes{Interval: 5 * time.Second},
	}

	for {
		e, err := a.Next()
		switch {
		case err == io.EOF:
			return x.stats, nil
		case isEntryFailure(err):
			opts.Logger.Printf("skipping unreadable entry: %v", err)
			x.stats.Skipped++
			continue
		case err != nil:
			return x.stats, err
		}

		if w := a.Warning(); w != nil {
			msg, _ := w.Message()
			opts.Logger.Printf(`"%s": %s`, e.Pathname(), msg)
		}

		err = x.extract(ctx, e)
		_ = e.Close()
		if err != nil {
			return x.stats, err
		}
	}
}

// isEntryFailure reports whether err affects only the current entry.
func isEntryFailure(err error) bool {
	var archiveErr *xarchive.Error
	return errors.As(err, &archiveErr) && archiveErr.Status() == xarchive.StatusFailed
}

type extractor struct {
	a         *xarchive.ReadArchive
	dir       string
	opts      *Options
	buf       []byte
	sometimes rate.Sometimes
	stats     Stats
}

func (x *extractor) extract(ctx context.Context, e *xarchive.Entry) error {
	name := e.Pathname()
	path, err := x.path(name)
	if err != nil {
		return err
	}
	if path == filepath.Clean(x.dir) {
		// the root itself, as in "./" or the common root directory.
		return nil
	}

	switch {
	case e.IsDir():
		if err = os.MkdirAll(path, dirPerm(e.Perm())); err != nil {
			return fmt.Errorf(`create directory "%s" error: %w`, path, err)
		}
		x.stats.Dirs++
		return nil

	case e.Hardlink() != "":
		target, err := x.path(e.Hardlink())
		if err != nil {
			return err
		}
		if err = x.mkdirs(path); err != nil {
			return err
		}
		if err = os.Link(target, path); err != nil {
			return fmt.Errorf(`create hard link "%s" error: %w`, path, err)
		}
		x.stats.Links++
		return nil

	case e.IsSymlink():
		target := e.Symlink()
		if filepath.IsAbs(target) {
			return fmt.Errorf(`symlink "%s" -> "%s": %w`, name, target, ErrUnsafePath)
		}
		if _, err = x.path(filepath.Join(filepath.Dir(name), target)); err != nil {
			return fmt.Errorf(`symlink "%s" -> "%s": %w`, name, target, ErrUnsafePath)
		}
		if err = x.mkdirs(path); err != nil {
			return err
		}
		if err = os.Symlink(target, path); err != nil {
			return fmt.Errorf(`create symlink "%s" error: %w`, path, err)
		}
		x.stats.Links++
		return nil

	case e.IsRegular():
		return x.writeFile(ctx, e, path)

	default:
		x.opts.Logger.Printf(`skipping "%s" of unsupported type %v`, name, e.Filetype())
		x.stats.Skipped++
		return nil
	}
}

func (x *extractor) writeFile(ctx context.Context, e *xarchive.Entry, path string) error {
	if err := x.mkdirs(path); err != nil {
		return err
	}

	perm := e.Perm()
	if perm == 0 {
		perm = 0644
	}

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf(`create file "%s" error: %w`, path, err)
	}

	var dst io.Writer = w
	if x.opts.ProgressBar != nil {
		dst = io.MultiWriter(w, x.opts.ProgressBar)
	}

	n, err := util.CopyBufferWithContext(ctx, dst, x.a, x.buf)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf(`write to file "%s" error: %w`, path, err)
	}

	if t := e.ModTime(); !t.IsZero() {
		if err = os.Chtimes(path, time.Time{}, t); err != nil {
			return fmt.Errorf(`change mod time of "%s" error: %w`, path, err)
		}
	}

	x.stats.Files++
	x.stats.Bytes += n
	x.sometimes.Do(func() {
		x.opts.Logger.Printf(`extracted %d files (%s) so far, latest "%s"`, x.stats.Files, humanize.IBytes(uint64(x.stats.Bytes)), e.Pathname())
	})
	return nil
}

// path returns the local path of the archive path name, rejecting any that would escape the output directory.
func (x *extractor) path(name string) (string, error) {
	path := x.opts.RootDir.Join(x.dir, name)

	rel, err := filepath.Rel(x.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(`"%s": %w`, name, ErrUnsafePath)
	}

	return path, nil
}

func (x *extractor) mkdirs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf(`create path to "%s" error: %w`, path, err)
	}

	return nil
}

// dirPerm makes sure the owner can always write into extracted directories.
func dirPerm(perm fs.FileMode) fs.FileMode {
	if perm == 0 {
		return 0755
	}

	return perm | 0700
}
