package xarchive

import (
	"io/fs"
	"path"
	"runtime"
	"time"

	"github.com/nguyengg/xarchive/engine"
)

// Entry is the metadata of one archive member.
//
// An Entry owns its engine handle. Close releases it; an unreachable Entry releases it on its own. Every accessor
// panics once the Entry has been closed.
type Entry struct {
	h       *engine.Entry
	cleanup runtime.Cleanup
}

// NewEntry returns a blank Entry.
func NewEntry() *Entry {
	return newEntry(engine.EntryNew())
}

func newEntry(h *engine.Entry) *Entry {
	if h == nil {
		panic("xarchive: failed to allocate entry")
	}

	e := &Entry{h: h}
	e.cleanup = runtime.AddCleanup(e, engine.EntryFree, h)
	return e
}

// Handle returns the underlying engine handle, which remains owned by e.
func (e *Entry) Handle() *engine.Entry {
	return e.h
}

// Clone returns an independent deep copy of e.
func (e *Entry) Clone() *Entry {
	defer runtime.KeepAlive(e)
	return newEntry(engine.EntryClone(e.h))
}

// Close releases the handle. Close is idempotent.
func (e *Entry) Close() error {
	if engine.EntryFreed(e.h) {
		return nil
	}

	e.cleanup.Stop()
	engine.EntryFree(e.h)
	return nil
}

// Pathname returns the path of the entry within the archive.
//
// Pathname panics if the entry has no pathname, which cannot happen for entries returned by ReadArchive.
func (e *Entry) Pathname() string {
	defer runtime.KeepAlive(e)

	name, ok := engine.EntryPathname(e.h)
	if !ok {
		panic("xarchive: entry has no pathname")
	}

	return name
}

// SetPathname changes the path of the entry.
func (e *Entry) SetPathname(name string) {
	defer runtime.KeepAlive(e)
	engine.EntrySetPathname(e.h, name)
}

// Size returns the size of the entry's data. The boolean is false if the archive does not record it.
func (e *Entry) Size() (int64, bool) {
	defer runtime.KeepAlive(e)
	return engine.EntrySize(e.h)
}

// SetSize records the size of the entry's data.
func (e *Entry) SetSize(size int64) {
	defer runtime.KeepAlive(e)
	engine.EntrySetSize(e.h, size)
}

// Mode returns the file type and permission bits.
func (e *Entry) Mode() fs.FileMode {
	defer runtime.KeepAlive(e)
	return engine.EntryMode(e.h)
}

// SetMode sets both the type and the permission bits.
func (e *Entry) SetMode(mode fs.FileMode) {
	defer runtime.KeepAlive(e)
	engine.EntrySetMode(e.h, mode)
}

// Perm returns the permission bits only.
func (e *Entry) Perm() fs.FileMode {
	defer runtime.KeepAlive(e)
	return engine.EntryPerm(e.h)
}

// Filetype returns the type bits only; 0 means a regular file.
func (e *Entry) Filetype() fs.FileMode {
	defer runtime.KeepAlive(e)
	return engine.EntryFiletype(e.h)
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Filetype()&fs.ModeDir != 0
}

func (e *Entry) IsRegular() bool {
	return e.Filetype() == 0
}

func (e *Entry) IsSymlink() bool {
	return e.Filetype()&fs.ModeSymlink != 0
}

// Symlink returns the target of a symbolic link, or "".
func (e *Entry) Symlink() string {
	defer runtime.KeepAlive(e)
	s, _ := engine.EntrySymlink(e.h)
	return s
}

// SetSymlink sets the link target without changing the file type.
func (e *Entry) SetSymlink(target string) {
	defer runtime.KeepAlive(e)
	engine.EntrySetSymlink(e.h, target)
}

// Hardlink returns the target of a hard link, or "".
func (e *Entry) Hardlink() string {
	defer runtime.KeepAlive(e)
	s, _ := engine.EntryHardlink(e.h)
	return s
}

// ModTime returns the modification time, or the zero time if the archive does not record it.
func (e *Entry) ModTime() time.Time {
	defer runtime.KeepAlive(e)
	t, _ := engine.EntryMtime(e.h)
	return t
}

// SetModTime sets the modification time.
func (e *Entry) SetModTime(t time.Time) {
	defer runtime.KeepAlive(e)
	engine.EntrySetMtime(e.h, t)
}

// AccessTime returns the access time, or the zero time if the archive does not record it.
func (e *Entry) AccessTime() time.Time {
	defer runtime.KeepAlive(e)
	t, _ := engine.EntryAtime(e.h)
	return t
}

func (e *Entry) ChangeTime() time.Time {
	defer runtime.KeepAlive(e)
	t, _ := engine.EntryCtime(e.h)
	return t
}

// Uid returns the numeric owner; 0 if unrecorded.
func (e *Entry) Uid() int64 {
	defer runtime.KeepAlive(e)
	return engine.EntryUid(e.h)
}

func (e *Entry) Gid() int64 {
	defer runtime.KeepAlive(e)
	return engine.EntryGid(e.h)
}

// Uname returns the owner name, or "" if the archive only records the numeric id.
func (e *Entry) Uname() string {
	defer runtime.KeepAlive(e)
	s, _ := engine.EntryUname(e.h)
	return s
}

func (e *Entry) Gname() string {
	defer runtime.KeepAlive(e)
	s, _ := engine.EntryGname(e.h)
	return s
}

// FileInfo returns a snapshot of the entry's metadata that stays valid after e is closed.
func (e *Entry) FileInfo() fs.FileInfo {
	size, _ := e.Size()
	return &entryInfo{
		name:    path.Base(e.Pathname()),
		size:    size,
		mode:    e.Mode(),
		modTime: e.ModTime(),
	}
}

type entryInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

var _ fs.FileInfo = &entryInfo{}

func (fi *entryInfo) Name() string       { return fi.name }
func (fi *entryInfo) Size() int64        { return fi.size }
func (fi *entryInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *entryInfo) ModTime() time.Time { return fi.modTime }
func (fi *entryInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *entryInfo) Sys() any           { return nil }
