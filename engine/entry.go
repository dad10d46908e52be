package engine

import (
	"fmt"
	"io/fs"
	"sync/atomic"
	"time"
)

// Entry is an opaque handle to the metadata of one archive member.
//
// Entry functions panic when given a nil or freed handle.
type Entry struct {
	freed atomic.Bool
	entryData
}

type fieldSet uint16

const (
	hasPathname fieldSet = 1 << iota
	hasSymlink
	hasHardlink
	hasSize
	hasMtime
	hasAtime
	hasCtime
	hasUname
	hasGname
)

type entryData struct {
	set      fieldSet
	pathname string
	symlink  string
	hardlink string
	size     int64
	mode     fs.FileMode
	uid, gid int64
	uname    string
	gname    string
	mtime    time.Time
	atime    time.Time
	ctime    time.Time
}

// EntryNew allocates a blank entry.
func EntryNew() *Entry {
	return &Entry{}
}

// EntryClone allocates a new entry holding a deep copy of e.
func EntryClone(e *Entry) *Entry {
	mustLive(e, "archive_entry_clone")
	return &Entry{entryData: e.entryData}
}

// EntryFree releases the entry. Freeing a nil or already freed entry is a no-op.
func EntryFree(e *Entry) {
	if e == nil || e.freed.Swap(true) {
		return
	}

	e.entryData = entryData{}
}

// EntryFreed reports whether EntryFree has been called on e.
func EntryFreed(e *Entry) bool {
	return e != nil && e.freed.Load()
}

// EntryClear resets every field of e.
func EntryClear(e *Entry) {
	mustLive(e, "archive_entry_clear")
	e.entryData = entryData{}
}

func mustLive(e *Entry, fn string) {
	if e == nil {
		panic(fmt.Sprintf("engine: %s invoked with nil entry", fn))
	}
	if e.freed.Load() {
		panic(fmt.Sprintf("engine: %s invoked with freed entry", fn))
	}
}

// EntryPathname returns the pathname and whether it is set.
func EntryPathname(e *Entry) (string, bool) {
	mustLive(e, "archive_entry_pathname")
	return e.pathname, e.set&hasPathname != 0
}

func EntrySetPathname(e *Entry, name string) {
	mustLive(e, "archive_entry_set_pathname")
	e.pathname = name
	e.set |= hasPathname
}

// EntrySymlink returns the symbolic link target and whether it is set.
func EntrySymlink(e *Entry) (string, bool) {
	mustLive(e, "archive_entry_symlink")
	return e.symlink, e.set&hasSymlink != 0
}

func EntrySetSymlink(e *Entry, target string) {
	mustLive(e, "archive_entry_set_symlink")
	e.symlink = target
	e.set |= hasSymlink
}

// EntryHardlink returns the hard link target and whether it is set.
func EntryHardlink(e *Entry) (string, bool) {
	mustLive(e, "archive_entry_hardlink")
	return e.hardlink, e.set&hasHardlink != 0
}

func EntrySetHardlink(e *Entry, target string) {
	mustLive(e, "archive_entry_set_hardlink")
	e.hardlink = target
	e.set |= hasHardlink
}

// EntrySize returns the data size in bytes and whether the archive recorded it.
func EntrySize(e *Entry) (int64, bool) {
	mustLive(e, "archive_entry_size")
	return e.size, e.set&hasSize != 0
}

func EntrySetSize(e *Entry, size int64) {
	mustLive(e, "archive_entry_set_size")
	e.size = size
	e.set |= hasSize
}

func EntryUnsetSize(e *Entry) {
	mustLive(e, "archive_entry_unset_size")
	e.size = 0
	e.set &^= hasSize
}

// EntryMode returns the file type and permission bits.
func EntryMode(e *Entry) fs.FileMode {
	mustLive(e, "archive_entry_mode")
	return e.mode
}

func EntrySetMode(e *Entry, mode fs.FileMode) {
	mustLive(e, "archive_entry_set_mode")
	e.mode = mode
}

// EntryFiletype returns only the type bits of the mode; 0 means a regular file.
func EntryFiletype(e *Entry) fs.FileMode {
	mustLive(e, "archive_entry_filetype")
	return e.mode & fs.ModeType
}

func EntrySetFiletype(e *Entry, t fs.FileMode) {
	mustLive(e, "archive_entry_set_filetype")
	e.mode = e.mode&^fs.ModeType | t&fs.ModeType
}

// EntryPerm returns the permission bits together with the setuid, setgid, and sticky bits.
func EntryPerm(e *Entry) fs.FileMode {
	mustLive(e, "archive_entry_perm")
	return e.mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
}

func EntrySetPerm(e *Entry, perm fs.FileMode) {
	mustLive(e, "archive_entry_set_perm")
	const bits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky
	e.mode = e.mode&^bits | perm&bits
}

// EntryMtime returns the modification time and whether it is set.
func EntryMtime(e *Entry) (time.Time, bool) {
	mustLive(e, "archive_entry_mtime")
	return e.mtime, e.set&hasMtime != 0
}

func EntrySetMtime(e *Entry, t time.Time) {
	mustLive(e, "archive_entry_set_mtime")
	e.mtime = t
	e.set |= hasMtime
}

// EntryAtime returns the access time and whether it is set.
func EntryAtime(e *Entry) (time.Time, bool) {
	mustLive(e, "archive_entry_atime")
	return e.atime, e.set&hasAtime != 0
}

func EntrySetAtime(e *Entry, t time.Time) {
	mustLive(e, "archive_entry_set_atime")
	e.atime = t
	e.set |= hasAtime
}

// EntryCtime returns the status change time and whether it is set.
func EntryCtime(e *Entry) (time.Time, bool) {
	mustLive(e, "archive_entry_ctime")
	return e.ctime, e.set&hasCtime != 0
}

func EntrySetCtime(e *Entry, t time.Time) {
	mustLive(e, "archive_entry_set_ctime")
	e.ctime = t
	e.set |= hasCtime
}

func EntryUid(e *Entry) int64 {
	mustLive(e, "archive_entry_uid")
	return e.uid
}

func EntrySetUid(e *Entry, uid int64) {
	mustLive(e, "archive_entry_set_uid")
	e.uid = uid
}

func EntryGid(e *Entry) int64 {
	mustLive(e, "archive_entry_gid")
	return e.gid
}

func EntrySetGid(e *Entry, gid int64) {
	mustLive(e, "archive_entry_set_gid")
	e.gid = gid
}

// EntryUname returns the owner's user name and whether it is set.
func EntryUname(e *Entry) (string, bool) {
	mustLive(e, "archive_entry_uname")
	return e.uname, e.set&hasUname != 0
}

func EntrySetUname(e *Entry, name string) {
	mustLive(e, "archive_entry_set_uname")
	e.uname = name
	e.set |= hasUname
}

// EntryGname returns the owner's group name and whether it is set.
func EntryGname(e *Entry) (string, bool) {
	mustLive(e, "archive_entry_gname")
	return e.gname, e.set&hasGname != 0
}

func EntrySetGname(e *Entry, name string) {
	mustLive(e, "archive_entry_set_gname")
	e.gname = name
	e.set |= hasGname
}
