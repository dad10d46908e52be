package engine

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_fields(t *testing.T) {
	e := EntryNew()
	defer EntryFree(e)

	_, ok := EntryPathname(e)
	assert.False(t, ok)
	_, ok = EntrySize(e)
	assert.False(t, ok)

	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	EntrySetPathname(e, "a/b.txt")
	EntrySetSize(e, 42)
	EntrySetMode(e, 0640)
	EntrySetFiletype(e, fs.ModeSymlink)
	EntrySetSymlink(e, "c.txt")
	EntrySetMtime(e, mtime)
	EntrySetUname(e, "root")

	p, ok := EntryPathname(e)
	assert.True(t, ok)
	assert.Equal(t, "a/b.txt", p)
	size, ok := EntrySize(e)
	assert.True(t, ok)
	assert.Equal(t, int64(42), size)
	assert.Equal(t, fs.ModeSymlink|0640, EntryMode(e))
	assert.Equal(t, fs.ModeSymlink, EntryFiletype(e))
	assert.Equal(t, fs.FileMode(0640), EntryPerm(e))
	s, _ := EntrySymlink(e)
	assert.Equal(t, "c.txt", s)
	m, ok := EntryMtime(e)
	assert.True(t, ok)
	assert.Equal(t, mtime, m)

	EntrySetPerm(e, 0755|fs.ModeSetuid)
	assert.Equal(t, fs.ModeSymlink|fs.ModeSetuid|0755, EntryMode(e))

	EntryUnsetSize(e)
	_, ok = EntrySize(e)
	assert.False(t, ok)

	EntryClear(e)
	_, ok = EntryPathname(e)
	assert.False(t, ok)
	assert.Equal(t, fs.FileMode(0), EntryMode(e))
}

func TestEntryClone(t *testing.T) {
	e := EntryNew()
	EntrySetPathname(e, "original")

	c := EntryClone(e)
	EntrySetPathname(c, "clone")
	EntryFree(e)

	p, ok := EntryPathname(c)
	assert.True(t, ok)
	assert.Equal(t, "clone", p)
	assert.True(t, EntryFreed(e))
	assert.False(t, EntryFreed(c))
}

func TestEntryFree(t *testing.T) {
	e := EntryNew()
	EntryFree(e)
	EntryFree(e)
	EntryFree(nil)

	assert.PanicsWithValue(t, "engine: archive_entry_pathname invoked with freed entry", func() {
		EntryPathname(e)
	})
	assert.Panics(t, func() {
		EntryClone(nil)
	})
}
