package xarchive

import (
	"io/fs"
	"testing"
	"time"

	"github.com/nguyengg/xarchive/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry()
	defer e.Close()

	assert.PanicsWithValue(t, "xarchive: entry has no pathname", func() {
		e.Pathname()
	})

	size, ok := e.Size()
	assert.False(t, ok)
	assert.Equal(t, int64(0), size)
	assert.True(t, e.ModTime().IsZero())
}

func TestEntry_setters(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	e := NewEntry()
	defer e.Close()

	e.SetPathname("path/b.txt")
	e.SetSize(13)
	e.SetMode(0640)
	e.SetModTime(mtime)

	assert.Equal(t, "path/b.txt", e.Pathname())
	size, ok := e.Size()
	assert.True(t, ok)
	assert.Equal(t, int64(13), size)
	assert.Equal(t, fs.FileMode(0640), e.Perm())
	assert.True(t, e.IsRegular())
	assert.False(t, e.IsDir())
	assert.True(t, mtime.Equal(e.ModTime()))

	fi := e.FileInfo()
	assert.Equal(t, "b.txt", fi.Name())
	assert.Equal(t, int64(13), fi.Size())
	assert.Equal(t, fs.FileMode(0640), fi.Mode())
	assert.Nil(t, fi.Sys())

	e.SetMode(fs.ModeSymlink | 0777)
	e.SetSymlink("test.txt")
	assert.True(t, e.IsSymlink())
	assert.Equal(t, "test.txt", e.Symlink())
	assert.Equal(t, "", e.Hardlink())
}

func TestEntry_Clone(t *testing.T) {
	e := NewEntry()
	defer e.Close()
	e.SetPathname("test.txt")

	c := e.Clone()
	defer c.Close()
	c.SetPathname("other.txt")

	assert.Equal(t, "test.txt", e.Pathname())
	assert.Equal(t, "other.txt", c.Pathname())
	assert.NotSame(t, e.Handle(), c.Handle())

	// the clone outlives the original.
	require.NoError(t, e.Close())
	assert.Equal(t, "other.txt", c.Pathname())
}

func TestEntry_Close(t *testing.T) {
	e := NewEntry()
	e.SetPathname("test.txt")
	fi := e.FileInfo()

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, engine.EntryFreed(e.Handle()))

	assert.Panics(t, func() {
		e.Pathname()
	})
	assert.Equal(t, "test.txt", fi.Name())
}

func TestEntry_fromArchive(t *testing.T) {
	a, err := FromPath("testdata/test.tar.gz")
	require.NoError(t, err)
	defer a.Close()

	e, err := a.Next()
	require.NoError(t, err)
	defer e.Close()

	size, ok := e.Size()
	assert.True(t, ok)
	assert.Equal(t, int64(len(testTxt)), size)
	assert.Equal(t, fs.FileMode(0644), e.Mode())
	assert.Equal(t, "root", e.Uname())
	assert.Equal(t, int64(0), e.Uid())
	assert.False(t, e.ModTime().IsZero())

	// entries stay valid after the archive moves on.
	_, err = a.Next()
	require.NoError(t, err)
	assert.Equal(t, "test.txt", e.Pathname())
}
