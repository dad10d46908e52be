package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyengg/xarchive"
	"github.com/nguyengg/xarchive/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	typeflag byte
	body     string
	linkname string
}

func makeTar(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Mode:     0644,
			Size:     int64(len(e.body)),
			ModTime:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		if e.typeflag == tar.TypeDir {
			hdr.Mode = 0755
		}
		if e.typeflag != tar.TypeReg {
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := io.WriteString(tw, e.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func fromBuffer(data []byte) Opener {
	return func() (*xarchive.ReadArchive, error) {
		return xarchive.FromBuffer(data)
	}
}

func quietLogger(opts *Options) {
	opts.Logger = log.New(io.Discard, "", 0)
}

func TestScan(t *testing.T) {
	s, err := Scan(context.Background(), func() (*xarchive.ReadArchive, error) {
		return xarchive.FromPath("../../testdata/test.tar.gz")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, int64(37+13), s.Size)
	assert.Equal(t, internal.RootDir(""), s.RootDir)
}

func TestExtract_fixture(t *testing.T) {
	for _, name := range []string{"test.tar.gz", "test.zip", "test.7z", "test.cpio", "test.tar.xz"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			stats, err := Extract(context.Background(), func() (*xarchive.ReadArchive, error) {
				return xarchive.FromPath(filepath.Join("../../testdata", name))
			}, dir, quietLogger)
			require.NoError(t, err)
			assert.Equal(t, 2, stats.Files)
			assert.Equal(t, int64(50), stats.Bytes)

			data, err := os.ReadFile(filepath.Join(dir, "test.txt"))
			require.NoError(t, err)
			assert.Equal(t, "Mr. Jock, TV quiz PhD, bags few lynx\n", string(data))

			data, err = os.ReadFile(filepath.Join(dir, "path", "b.txt"))
			require.NoError(t, err)
			assert.Equal(t, "hello, world\n", string(data))
		})
	}
}

func TestExtract_rootDir(t *testing.T) {
	data := makeTar(t,
		tarEntry{name: "top/", typeflag: tar.TypeDir},
		tarEntry{name: "top/a.txt", typeflag: tar.TypeReg, body: "a"},
		tarEntry{name: "top/sub/b.txt", typeflag: tar.TypeReg, body: "bb"},
		tarEntry{name: "top/link", typeflag: tar.TypeSymlink, linkname: "a.txt"},
		tarEntry{name: "top/hard", typeflag: tar.TypeLink, linkname: "top/a.txt"},
	)

	s, err := Scan(context.Background(), fromBuffer(data))
	require.NoError(t, err)
	assert.Equal(t, internal.RootDir("top/"), s.RootDir)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, int64(3), s.Size)

	dir := t.TempDir()
	stats, err := Extract(context.Background(), fromBuffer(data), dir, quietLogger, func(opts *Options) {
		opts.RootDir = s.RootDir
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 2, Links: 2, Bytes: 3}, stats)

	got, err := os.ReadFile(filepath.Join(dir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(got))

	target, err := os.Readlink(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", target)

	got, err = os.ReadFile(filepath.Join(dir, "hard"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	fi, err := os.Stat(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(fi.ModTime()))
}

func TestExtract_unsafe(t *testing.T) {
	tests := []struct {
		name  string
		entry tarEntry
	}{
		{"parent", tarEntry{name: "../evil.txt", typeflag: tar.TypeReg, body: "x"}},
		{"nested parent", tarEntry{name: "a/../../evil.txt", typeflag: tar.TypeReg, body: "x"}},
		{"absolute symlink", tarEntry{name: "link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}},
		{"escaping symlink", tarEntry{name: "a/link", typeflag: tar.TypeSymlink, linkname: "../../etc"}},
		{"escaping hard link", tarEntry{name: "hard", typeflag: tar.TypeLink, linkname: "../outside"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			dir := filepath.Join(parent, "out")
			require.NoError(t, os.Mkdir(dir, 0755))

			_, err := Extract(context.Background(), fromBuffer(makeTar(t, tt.entry)), dir, quietLogger)
			assert.ErrorIs(t, err, ErrUnsafePath)

			_, err = os.Lstat(filepath.Join(parent, "evil.txt"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestExtract_existingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("keep"), 0644))

	_, err := Extract(context.Background(), fromBuffer(makeTar(t, tarEntry{name: "a.txt", typeflag: tar.TypeReg, body: "new"})), dir, quietLogger)
	assert.ErrorIs(t, err, os.ErrExist)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

func TestExtract_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, fromBuffer(makeTar(t, tarEntry{name: "a.txt", typeflag: tar.TypeReg, body: "abc"})), t.TempDir(), quietLogger)
	assert.ErrorIs(t, err, context.Canceled)
}
