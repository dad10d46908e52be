package xarchive

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyengg/xarchive/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTxt = "Mr. Jock, TV quiz PhD, bags few lynx\n"

func TestNewReadArchive_supportAll(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	assert.NoError(t, a.SupportFilter(FilterAll))
	assert.NoError(t, a.SupportFormat(FormatAll))
}

func TestReadArchive_SupportFilter_warnIsSuccess(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	// the engine warns that an external program decodes these.
	for _, f := range []Filter{FilterCompress, FilterGrzip, FilterLrzip, FilterLzop} {
		assert.NoError(t, a.SupportFilter(f), f.String())
	}
}

func TestReadArchive_SupportFilter_unknown(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	assert.ErrorIs(t, a.SupportFilter(Filter(99)), ErrUnknownFilter)
	assert.ErrorIs(t, a.SupportFormat(Format(-1)), ErrUnknownFormat)
}

func TestReadArchive_SetOptions_invalid(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	err := a.SetOptions("invalid")
	require.Error(t, err)

	var archiveErr *Error
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, StatusFailed, archiveErr.Status())
	assert.Equal(t, engine.ErrnoMisc, archiveErr.Code())
	msg, ok := archiveErr.Message()
	assert.True(t, ok)
	assert.Equal(t, "Undefined option: `invalid'", msg)
	assert.Equal(t, "archive error -1: Undefined option: `invalid'", err.Error())
}

func TestReadArchive_SetOption(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	require.NoError(t, a.SupportFilter(FilterAll))
	require.NoError(t, a.SupportFormat(FormatAll))

	assert.NoError(t, a.SetOptions("zip:ignorecrc32,!mtree:checkfs"))
	assert.NoError(t, a.SetOption("tar", "read_concatenated_archives", "1"))
	assert.NoError(t, a.SetFormatOption("7zip", "password", "secret"))
	assert.NoError(t, a.SetFilterOption("zstd", "threads", "2"))
	assert.Error(t, a.SetFilterOption("zstd", "threads", "many"))
	assert.Error(t, a.SetFormatOption("nosuch", "checkfs", "1"))
}

func TestReadArchive_OpenBuffer_invalid(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	require.NoError(t, a.SupportFilter(FilterAll))
	require.NoError(t, a.SupportFormat(FormatAll))

	err := a.OpenBuffer([]byte{0})
	require.Error(t, err)
	assert.True(t, IsArchiveError(err))
	assert.False(t, IsIOError(err))

	var archiveErr *Error
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, StatusFatal, archiveErr.Status())
	assert.Equal(t, engine.ErrnoFileFormat, archiveErr.Code())

	// the failure is terminal.
	_, nextErr := a.Next()
	assert.Same(t, archiveErr, nextErr)
	assert.Same(t, archiveErr, a.SupportFormat(FormatTar))
	assert.NoError(t, a.Close())
}

func TestReadArchive_SetOption_invalidFilterValue(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	require.NoError(t, a.SupportFilter(FilterAll))
	require.NoError(t, a.SupportFormat(FormatAll))

	const want = "Invalid value for option `zstd:max-memory': \"lots\""
	for name, fn := range map[string]func() error{
		"SetOption":  func() error { return a.SetOption("zstd", "max-memory", "lots") },
		"SetOptions": func() error { return a.SetOptions("zstd:max-memory=lots") },
	} {
		t.Run(name, func(t *testing.T) {
			var archiveErr *Error
			require.ErrorAs(t, fn(), &archiveErr)
			assert.Equal(t, StatusFailed, archiveErr.Status())
			msg, _ := archiveErr.Message()
			assert.Equal(t, want, msg)
		})
	}
}

func TestReadArchive_OpenBuffer_noFormats(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	err := a.OpenBuffer([]byte("hello"))
	var archiveErr *Error
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, engine.ErrnoProgrammer, archiveErr.Code())
	msg, _ := archiveErr.Message()
	assert.Equal(t, "No formats registered", msg)
}

func TestFromPath_emptyZip(t *testing.T) {
	a, err := FromPath("testdata/empty.zip")
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "ZIP", a.FormatName())
	assert.Equal(t, []string{"none"}, a.FilterNames())

	_, err = a.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFromPath_emptyZip_Entries(t *testing.T) {
	a, err := FromPath("testdata/empty.zip")
	require.NoError(t, err)
	defer a.Close()

	n := 0
	for e, err := range a.Entries() {
		n++
		if e != nil {
			_ = e.Close()
		}
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, n)

	// the range loop released the busy flag.
	_, err = a.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, a.Close())
}

func TestFromPath_missing(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
	assert.True(t, IsIOError(err))
	assert.False(t, IsArchiveError(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
}

func TestFromPath_notAnArchive(t *testing.T) {
	name := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(name, []byte("definitely not an archive"), 0644))

	_, err := FromPath(name)
	assert.True(t, IsArchiveError(err))
}

func TestFromPath_fixtures(t *testing.T) {
	tests := []struct {
		file        string
		wantFormat  string
		wantFilters []string
	}{
		{"test.tar", "tar", []string{"none"}},
		{"test.tar.gz", "tar", []string{"gzip", "none"}},
		{"test.tar.bz2", "tar", []string{"bzip2", "none"}},
		{"test.tar.xz", "tar", []string{"xz", "none"}},
		{"test.tar.zst", "tar", []string{"zstd", "none"}},
		{"test.tar.lz4", "tar", []string{"lz4", "none"}},
		{"test.zip", "ZIP", []string{"none"}},
		{"test.7z", "7-Zip", []string{"none"}},
		{"test.cpio", "SVR4 cpio", []string{"none"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			a, err := FromPath(filepath.Join("testdata", tt.file))
			require.NoError(t, err)
			defer a.Close()

			assert.Equal(t, tt.wantFormat, a.FormatName())
			assert.Equal(t, tt.wantFilters, a.FilterNames())

			var names []string
			for e, err := range a.Entries() {
				require.NoError(t, err)
				names = append(names, e.Pathname())

				if e.Pathname() == "test.txt" {
					data, err := io.ReadAll(a)
					require.NoError(t, err)
					assert.Equal(t, testTxt, string(data))
				}
				require.NoError(t, e.Close())
			}
			assert.Equal(t, []string{"test.txt", "path/b.txt"}, names)
			assert.Equal(t, 2, a.FileCount())
		})
	}
}

func TestReadArchive_Next(t *testing.T) {
	a, err := FromPath("testdata/test.tar.gz")
	require.NoError(t, err)
	defer a.Close()

	e, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, "test.txt", e.Pathname())
	assert.Nil(t, a.Warning())

	// data left unread is skipped by the next header.
	e, err = a.Next()
	require.NoError(t, err)
	assert.Equal(t, "path/b.txt", e.Pathname())
	require.NoError(t, a.Skip())
	n, err := a.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	for range 3 {
		e, err = a.Next()
		assert.Nil(t, e)
		assert.ErrorIs(t, err, io.EOF)
	}

	_, err = a.Read(make([]byte, 8))
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestReadArchive_Next_truncated(t *testing.T) {
	data, err := os.ReadFile("testdata/test.tar")
	require.NoError(t, err)

	a, err := FromBuffer(data[:1280])
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Next()
	require.NoError(t, err)

	_, err = a.Next()
	var archiveErr *Error
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, StatusFatal, archiveErr.Status())

	_, again := a.Next()
	assert.Same(t, archiveErr, again)
}

func TestReadArchive_Entries_busy(t *testing.T) {
	a, err := FromPath("testdata/test.zip")
	require.NoError(t, err)

	for e, err := range a.Entries() {
		require.NoError(t, err)

		assert.ErrorIs(t, a.Close(), ErrBusy)
		_, err = a.Next()
		assert.ErrorIs(t, err, ErrBusy)
		assert.ErrorIs(t, a.SetOptions("checkfs"), ErrBusy)

		for _, err := range a.Entries() {
			assert.ErrorIs(t, err, ErrBusy)
		}

		_, err = a.Read(make([]byte, 4))
		assert.NoError(t, err)
		e.Close()
	}

	assert.NoError(t, a.Close())
}

func TestReadArchive_Entries_break(t *testing.T) {
	a, err := FromPath("testdata/test.cpio")
	require.NoError(t, err)
	defer a.Close()

	for e := range a.Entries() {
		assert.Equal(t, "test.txt", e.Pathname())
		break
	}

	e, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, "path/b.txt", e.Pathname())

	count := 0
	for range a.Entries() {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestReadArchive_Entries_notOpen(t *testing.T) {
	a := NewReadArchive()
	defer a.Close()

	var errs []error
	for e, err := range a.Entries() {
		assert.Nil(t, e)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNotOpen)
}

func TestReadArchive_stateGuards(t *testing.T) {
	t.Run("before open", func(t *testing.T) {
		a := NewReadArchive()
		defer a.Close()

		_, err := a.Next()
		assert.ErrorIs(t, err, ErrNotOpen)
		_, err = a.Read(make([]byte, 1))
		assert.ErrorIs(t, err, ErrNotOpen)
		assert.ErrorIs(t, a.Skip(), ErrNotOpen)
		assert.Equal(t, "", a.FormatName())
		assert.Nil(t, a.FilterNames())
	})

	t.Run("after open", func(t *testing.T) {
		a, err := FromPath("testdata/test.tar")
		require.NoError(t, err)
		defer a.Close()

		assert.ErrorIs(t, a.SupportFormat(FormatZip), ErrAlreadyOpen)
		assert.ErrorIs(t, a.SupportFilter(FilterGzip), ErrAlreadyOpen)
		assert.ErrorIs(t, a.SetOptions("checkfs"), ErrAlreadyOpen)
		assert.ErrorIs(t, a.Open("testdata/test.tar"), ErrAlreadyOpen)
		assert.ErrorIs(t, a.OpenBuffer(nil), ErrAlreadyOpen)
		_, err = a.Read(make([]byte, 1))
		assert.ErrorIs(t, err, ErrNoEntry)
	})

	t.Run("after close", func(t *testing.T) {
		a, err := FromPath("testdata/test.tar")
		require.NoError(t, err)

		require.NoError(t, a.Close())
		require.NoError(t, a.Close())
		assert.True(t, engine.Freed(a.Handle()))

		_, err = a.Next()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = a.Read(make([]byte, 1))
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, a.Skip(), ErrClosed)
		assert.ErrorIs(t, a.SupportFormat(FormatAll), ErrClosed)
		assert.ErrorIs(t, a.SetOption("", "checkfs", "1"), ErrClosed)
		assert.ErrorIs(t, a.Open("testdata/test.tar"), ErrClosed)
		assert.Equal(t, "", a.FormatName())
		assert.Equal(t, 0, a.FileCount())

		for _, err := range a.Entries() {
			assert.ErrorIs(t, err, ErrClosed)
		}
	})
}

func TestReadArchive_Warning(t *testing.T) {
	data, err := os.ReadFile("testdata/test.tar")
	require.NoError(t, err)

	// rewrite the first name with an invalid UTF-8 byte and fix up the header checksum.
	data = append([]byte{}, data...)
	data[0] = 0xff
	sum := 0
	for i, c := range data[:512] {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int(c)
	}
	copy(data[148:156], []byte(octal(sum)))

	a := NewReadArchive()
	defer a.Close()
	require.NoError(t, a.SupportFormat(FormatTar))
	require.NoError(t, a.OpenBuffer(data))

	e, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, "\uFFFDest.txt", e.Pathname())

	w := a.Warning()
	require.NotNil(t, w)
	assert.Equal(t, StatusWarn, w.Status())
	assert.True(t, w.HasMessage())
}

// octal formats a tar header checksum field.
func octal(v int) string {
	s := []byte("000000\x00 ")
	for i := 5; i >= 0; i-- {
		s[i] = byte('0' + v&7)
		v >>= 3
	}
	return string(s)
}

func TestIsArchiveError(t *testing.T) {
	assert.False(t, IsArchiveError(nil))
	assert.False(t, IsArchiveError(errors.New("plain")))
	assert.True(t, IsArchiveError(&Error{}))
	assert.False(t, IsIOError(&Error{}))
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "archive error 84", (&Error{code: 84}).Error())
	assert.Equal(t, "archive error 84: bad", (&Error{code: 84, msg: "bad", hasMsg: true}).Error())
}
