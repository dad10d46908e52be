package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyengg/xarchive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_Execute(t *testing.T) {
	var out bytes.Buffer
	c := &List{out: &out}
	c.Args.Files = []string{"../../testdata/test.tar.gz", "../../testdata/test.zip"}

	require.NoError(t, c.Execute(nil))
	assert.Equal(t, "test.txt\npath/b.txt\ntest.txt\npath/b.txt\n", out.String())
}

func TestList_Execute_long(t *testing.T) {
	var out bytes.Buffer
	c := &List{out: &out, Long: true}
	c.Args.Files = []string{"../../testdata/test.tar"}

	require.NoError(t, c.Execute(nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "-rw-r--r-- root"), lines[0])
	assert.Contains(t, lines[0], "37 B")
	assert.True(t, strings.HasSuffix(lines[0], " test.txt"), lines[0])
}

func TestList_Execute_formatFilter(t *testing.T) {
	var out bytes.Buffer
	c := &List{out: &out}
	c.Read.Formats = []string{"zip"}
	c.Args.Files = []string{"../../testdata/test.tar"}

	// failures are logged per archive rather than returned.
	require.NoError(t, c.Execute(nil))
	assert.Empty(t, out.String())
}

func TestReadOptions_readConfig(t *testing.T) {
	o := &ReadOptions{Filters: []string{"gzip"}, Formats: []string{"tar", "7z"}, Options: "tar:read_concatenated_archives"}
	c, err := o.readConfig()
	require.NoError(t, err)
	assert.Equal(t, []xarchive.Filter{xarchive.FilterGzip}, c.Filters)
	assert.Equal(t, []xarchive.Format{xarchive.FormatTar, xarchive.FormatSevenZip}, c.Formats)
	assert.Equal(t, "tar:read_concatenated_archives", c.Options)

	_, err = (&ReadOptions{Formats: []string{"dmg"}}).readConfig()
	assert.ErrorIs(t, err, xarchive.ErrUnknownFormat)
}

func TestExtract_Execute(t *testing.T) {
	dir := t.TempDir()
	c := &Extract{Directory: dir}
	c.Args.Files = []string{"../../testdata/test.tar.gz", "../../testdata/test.tar.gz"}

	require.NoError(t, c.Execute(nil))

	for _, output := range []string{"test", "test-1"} {
		data, err := os.ReadFile(filepath.Join(dir, output, "path", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello, world\n", string(data))
	}
}

func TestCheckNoArgs(t *testing.T) {
	assert.NoError(t, checkNoArgs(nil))
	assert.EqualError(t, checkNoArgs([]string{"a", "b"}), "unknown positional arguments: a b")
}

func TestNewParser(t *testing.T) {
	p := NewParser()
	assert.NotNil(t, p.Find("list"))
	assert.NotNil(t, p.Find("extract"))
}
