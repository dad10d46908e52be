package util

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStemAndExt(t *testing.T) {
	tests := []struct {
		path     string
		wantStem string
		wantExt  string
	}{
		{"file.tar.gz", "file", ".tar.gz"},
		{"dir/file.tar.zst", "file", ".tar.zst"},
		{"archive.zip", "archive", ".zip"},
		{"noext", "noext", ""},
		{".hidden", ".hidden", ""},
		{"photo.turbot1", "photo.turbot1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			stem, ext := StemAndExt(tt.path)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestTruncateRightWithSuffix(t *testing.T) {
	assert.Equal(t, "hello", TruncateRightWithSuffix("hello", 5, "..."))
	assert.Equal(t, "hel...", TruncateRightWithSuffix("hello", 3, "..."))
	assert.Equal(t, "héé...", TruncateRightWithSuffix("héééé", 3, "..."))
	assert.Equal(t, "...", TruncateRightWithSuffix("hello", 0, "..."))
}

func TestMkExclDir(t *testing.T) {
	parent := t.TempDir()

	name, err := MkExclDir(parent, "out", 0755)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "out"), name)

	name, err = MkExclDir(parent, "out", 0755)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "out-1"), name)
}

func TestCopyBufferWithContext(t *testing.T) {
	var sb strings.Builder
	n, err := CopyBufferWithContext(context.Background(), &sb, strings.NewReader("hello, world"), make([]byte, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "hello, world", sb.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyBufferWithContext(ctx, &sb, strings.NewReader("hello"), nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDirBase(t *testing.T) {
	assert.Equal(t, filepath.Join("b", "c.txt"), DirBase(filepath.Join("a", "b", "c.txt")))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Base(wd), "c.txt"), DirBase("c.txt"))
}
