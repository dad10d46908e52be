package xarchive

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/nguyengg/xarchive/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventually runs the garbage collector until freed reports true or the attempts run out.
func eventually(t *testing.T, freed func() bool) {
	t.Helper()

	for i := 0; i < 50 && !freed(); i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	assert.True(t, freed(), "handle was not freed after its owner became unreachable")
}

// dropNewReadArchive returns the handle of a read archive that is no longer reachable.
func dropNewReadArchive() *engine.Archive {
	return NewReadArchive().Handle()
}

// dropIteratingReadArchive opens data, reads the first header and returns the handles of the archive and the entry,
// neither of which is closed.
func dropIteratingReadArchive(t *testing.T, data []byte) (*engine.Archive, *engine.Entry) {
	a, err := FromBuffer(data)
	require.NoError(t, err)

	e, err := a.Next()
	require.NoError(t, err)
	require.Equal(t, "test.txt", e.Pathname())

	return a.Handle(), e.Handle()
}

func TestReadArchive_cleanup(t *testing.T) {
	t.Run("new", func(t *testing.T) {
		h := dropNewReadArchive()
		eventually(t, func() bool { return engine.Freed(h) })
	})

	t.Run("mid-iteration", func(t *testing.T) {
		data, err := os.ReadFile("testdata/test.tar")
		require.NoError(t, err)

		h, eh := dropIteratingReadArchive(t, data)
		eventually(t, func() bool { return engine.Freed(h) })
		eventually(t, func() bool { return engine.EntryFreed(eh) })
	})
}

func TestReadArchive_Close_freesHandle(t *testing.T) {
	a := NewReadArchive()
	h := a.Handle()
	require.NoError(t, a.Close())
	assert.True(t, engine.Freed(h))
	assert.NoError(t, a.Close())
}

func TestEntry_cleanup(t *testing.T) {
	h := func() *engine.Entry {
		return NewEntry().Handle()
	}()

	eventually(t, func() bool { return engine.EntryFreed(h) })
}
