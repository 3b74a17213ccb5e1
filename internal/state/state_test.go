package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTripsAcrossOpens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, ok := s.Page("studio.yaml")
	require.False(t, ok)

	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	require.NoError(t, s.SetPage("/layouts/studio.yaml", "media"))

	reopened, err := Open(path)
	require.NoError(t, err)
	page, ok := reopened.Page("/layouts/studio.yaml")
	require.True(t, ok)
	require.Equal(t, "media", page)
	require.Equal(t, fixed, reopened.sessions["/layouts/studio.yaml"].UpdatedAt)

	require.NoError(t, reopened.Forget("/layouts/studio.yaml"))
	_, ok = reopened.Page("/layouts/studio.yaml")
	require.False(t, ok)
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	require.ErrorContains(t, err, "failed to parse state")
}

func TestRelativeLayoutPathsAreNormalised(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	abs, err := filepath.Abs("studio.yaml")
	require.NoError(t, err)

	require.NoError(t, s.SetPage("studio.yaml", "main"))
	page, ok := s.Page(abs)
	require.True(t, ok)
	require.Equal(t, "main", page)
}

func TestConcurrentSavesLeaveAValidFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	first, err := Open(path)
	require.NoError(t, err)
	second, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		store := first
		if i%2 == 1 {
			store = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.SetPage(fmt.Sprintf("/layouts/%d.yaml", i), "main"))
		}()
	}
	wg.Wait()

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NotEmpty(t, reopened.sessions)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}
