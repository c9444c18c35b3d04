package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfile/pfdbg/history"
)

func TestLoadCreatesMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".polyfile_history")
	h := history.New(path)

	require.NoError(t, h.Load())
	assert.FileExists(t, path)
	assert.Empty(t, h.Entries())
}

func TestRecordAndSavePersistsOnlySessionEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".polyfile_history")

	require.NoError(t, os.WriteFile(path, []byte("where\nbreakpoint mime:foo\n"), 0o600))

	h := history.New(path)
	require.NoError(t, h.Load())

	h.Record("step")
	h.Record("continue")

	require.NoError(t, h.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "where\nbreakpoint mime:foo\nstep\ncontinue\n", string(data))
}

func TestEntriesCombinesLoadedAndSession(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".polyfile_history")
	require.NoError(t, os.WriteFile(path, []byte("where\n"), 0o600))

	h := history.New(path)
	require.NoError(t, h.Load())
	h.Record("step")

	assert.Equal(t, []string{"where", "step"}, h.Entries())
}

func TestSaveNoSessionEntriesIsNoop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".polyfile_history")
	h := history.New(path)

	require.NoError(t, h.Save())
	assert.NoFileExists(t, path)
}

func TestLoadTruncatesToMaxEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".polyfile_history")

	var data []byte
	for i := 0; i < history.MaxEntries+10; i++ {
		data = append(data, []byte("cmd\n")...)
	}

	require.NoError(t, os.WriteFile(path, data, 0o600))

	h := history.New(path)
	require.NoError(t, h.Load())

	assert.Len(t, h.Entries(), history.MaxEntries)
}
