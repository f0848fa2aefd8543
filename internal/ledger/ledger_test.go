package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	require.True(t, strings.HasSuffix(string(data), "\n"))
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRecordAppendsLines(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, "skipped_files.txt")
	require.NoError(t, err)
	require.NoError(t, l.Record("a_1x1_150dpi.png"))
	require.NoError(t, l.Record("b_2x2_300dpi.png"))
	require.NoError(t, l.Close())

	assert.Equal(t, []string{"a_1x1_150dpi.png", "b_2x2_300dpi.png"}, readLines(t, l.Path()))
}

func TestOpenNeverTruncates(t *testing.T) {
	dir := t.TempDir()

	for run := 0; run < 2; run++ {
		l, err := Open(dir, "skipped_files.txt")
		require.NoError(t, err)
		require.NoError(t, l.Record("same.png"))
		require.NoError(t, l.Close())
	}

	assert.Equal(t, []string{"same.png", "same.png"}, readLines(t, filepath.Join(dir, "skipped_files.txt")))
}

func TestOpenCreatesEmptyLedger(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, "ledger.txt")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	info, err := os.Stat(filepath.Join(dir, "ledger.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestOpenMissingDir(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), "ledger.txt")
	assert.Error(t, err)
}

func TestRecordRejectsMultiline(t *testing.T) {
	l, err := Open(t.TempDir(), "ledger.txt")
	require.NoError(t, err)
	defer l.Close()

	assert.ErrorIs(t, l.Record("a\nb"), ErrInvalidName)
	assert.ErrorIs(t, l.Record(""), ErrInvalidName)
}

func TestRecordAfterClose(t *testing.T) {
	l, err := Open(t.TempDir(), "ledger.txt")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Record("late.png"), ErrClosed)
}

func TestConcurrentRecord(t *testing.T) {
	l, err := Open(t.TempDir(), "ledger.txt")
	require.NoError(t, err)

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, l.Record(fmt.Sprintf("w%d_%03d.png", w, i)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	lines := readLines(t, l.Path())
	require.Len(t, lines, writers*perWriter)

	// Per-writer order is preserved.
	for w := 0; w < writers; w++ {
		prefix := fmt.Sprintf("w%d_", w)
		var mine []string
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				mine = append(mine, line)
			}
		}
		assert.True(t, sort.StringsAreSorted(mine))
		assert.Len(t, mine, perWriter)
	}
}
