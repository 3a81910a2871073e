package graft

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFDCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

func TestLogToFile_ClosesPreviousSink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LogToFile(filepath.Join(dir, "first.log")))
	t.Cleanup(func() { swapSink(stderrSink(), nil) })

	before := openFDCount(t)
	for i := 0; i < 8; i++ {
		require.NoError(t, LogToFile(filepath.Join(dir, fmt.Sprintf("sink-%d.log", i))))
	}

	// Each swap closes the previous file, so only one sink fd stays open.
	assert.LessOrEqual(t, openFDCount(t), before+1)
}
