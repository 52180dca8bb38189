package viewer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingDirectory(t *testing.T) {
	l := NewLauncher("true", t.TempDir())

	err := l.Open("does-not-exist")
	assert.ErrorIs(t, err, ErrScanDirNotFound)
}

func TestOpen_FileIsNotADirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "scan.nii"), []byte("x"), 0o644))
	l := NewLauncher("true", root)

	err := l.Open("scan.nii")
	assert.ErrorIs(t, err, ErrScanDirNotFound)
}

func TestOpen_LaunchesDetached(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "patient-1"), 0o755))
	l := NewLauncher("true", root)

	// Returns immediately; the process is never joined.
	require.NoError(t, l.Open("patient-1"))
}
