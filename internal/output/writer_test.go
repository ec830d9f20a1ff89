package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteListCreatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "covid.txt")
	require.NoError(t, Preflight(filepath.Dir(path)))

	res, err := WriteList(path, dir, []string{"example.com", "http://example.com"})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com\nhttp://example.com\n", string(b))
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, int64(len(b)), res.Bytes)
	assert.True(t, res.Changed)
	assert.NotZero(t, res.Digest)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode().Perm())
}

func TestWriteListReplacesPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "covid.txt")
	require.NoError(t, os.WriteFile(path, []byte("old.com\nstale.com\n"), 0600))

	res, err := WriteList(path, dir, []string{"new.com"})
	require.NoError(t, err)
	assert.True(t, res.Changed)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new.com\n", string(b))

	again, err := WriteList(path, dir, []string{"new.com"})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, res.Digest, again.Digest)
}

func TestWriteListEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "covid.txt")

	res, err := WriteList(path, dir, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Lines)
	assert.Zero(t, res.Bytes)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestWriteListLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	out := t.TempDir()
	_, err := WriteList(filepath.Join(out, "covid.txt"), work, []string{"a.com"})
	require.NoError(t, err)

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteListFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "covid.txt")
	require.NoError(t, os.WriteFile(path, []byte("keep.com\n"), 0644))

	_, err := WriteList(path, filepath.Join(dir, "missing-work-dir"), []string{"a.com"})
	require.Error(t, err)

	var oerr *Error
	require.True(t, errors.As(err, &oerr), "want *Error, got %T", err)
	assert.Equal(t, "create", oerr.Op)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep.com\n", string(b))
}

func TestMoveFailureKeepsSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("x\n"), 0644))

	// Renaming onto a non-empty directory fails; the copy then fails too and src survives.
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "child"), 0755))
	require.Error(t, move(src, dst))
	_, err := os.Stat(src)
	assert.NoError(t, err)

	require.NoError(t, copyFile(src, filepath.Join(dir, "copy")))
	b, err := os.ReadFile(filepath.Join(dir, "copy"))
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(b))
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, Preflight(nested, "", dir))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	err = Preflight(filepath.Join(file, "sub"))

	var oerr *Error
	require.True(t, errors.As(err, &oerr), "want *Error, got %T", err)
	assert.Equal(t, "preflight", oerr.Op)
}

func TestPreflightReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(dir, 0555))
	assert.Error(t, Preflight(dir))
}
