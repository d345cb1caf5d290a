package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		baseDir  string
		expected string
	}{
		{
			name:     "absolute path unchanged",
			path:     "/data/go.obo",
			baseDir:  "/base",
			expected: "/data/go.obo",
		},
		{
			name:     "relative path resolved",
			path:     "annotations/gene.gaf.gz",
			baseDir:  "/base",
			expected: "/base/annotations/gene.gaf.gz",
		},
		{
			name:     "parent references cleaned",
			path:     "../shared/go.obo",
			baseDir:  "/base/sub",
			expected: "/base/shared/go.obo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.expected), ResolvePath(tt.path, tt.baseDir))
		})
	}
}

func TestResolvePathEmpty(t *testing.T) {
	assert.Equal(t, "", ResolvePath("", "/base"))
}

func TestOpenInputPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("format-version: 1.2\n"), 0o644))

	rc, err := OpenInput(path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "format-version: 1.2\n", string(data))
}

func TestOpenInputGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("!gaf-version: 2.2\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "gene.gaf.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	rc, err := OpenInput(path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "!gaf-version: 2.2\n", string(data))
}

func TestOpenInputEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rc, err := OpenInput(path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOpenInputMissing(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
