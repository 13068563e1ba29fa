package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func writeBlob(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestSniffRecognizesPNGHeader(t *testing.T) {
	path := writeBlob(t, append(pngMagic, []byte("rest of file contents")...))
	kind, err := sniff(path)
	require.NoError(t, err)
	require.Contains(t, kind, "image")
	require.Contains(t, kind, "png")
}

func TestSniffReportsUnknownForPlainText(t *testing.T) {
	path := writeBlob(t, []byte("just some ordinary plain text content\n"))
	kind, err := sniff(path)
	require.NoError(t, err)
	require.Equal(t, "text/unknown", kind)
}

func TestSniffOnEmptyFileReportsUnknown(t *testing.T) {
	path := writeBlob(t, nil)
	kind, err := sniff(path)
	require.NoError(t, err)
	require.Equal(t, "text/unknown", kind)
}
