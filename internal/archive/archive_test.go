package archive

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	require.NoError(t, png.Encode(&buf, img))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
	}
}

func TestBuildPDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestImages(t, dir, "0001.png", "0002.png", "0003.png")

	out := filepath.Join(t.TempDir(), "chapter.pdf")
	require.NoError(t, BuildPDF(dir, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestBuildPDF_EmptyDir(t *testing.T) {
	t.Parallel()

	err := BuildPDF(t.TempDir(), filepath.Join(t.TempDir(), "out.pdf"))
	require.Error(t, err)
}

func TestBuildZip_StoresImagesInReadingOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestImages(t, dir, "0002.png", "0001.png", "0003.png")
	// A stray non-image must not end up in the archive.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	out := filepath.Join(t.TempDir(), "chapter.zip")
	require.NoError(t, BuildZip(dir, out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"0001.png", "0002.png", "0003.png"}, names)
}

func TestFitPage(t *testing.T) {
	t.Parallel()

	// Tall page image fills the height.
	w, h := fitPage(100, 200, 210, 297)
	require.InDelta(t, 297.0, h, 0.01)
	require.Less(t, w, 210.0)

	// Wide image fills the width.
	w, h = fitPage(400, 100, 210, 297)
	require.InDelta(t, 210.0, w, 0.01)
	require.Less(t, h, 297.0)
}
