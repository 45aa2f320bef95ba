package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, werr := w.Create(name)
		require.NoError(t, werr)
		_, werr = entry.Write([]byte(content))
		require.NoError(t, werr)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZip(t *testing.T) {
	src := writeZip(t, map[string]string{
		"widget.cpp":       "#include \"widget.h\"\n",
		"src/scene.cpp":    "// scene\n",
		"images/arrow.png": "png-bytes",
	})
	dst := t.TempDir()

	require.NoError(t, ExtractZip(src, dst, 1<<20))

	content, err := os.ReadFile(filepath.Join(dst, "widget.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "#include \"widget.h\"\n", string(content))

	_, err = os.Stat(filepath.Join(dst, "src", "scene.cpp"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dst, "images", "arrow.png"))
	assert.NoError(t, err)
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	src := writeZip(t, map[string]string{
		"../evil.sh": "#!/bin/sh\n",
	})
	dst := t.TempDir()

	err := ExtractZip(src, dst, 1<<20)
	assert.ErrorIs(t, err, ErrUnsafePath)
	_, serr := os.Stat(filepath.Join(filepath.Dir(dst), "evil.sh"))
	assert.True(t, os.IsNotExist(serr))
}

func TestExtractZipRejectsAbsolutePath(t *testing.T) {
	src := writeZip(t, map[string]string{
		"/etc/cron.d/evil": "payload",
	})

	err := ExtractZip(src, t.TempDir(), 1<<20)
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestExtractZipRejectsOversized(t *testing.T) {
	big := make([]byte, 2048)
	src := writeZip(t, map[string]string{"big.bin": string(big)})

	err := ExtractZip(src, t.TempDir(), 1024)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractZipRejectsUnderdeclaredSize(t *testing.T) {
	// the header declares 10 bytes but the deflate stream inflates to 2048,
	// the cap must hold against the real byte count
	payload := bytes.Repeat([]byte("a"), 2048)
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	path := filepath.Join(t.TempDir(), "lying.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.CreateRaw(&zip.FileHeader{
		Name:               "small.bin",
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(payload),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: 10,
	})
	require.NoError(t, err)
	_, err = entry.Write(compressed.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	err = ExtractZip(path, t.TempDir(), 1024)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"widget.cpp", true},
		{"src/widget.cpp", true},
		{"src/../../etc/passwd", false},
		{"..", false},
		{"/abs/path", false},
		{"\\windows\\path", false},
		{"dotted..name.cpp", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeName(tt.name), tt.name)
	}
}
