package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/qtforge/cortex/pkg/errors"
)

var (
	// ErrUnsafePath rejects entries escaping the extraction root.
	ErrUnsafePath = errs.New("archive entry uses an absolute or parent-relative path")
	// ErrTooLarge rejects archives whose declared contents exceed the cap.
	ErrTooLarge = errs.New("archive contents exceed the size limit")
)

// ExtractZip extracts the archive at src into dst. Entries beginning with a
// path separator or containing `..` segments are rejected outright, and the
// summed uncompressed size is capped. The cap is enforced against the bytes
// actually written, the declared entry sizes only serve as an early reject.
func ExtractZip(src, dst string, maxBytes int64) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer reader.Close()

	var declared int64
	for _, file := range reader.File {
		if !safeName(file.Name) {
			return ErrUnsafePath
		}
		declared += int64(file.UncompressedSize64)
		if maxBytes > 0 && declared > maxBytes {
			return ErrTooLarge
		}
	}

	remaining := maxBytes
	if maxBytes <= 0 {
		remaining = -1
	}
	for _, file := range reader.File {
		written, err := extractEntry(file, dst, remaining)
		if err != nil {
			return err
		}
		if remaining >= 0 {
			remaining -= written
		}
	}
	return nil
}

func safeName(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(name), "/") {
		if segment == ".." {
			return false
		}
	}
	return true
}

// extractEntry writes one entry, copying at most limit bytes. A negative
// limit means unlimited. Headers can lie about their uncompressed size, so
// the copy itself is bounded rather than trusted.
func extractEntry(file *zip.File, dst string, limit int64) (int64, error) {
	target := filepath.Join(dst, filepath.FromSlash(file.Name))
	if file.FileInfo().IsDir() {
		return 0, os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, err
	}
	in, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return 0, err
	}
	defer out.Close()

	if limit < 0 {
		return io.Copy(out, in)
	}
	written, err := io.CopyN(out, in, limit+1)
	if err != nil && err != io.EOF {
		return written, err
	}
	if written > limit {
		return written, ErrTooLarge
	}
	return written, nil
}
