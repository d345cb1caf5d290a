package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// ResolvePath resolves path relative to baseDir. Absolute and empty paths
// are returned unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var gzipMagic = []byte{0x1f, 0x8b}

// OpenInput opens a data file for reading. Gzip compressed files are
// detected by their magic bytes and decompressed transparently.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := Decompress(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &inputFile{Reader: r, file: f}, nil
}

// Decompress wraps r in a gzip reader when the stream starts with the gzip
// magic bytes and returns it buffered otherwise.
func Decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(head) == len(gzipMagic) && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	}
	return br, nil
}

type inputFile struct {
	io.Reader
	file *os.File
}

func (f *inputFile) Close() error {
	if zr, ok := f.Reader.(*gzip.Reader); ok {
		_ = zr.Close()
	}
	return f.file.Close()
}
