package u

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// extensions of supported compression formats
const (
	ExtZstd   = ".zst"
	ExtBrotli = ".br"
	ExtGzip   = ".gz"
)

// CompressExt returns a compression extension for a format name
// like "zst" or ".gz". Returns "" if the format is not supported.
func CompressExt(format string) string {
	ext := "." + strings.TrimPrefix(strings.ToLower(format), ".")
	switch ext {
	case ExtZstd, ".zstd":
		return ExtZstd
	case ExtBrotli:
		return ExtBrotli
	case ExtGzip, ".gzip":
		return ExtGzip
	}
	return ""
}

// NewCompressWriter returns a writer compressing to w with a format
// matching ext. Close() flushes compressed data but doesn't close w.
func NewCompressWriter(w io.Writer, ext string) (io.WriteCloser, error) {
	switch CompressExt(ext) {
	case ExtZstd:
		// SpeedBestCompression is much slower and not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case ExtBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case ExtGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nil, fmt.Errorf("unsupported compression '%s'", ext)
}

// implement io.ReadCloser over os.File wrapped with io.Reader.
// Close closes the decompressor (if it needs closing) and the file
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	closeFn func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.closeFn != nil {
		rc.closeFn()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// OpenFileMaybeCompressed opens a file that might be compressed with
// zstd, brotli or gzip, based on the file extension
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	res := &readerWrappedFile{f: f}
	switch CompressExt(filepath.Ext(path)) {
	case ExtZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		res.r = zr
		res.closeFn = zr.Close
	case ExtBrotli:
		res.r = brotli.NewReader(f)
	case ExtGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		res.r = gr
	default:
		return f, nil
	}
	return res, nil
}

// ReadFileMaybeCompressed reads a file, decompressing if needed
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
