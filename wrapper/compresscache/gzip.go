package compresscache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/volley-go/volley"
)

// GzipConfig configures a gzip-compressing Cache.
type GzipConfig struct {
	// Level is the gzip compression level (gzip.BestSpeed..gzip.BestCompression).
	// Zero selects gzip.DefaultCompression.
	Level int
}

// NewGzip wraps inner with gzip compression.
func NewGzip(inner volley.Cache, config GzipConfig) (*Cache, error) {
	level := config.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return newCache(inner, Gzip, gzipCompressor(level), gzipDecompress)
}

func gzipCompressor(level int) compressFunc {
	return func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("compresscache: gzip: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compresscache: gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compresscache: gzip: %w", err)
		}
		return buf.Bytes(), nil
	}
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compresscache: gzip: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compresscache: gzip: %w", err)
	}
	return out, nil
}
