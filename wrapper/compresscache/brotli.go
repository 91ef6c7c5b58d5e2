package compresscache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/volley-go/volley"
)

// BrotliConfig configures a brotli-compressing Cache.
type BrotliConfig struct {
	// Level is the brotli quality level, 0-11. Zero selects 6, a balanced
	// default between ratio and speed.
	Level int
}

// NewBrotli wraps inner with brotli compression.
func NewBrotli(inner volley.Cache, config BrotliConfig) (*Cache, error) {
	level := config.Level
	if level == 0 {
		level = 6
	}
	return newCache(inner, Brotli, brotliCompressor(level), brotliDecompress)
}

func brotliCompressor(level int) compressFunc {
	return func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, level)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compresscache: brotli: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compresscache: brotli: %w", err)
		}
		return buf.Bytes(), nil
	}
}

func brotliDecompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compresscache: brotli: %w", err)
	}
	return out, nil
}
