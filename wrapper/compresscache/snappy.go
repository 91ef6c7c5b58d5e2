package compresscache

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/volley-go/volley"
)

// NewSnappy wraps inner with snappy compression. Snappy has no tunable
// level; it favors speed over ratio.
func NewSnappy(inner volley.Cache) (*Cache, error) {
	return newCache(inner, Snappy, snappyCompress, snappyDecompress)
}

func snappyCompress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func snappyDecompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("compresscache: snappy: %w", err)
	}
	return out, nil
}
