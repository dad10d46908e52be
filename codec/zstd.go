package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Zstd implements Codec for zstd streams.
type Zstd struct {
	// MaxMemory caps the decoder's window and frame memory in bytes. Zero keeps the library default.
	MaxMemory uint64
	// Concurrency is the number of blocks decoded in flight. Values below 2 decode synchronously.
	Concurrency int
}

var _ Codec = Zstd{}

func (c Zstd) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(max(c.Concurrency, 1))}
	if c.MaxMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(c.MaxMemory))
	}

	dec, err := zstd.NewReader(src, opts...)
	if err != nil {
		return nil, err
	}

	return &zstdDecoder{dec}, nil
}

type zstdDecoder struct {
	*zstd.Decoder
}

func (d *zstdDecoder) Close() error {
	d.Decoder.Close()
	return nil
}
