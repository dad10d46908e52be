package codec

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// Lz4 implements Codec for lz4 frame streams.
type Lz4 struct {
	// Concurrency is the number of blocks decoded in flight. Values below 2 decode synchronously.
	Concurrency int
}

var _ Codec = Lz4{}

func (c Lz4) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r := lz4.NewReader(src)
	if c.Concurrency > 1 {
		if err := r.Apply(lz4.ConcurrencyOption(c.Concurrency)); err != nil {
			return nil, err
		}
	}

	return io.NopCloser(r), nil
}
