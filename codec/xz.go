package codec

import (
	"io"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Xz implements Codec for xz streams.
type Xz struct {
	// SingleStream stops decoding at the end of the first xz stream and rejects trailing data.
	SingleStream bool
}

var _ Codec = Xz{}

func (c Xz) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := xz.ReaderConfig{SingleStream: c.SingleStream}.NewReader(src)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r), nil
}

// Lzma implements Codec for legacy .lzma ("LZMA alone") streams.
type Lzma struct {
}

var _ Codec = Lzma{}

func (c Lzma) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := lzma.NewReader(src)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r), nil
}
