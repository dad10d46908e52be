package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip implements Codec for gzip streams.
type Gzip struct {
	// SingleStream stops decoding at the end of the first gzip member.
	//
	// By default, concatenated members are decoded as one stream the way gzip -d does.
	SingleStream bool
}

var _ Codec = Gzip{}

func (c Gzip) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}

	r.Multistream(!c.SingleStream)
	return r, nil
}
