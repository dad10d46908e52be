package codec

import (
	"io"

	"github.com/mholt/archives"
)

// Bzip2 implements Codec for bzip2 streams.
type Bzip2 struct {
}

var _ Codec = Bzip2{}

func (c Bzip2) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return archives.Bz2{}.OpenReader(src)
}
