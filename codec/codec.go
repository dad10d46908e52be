package codec

import (
	"io"
)

// Codec creates decompressors for one compression filter.
//
// A Codec is a value type; its fields are the filter's options and are read only by NewDecoder.
type Codec interface {
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	//
	// Closing the decoder does not close src.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
}
