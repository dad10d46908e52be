package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/cavaliergopher/rpm"
)

// ErrInvalidRpm is returned by Rpm.NewDecoder if the lead or one of the headers is malformed.
var ErrInvalidRpm = errors.New("invalid rpm package")

// Rpm implements Codec by stripping the lead, signature header, and main header of an RPM package.
//
// The decoder yields the (usually compressed) cpio payload as is.
type Rpm struct {
}

var _ Codec = Rpm{}

func (c Rpm) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	// rpm.Read stops right after the main header, which is where the payload starts.
	if _, err := rpm.Read(src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRpm, err)
	}

	return io.NopCloser(src), nil
}
