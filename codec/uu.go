package codec

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidUu is returned while reading a uuencoded stream that is not well-formed.
var ErrInvalidUu = errors.New("invalid uuencoded data")

// Uu implements Codec for uuencoded data, both the traditional and the "begin-base64" flavour.
//
// Lines before the "begin" line are skipped. Decoding stops at the "end" (or "====") line.
type Uu struct {
}

var _ Codec = Uu{}

func (c Uu) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(src)

	for {
		line, err := readLine(br)
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: missing begin line", ErrInvalidUu)
			}
			return nil, err
		}

		switch {
		case bytes.HasPrefix(line, []byte("begin-base64 ")):
			return io.NopCloser(&uuReader{br: br, base64: true}), nil
		case bytes.HasPrefix(line, []byte("begin ")):
			return io.NopCloser(&uuReader{br: br}), nil
		}
	}
}

type uuReader struct {
	br     *bufio.Reader
	base64 bool
	buf    []byte
	done   bool
}

func (r *uuReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}

		line, err := readLine(r.br)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if r.buf, err = r.decodeLine(line); err != nil {
			return 0, err
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *uuReader) decodeLine(line []byte) ([]byte, error) {
	if r.base64 {
		if bytes.Equal(line, []byte("====")) {
			r.done = true
			return nil, nil
		}

		out := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
		n, err := base64.StdEncoding.Decode(out, line)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidUu, err)
		}
		return out[:n], nil
	}

	if bytes.Equal(line, []byte("end")) {
		r.done = true
		return nil, nil
	}
	if len(line) == 0 {
		return nil, nil
	}

	// the first character encodes the number of decoded bytes on this line; 0 ("`" or " ") precedes "end".
	n := int(uuDecodeByte(line[0]))
	line = line[1:]
	if (n+2)/3*4 > len(line) {
		return nil, fmt.Errorf("%w: short line", ErrInvalidUu)
	}

	out := make([]byte, 0, n+2)
	for i := 0; len(out) < n; i += 4 {
		a, b, c, d := uuDecodeByte(line[i]), uuDecodeByte(line[i+1]), uuDecodeByte(line[i+2]), uuDecodeByte(line[i+3])
		out = append(out, a<<2|b>>4, b<<4|c>>2, c<<6|d)
	}

	return out[:n], nil
}

func uuDecodeByte(c byte) byte {
	return (c - 0x20) & 0x3f
}

// readLine returns the next line without its line terminator.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, err
	}

	return bytes.TrimRight(line, "\r\n"), nil
}
