package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	want, err := os.ReadFile("../testdata/test.tar")
	require.NoError(t, err)

	tests := []struct {
		name  string
		codec Codec
	}{
		{name: "test.tar.gz", codec: Gzip{}},
		{name: "test.tar.bz2", codec: Bzip2{}},
		{name: "test.tar.xz", codec: Xz{}},
		{name: "test.tar.lzma", codec: Lzma{}},
		{name: "test.tar.zst", codec: Zstd{}},
		{name: "test.tar.lz4", codec: Lz4{}},
		{name: "test.tar.uu", codec: Uu{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := os.Open("../testdata/" + tt.name)
			require.NoError(t, err)
			defer f.Close()

			r, err := tt.codec.NewDecoder(f)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestGzip_SingleStream(t *testing.T) {
	data, err := os.ReadFile("../testdata/test.txt.gz")
	require.NoError(t, err)
	twice := append(append([]byte{}, data...), data...)

	r, err := Gzip{}.NewDecoder(bytes.NewReader(twice))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("Mr. Jock, TV quiz PhD, bags few lynx\n", 2), string(got))

	r, err = Gzip{SingleStream: true}.NewDecoder(bytes.NewReader(twice))
	require.NoError(t, err)
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Mr. Jock, TV quiz PhD, bags few lynx\n", string(got))
}

func TestUu(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{
			name: "traditional",
			in:   "junk before\nbegin 644 hello.txt\n-:&5L;&\\L('=O<FQD\"@``\n`\nend\n",
			want: "hello, world\n",
		},
		{
			name: "base64",
			in:   "begin-base64 644 hello.txt\naGVsbG8sIHdvcmxkCg==\n====\n",
			want: "hello, world\n",
		},
		{
			name: "crlf",
			in:   "begin-base64 644 hello.txt\r\naGVsbG8sIHdvcmxkCg==\r\n====\r\n",
			want: "hello, world\n",
		},
		{
			name:    "missing begin",
			in:      "hello, world\n",
			wantErr: ErrInvalidUu,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Uu{}.NewDecoder(strings.NewReader(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUu_truncated(t *testing.T) {
	r, err := Uu{}.NewDecoder(strings.NewReader("begin-base64 644 hello.txt\naGVsbG8sIHdvcmxkCg==\n"))
	require.NoError(t, err)

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// rpmHeader returns a header structure with a single INT32 tag.
func rpmHeader(tag, value uint32) []byte {
	b := make([]byte, 16+16+4)
	copy(b, []byte{0x8e, 0xad, 0xe8, 0x01})
	binary.BigEndian.PutUint32(b[8:12], 1)  // index count
	binary.BigEndian.PutUint32(b[12:16], 4) // data store size
	binary.BigEndian.PutUint32(b[16:20], tag)
	binary.BigEndian.PutUint32(b[20:24], 4) // INT32
	binary.BigEndian.PutUint32(b[24:28], 0) // offset
	binary.BigEndian.PutUint32(b[28:32], 1) // count
	binary.BigEndian.PutUint32(b[32:36], value)
	return b
}

// rpmLead returns a binary v3 package lead with a header-style signature.
func rpmLead() []byte {
	b := make([]byte, 96)
	copy(b, []byte{0xed, 0xab, 0xee, 0xdb, 3, 0})
	copy(b[10:], "test-1.0-1")
	binary.BigEndian.PutUint16(b[78:80], 5)
	return b
}

func TestRpm(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rpmLead())
	buf.Write(rpmHeader(1000, 7))
	buf.Write(make([]byte, 4)) // pads the 36-byte signature to 40
	buf.Write(rpmHeader(1009, 7))
	buf.WriteString("payload")

	r, err := Rpm{}.NewDecoder(&buf)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestRpm_invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "bad lead magic", data: make([]byte, 96+40)},
		{name: "bad header magic", data: append(rpmLead(), make([]byte, 40)...)},
		{name: "truncated lead", data: rpmLead()[:4]},
		{name: "truncated header", data: append(rpmLead(), rpmHeader(1000, 7)[:20]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rpm{}.NewDecoder(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidRpm)
		})
	}
}

func TestProgram(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat is not available")
	}

	c := Program{Name: "cat"}
	assert.Equal(t, "cat", c.String())

	r, err := c.NewDecoder(strings.NewReader("hello, world\n"))
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello, world\n", string(got))
}

func TestProgram_exitStatus(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false is not available")
	}

	r, err := Program{Name: "false"}.NewDecoder(strings.NewReader(""))
	require.NoError(t, err)
	defer r.Close()

	_, err = io.ReadAll(r)
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestProgram_notFound(t *testing.T) {
	c := Program{Name: "xarchive-no-such-program", Args: []string{"-d"}}
	assert.Equal(t, "xarchive-no-such-program -d", c.String())

	_, err := c.NewDecoder(strings.NewReader(""))
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
