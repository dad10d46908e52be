package codec

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Program implements Codec by piping the stream through an external decompressor such as "lzop -d".
//
// The program reads compressed data on its stdin and writes decompressed data to its stdout. A non-zero exit status
// is reported by the Read call that would otherwise have returned io.EOF.
type Program struct {
	// Name is the executable to look up in PATH.
	Name string
	// Args are passed to the executable as is.
	Args []string
}

var _ Codec = Program{}

// String returns the command line, e.g. "gzip -d".
func (c Program) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

func (c Program) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	name, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, fmt.Errorf("can't launch external program %q: %w", c, err)
	}

	cmd := exec.Command(name, c.Args...)
	cmd.Stdin = src

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe for %q error: %w", c, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("can't launch external program %q: %w", c, err)
	}

	return &programDecoder{stdout: stdout, cmd: cmd, name: c.String()}, nil
}

type programDecoder struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
	name   string
	exited bool
}

func (d *programDecoder) Read(p []byte) (n int, err error) {
	if d.exited {
		return 0, io.EOF
	}

	if n, err = d.stdout.Read(p); err == io.EOF {
		d.exited = true
		if werr := d.cmd.Wait(); werr != nil {
			return n, fmt.Errorf("external program %q error: %w", d.name, werr)
		}
	}

	return
}

func (d *programDecoder) Close() error {
	if d.exited {
		return nil
	}

	d.exited = true
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait() // killed on purpose, exit status is meaningless
	return nil
}
