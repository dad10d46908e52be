package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xarchive"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/internal/source"
)

type List struct {
	Read ReadOptions `group:"Read Options"`
	Long bool        `short:"l" long:"long" description:"also print mode, owner, size, and modification time"`
	Args struct {
		Files []string `positional-arg-name:"archive" description:"local paths or s3://bucket/key URIs" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *List) Execute(args []string) error {
	if err := checkNoArgs(args); err != nil {
		return err
	}

	if c.out == nil {
		c.out = os.Stdout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, file))

		if err := c.list(ctx, file); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}

			internal.MustLogger(ctx).Printf("list error: %v", err)
			continue
		}

		success++
	}

	log.Printf("successfully listed %d/%d archives", success, n)
	return nil
}

func (c *List) list(ctx context.Context, file string) error {
	logger := internal.MustLogger(ctx)

	src, err := source.Load(ctx, file, func(opts *source.Options) {
		opts.ShowProgress = showProgress()
		opts.Logger = logger
	})
	if err != nil {
		return err
	}

	open, err := c.Read.open(src)
	if err != nil {
		return err
	}

	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	for e, err := range a.Entries() {
		if err != nil {
			return err
		}

		if w := a.Warning(); w != nil {
			msg, _ := w.Message()
			logger.Printf(`"%s": %s`, e.Pathname(), msg)
		}

		if c.Long {
			err = c.printLong(a, e)
		} else {
			_, err = fmt.Fprintln(c.out, e.Pathname())
		}
		_ = e.Close()
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	logger.Printf("%d entries (format %s, filters %s)", a.FileCount(), a.FormatName(), strings.Join(a.FilterNames(), ", "))
	return nil
}

func (c *List) printLong(a *xarchive.ReadArchive, e *xarchive.Entry) error {
	size, ok := e.Size()
	if !ok && e.IsRegular() {
		// the archive does not record the size so the data has to be read to measure it.
		s := &internal.Sizer{}
		if _, err := io.Copy(s, a); err != nil {
			return err
		}
		size = s.Size
	}

	owner := e.Uname()
	if owner == "" {
		owner = fmt.Sprintf("%d", e.Uid())
	}
	group := e.Gname()
	if group == "" {
		group = fmt.Sprintf("%d", e.Gid())
	}

	mtime := "-"
	if t := e.ModTime(); !t.IsZero() {
		mtime = t.Local().Format("2006-01-02 15:04")
	}

	name := e.Pathname()
	switch {
	case e.IsSymlink():
		name += " -> " + e.Symlink()
	case e.Hardlink() != "":
		name += " link to " + e.Hardlink()
	}

	_, err := fmt.Fprintf(c.out, "%s %-8s %-8s %10s %s %s\n", e.Mode(), owner, group, humanize.IBytes(uint64(max(size, 0))), mtime, name)
	return err
}
