package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/internal/extract"
	"github.com/nguyengg/xarchive/internal/source"
	"github.com/nguyengg/xarchive/util"
	"github.com/schollz/progressbar/v3"
)

type Extract struct {
	Read      ReadOptions `group:"Read Options"`
	Directory string      `short:"C" long:"directory" value-name:"DIR" description:"create the output directories under DIR" default:"."`
	Args      struct {
		Files []string `positional-arg-name:"archive" description:"local paths or s3://bucket/key URIs" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if err := checkNoArgs(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, file))
		logger := internal.MustLogger(ctx)

		logger.Printf("start extracting")
		output, err := c.extract(ctx, file)
		if err == nil {
			logger.Printf(`done extracting to "%s"`, util.DirBase(output))
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d archives", success, n)
	return nil
}

// extract extracts the archive into a new directory under c.Directory and returns that directory.
//
// The directory is named after the archive's common root directory if all entries share one, and after the archive's
// stem otherwise.
func (c *Extract) extract(ctx context.Context, file string) (string, error) {
	logger := internal.MustLogger(ctx)

	src, err := source.Load(ctx, file, func(opts *source.Options) {
		opts.ShowProgress = showProgress()
		opts.Logger = logger
	})
	if err != nil {
		return "", err
	}

	open, err := c.Read.open(src)
	if err != nil {
		return "", err
	}

	summary, err := extract.Scan(ctx, open)
	if err != nil {
		return "", err
	}

	stem, _ := util.StemAndExt(path.Base(file))
	if summary.RootDir != "" {
		stem = strings.TrimSuffix(string(summary.RootDir), "/")
	}

	output, err := util.MkExclDir(c.Directory, stem, 0755)
	if err != nil {
		return "", err
	}

	var bar *progressbar.ProgressBar
	if showProgress() {
		bar = internal.DefaultBytes(summary.Size, "extracting")
		defer bar.Close()
	}

	stats, err := extract.Extract(ctx, open, output, func(opts *extract.Options) {
		opts.ProgressBar = bar
		opts.RootDir = summary.RootDir
		opts.Logger = logger
	})
	if err != nil {
		_ = os.RemoveAll(output)
		return "", err
	}

	logger.Printf("extracted %d files (%s), %d directories, %d links, skipped %d", stats.Files, humanize.IBytes(uint64(stats.Bytes)), stats.Dirs, stats.Links, stats.Skipped)
	return output, nil
}
