package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xarchive"
	"github.com/nguyengg/xarchive/internal/config"
	"github.com/nguyengg/xarchive/internal/source"
	"golang.org/x/term"
)

// Xarchive is the root of the command line.
type Xarchive struct {
	Profile string  `short:"p" long:"profile" description:"override the AWS profile used for s3:// archives"`
	List    List    `command:"list" alias:"ls" description:"list the entries of archives"`
	Extract Extract `command:"extract" alias:"x" description:"extract archives into new directories"`
}

// NewParser returns the parser for Xarchive.
//
// The nearest .xarchive configuration is loaded before any command executes.
func NewParser() *flags.Parser {
	opts := &Xarchive{}

	p := flags.NewParser(opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		if _, err := config.LoadProfile(context.Background(), opts.Profile); err != nil {
			return fmt.Errorf("load %s error: %w", config.Name, err)
		}

		return command.Execute(args)
	}

	return p
}

// ReadOptions are the flags shared by every command that reads archives. They override the [read] section of the
// .xarchive configuration.
type ReadOptions struct {
	Filters []string `long:"filter" value-name:"NAME" description:"enable only this filter (repeatable); defaults to all filters"`
	Formats []string `long:"format" value-name:"NAME" description:"enable only this format (repeatable); defaults to all formats except raw"`
	Options string   `short:"o" long:"options" value-name:"OPTS" description:"comma-separated [module:]option[=value] list passed to the archive reader"`
}

func (o *ReadOptions) readConfig() (c config.ReadConfig, err error) {
	if c, err = config.ForRead(); err != nil {
		return c, err
	}

	if len(o.Filters) != 0 {
		c.Filters = c.Filters[:0]
		for _, name := range o.Filters {
			f, err := xarchive.ParseFilter(name)
			if err != nil {
				return c, err
			}
			c.Filters = append(c.Filters, f)
		}
	}

	if len(o.Formats) != 0 {
		c.Formats = c.Formats[:0]
		for _, name := range o.Formats {
			f, err := xarchive.ParseFormat(name)
			if err != nil {
				return c, err
			}
			c.Formats = append(c.Formats, f)
		}
	}

	if o.Options != "" {
		c.Options = o.Options
	}

	return c, nil
}

// open returns a function that opens a new archive over the source's bytes, so that the same source can be read
// more than once.
func (o *ReadOptions) open(src *source.Source) (func() (*xarchive.ReadArchive, error), error) {
	c, err := o.readConfig()
	if err != nil {
		return nil, err
	}

	return func() (*xarchive.ReadArchive, error) {
		a := xarchive.NewReadArchive()
		if err := c.Apply(a); err != nil {
			_ = a.Close()
			return nil, err
		}

		if err := a.OpenBuffer(src.Data); err != nil {
			_ = a.Close()
			return nil, err
		}

		return a, nil
	}, nil
}

func checkNoArgs(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	return nil
}

// showProgress reports whether progress bars should be drawn; when stderr is redirected, progress is logged instead.
func showProgress() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
