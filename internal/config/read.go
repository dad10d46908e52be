package config

import (
	"fmt"
	"strings"

	"github.com/nguyengg/xarchive"
)

// ReadConfig contains the settings applied to every archive being read.
type ReadConfig struct {
	// Filters to enable. Empty means xarchive.FilterAll.
	Filters []xarchive.Filter
	// Formats to enable. Empty means xarchive.FormatAll.
	Formats []xarchive.Format
	// Options is passed verbatim to xarchive.ReadArchive.SetOptions.
	Options string
}

// ForRead returns the [read] section.
//
// The section looks like this:
//
//	[read]
//	filters = gzip, zstd
//	formats = tar, zip
//	options = zip:ignorecrc32,tar:read_concatenated_archives
func (l *Loader) ForRead() (c ReadConfig, err error) {
	sec, err := l.cfg.GetSection("read")
	if err != nil {
		return c, nil
	}

	for _, name := range sec.Key("filters").Strings(",") {
		f, err := xarchive.ParseFilter(name)
		if err != nil {
			return c, fmt.Errorf("invalid [read] filters: %w", err)
		}
		c.Filters = append(c.Filters, f)
	}

	for _, name := range sec.Key("formats").Strings(",") {
		f, err := xarchive.ParseFormat(name)
		if err != nil {
			return c, fmt.Errorf("invalid [read] formats: %w", err)
		}
		c.Formats = append(c.Formats, f)
	}

	c.Options = strings.TrimSpace(sec.Key("options").Value())
	return c, nil
}

// ForRead calls Loader.ForRead on the DefaultLoader instance.
func ForRead() (ReadConfig, error) {
	return DefaultLoader.ForRead()
}

// Apply enables the configured filters and formats on a fresh archive and sets the options.
func (c ReadConfig) Apply(a *xarchive.ReadArchive) error {
	filters := c.Filters
	if len(filters) == 0 {
		filters = []xarchive.Filter{xarchive.FilterAll}
	}
	for _, f := range filters {
		if err := a.SupportFilter(f); err != nil {
			return fmt.Errorf("support filter %s error: %w", f, err)
		}
	}

	formats := c.Formats
	if len(formats) == 0 {
		formats = []xarchive.Format{xarchive.FormatAll}
	}
	for _, f := range formats {
		if err := a.SupportFormat(f); err != nil {
			return fmt.Errorf("support format %s error: %w", f, err)
		}
	}

	if c.Options != "" {
		if err := a.SetOptions(c.Options); err != nil {
			return fmt.Errorf("set options error: %w", err)
		}
	}

	return nil
}
