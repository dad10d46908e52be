package xarchive

import (
	"fmt"
	"strings"

	"github.com/nguyengg/xarchive/engine"
)

// Archive is implemented by both ReadArchive and WriteArchive.
type Archive interface {
	// Handle returns the underlying engine handle.
	//
	// The handle remains owned by the Archive and must not be freed by the caller.
	Handle() *engine.Archive

	// SupportFormat enables the given Format.
	//
	// A warning from the engine is not an error. FormatAll never fails on a fresh ReadArchive.
	SupportFormat(format Format) error

	// SupportFilter enables the given Filter.
	//
	// A warning from the engine is not an error. FilterAll never fails on a fresh ReadArchive.
	SupportFilter(filter Filter) error

	// Close frees the underlying handle. Close is idempotent.
	Close() error
}

// ReadOnlyArchive adds the operations that only make sense on an archive being read.
type ReadOnlyArchive interface {
	Archive

	// Open reads the named file entirely and opens it.
	Open(path string) error

	// SetFilterOption passes an option to a registered filter. An empty module means every filter that knows the
	// option.
	SetFilterOption(module, option, value string) error

	// SetFormatOption passes an option to a registered format. An empty module means every format that knows the
	// option.
	SetFormatOption(module, option, value string) error

	// SetOption passes an option to registered formats and filters.
	SetOption(module, option, value string) error

	// SetOptions parses a comma-separated list of options of the form "[module:]option[=value]" and passes each of
	// them to SetOption. A leading "!" unsets the option; an option without a value is set to "1".
	SetOptions(options string) error
}

// Status is the return code of an engine call.
type Status = engine.Status

const (
	StatusEOF    = engine.StatusEOF
	StatusOK     = engine.StatusOK
	StatusRetry  = engine.StatusRetry
	StatusWarn   = engine.StatusWarn
	StatusFailed = engine.StatusFailed
	StatusFatal  = engine.StatusFatal
)

// Filter is a compression or encoding layer that wraps the archive.
//
// Filters without a native decoder (compress, grzip, lrzip, lzop) run the matching external program.
type Filter int

const (
	// FilterAll enables every filter.
	FilterAll Filter = iota
	// FilterNone enables no filter.
	FilterNone
	FilterBzip2
	FilterCompress
	FilterGrzip
	FilterGzip
	FilterLrzip
	FilterLz4
	FilterLzma
	FilterLzop
	FilterRpm
	FilterUu
	FilterXz
	FilterZstd
)

var filterNames = [...]string{
	FilterAll:      "all",
	FilterNone:     "none",
	FilterBzip2:    "bzip2",
	FilterCompress: "compress",
	FilterGrzip:    "grzip",
	FilterGzip:     "gzip",
	FilterLrzip:    "lrzip",
	FilterLz4:      "lz4",
	FilterLzma:     "lzma",
	FilterLzop:     "lzop",
	FilterRpm:      "rpm",
	FilterUu:       "uu",
	FilterXz:       "xz",
	FilterZstd:     "zstd",
}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("Filter(%d)", int(f))
	}

	return filterNames[f]
}

// ParseFilter returns the Filter with the given name, ignoring case.
//
// "uuencode" is accepted as an alias of "uu".
func ParseFilter(name string) (Filter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "uuencode" {
		return FilterUu, nil
	}

	for i, n := range filterNames {
		if n == name {
			return Filter(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

// Format is an archive container format.
type Format int

const (
	// FormatAll enables every format except FormatRaw.
	FormatAll Format = iota
	// FormatEmpty recognises empty input. It is not the same as FilterNone.
	FormatEmpty
	FormatSevenZip
	FormatAr
	FormatCab
	FormatCpio
	FormatIso9660
	FormatLha
	FormatMtree
	FormatRar
	// FormatRaw treats the whole (possibly filtered) input as a single entry named "data".
	FormatRaw
	FormatTar
	FormatXar
	FormatZip
)

var formatNames = [...]string{
	FormatAll:      "all",
	FormatEmpty:    "empty",
	FormatSevenZip: "7zip",
	FormatAr:       "ar",
	FormatCab:      "cab",
	FormatCpio:     "cpio",
	FormatIso9660:  "iso9660",
	FormatLha:      "lha",
	FormatMtree:    "mtree",
	FormatRar:      "rar",
	FormatRaw:      "raw",
	FormatTar:      "tar",
	FormatXar:      "xar",
	FormatZip:      "zip",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}

	return formatNames[f]
}

// ParseFormat returns the Format with the given name, ignoring case.
//
// "7z" and "sevenzip" are accepted as aliases of "7zip", "iso" of "iso9660".
func ParseFormat(name string) (Format, error) {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "7z", "sevenzip":
		return FormatSevenZip, nil
	case "iso":
		return FormatIso9660, nil
	}

	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

type engineFunc func(*engine.Archive) engine.Status

var readFilterFuncs = [...]engineFunc{
	FilterAll:      engine.ReadSupportFilterAll,
	FilterNone:     engine.ReadSupportFilterNone,
	FilterBzip2:    engine.ReadSupportFilterBzip2,
	FilterCompress: engine.ReadSupportFilterCompress,
	FilterGrzip:    engine.ReadSupportFilterGrzip,
	FilterGzip:     engine.ReadSupportFilterGzip,
	FilterLrzip:    engine.ReadSupportFilterLrzip,
	FilterLz4:      engine.ReadSupportFilterLz4,
	FilterLzma:     engine.ReadSupportFilterLzma,
	FilterLzop:     engine.ReadSupportFilterLzop,
	FilterRpm:      engine.ReadSupportFilterRpm,
	FilterUu:       engine.ReadSupportFilterUu,
	FilterXz:       engine.ReadSupportFilterXz,
	FilterZstd:     engine.ReadSupportFilterZstd,
}

var readFormatFuncs = [...]engineFunc{
	FormatAll:      engine.ReadSupportFormatAll,
	FormatEmpty:    engine.ReadSupportFormatEmpty,
	FormatSevenZip: engine.ReadSupportFormat7zip,
	FormatAr:       engine.ReadSupportFormatAr,
	FormatCab:      engine.ReadSupportFormatCab,
	FormatCpio:     engine.ReadSupportFormatCpio,
	FormatIso9660:  engine.ReadSupportFormatIso9660,
	FormatLha:      engine.ReadSupportFormatLha,
	FormatMtree:    engine.ReadSupportFormatMtree,
	FormatRar:      engine.ReadSupportFormatRar,
	FormatRaw:      engine.ReadSupportFormatRaw,
	FormatTar:      engine.ReadSupportFormatTar,
	FormatXar:      engine.ReadSupportFormatXar,
	FormatZip:      engine.ReadSupportFormatZip,
}

// writeFormatByName is used for variants the engine has no writer for so that the engine reports the error.
func writeFormatByName(name string) engineFunc {
	return func(a *engine.Archive) engine.Status {
		return engine.WriteSetFormatByName(a, name)
	}
}

func writeFilterByName(name string) engineFunc {
	return func(a *engine.Archive) engine.Status {
		return engine.WriteAddFilterByName(a, name)
	}
}

var writeFilterFuncs = [...]engineFunc{
	FilterAll:      writeFilterByName("all"),
	FilterNone:     engine.WriteAddFilterNone,
	FilterBzip2:    engine.WriteAddFilterBzip2,
	FilterCompress: engine.WriteAddFilterCompress,
	FilterGrzip:    engine.WriteAddFilterGrzip,
	FilterGzip:     engine.WriteAddFilterGzip,
	FilterLrzip:    engine.WriteAddFilterLrzip,
	FilterLz4:      engine.WriteAddFilterLz4,
	FilterLzma:     engine.WriteAddFilterLzma,
	FilterLzop:     engine.WriteAddFilterLzop,
	FilterRpm:      writeFilterByName("rpm"),
	FilterUu:       engine.WriteAddFilterUuencode,
	FilterXz:       engine.WriteAddFilterXz,
	FilterZstd:     engine.WriteAddFilterZstd,
}

var writeFormatFuncs = [...]engineFunc{
	FormatAll:      writeFormatByName("all"),
	FormatEmpty:    writeFormatByName("empty"),
	FormatSevenZip: engine.WriteSetFormat7zip,
	FormatAr:       engine.WriteSetFormatAr,
	FormatCab:      writeFormatByName("cab"),
	FormatCpio:     engine.WriteSetFormatCpio,
	FormatIso9660:  engine.WriteSetFormatIso9660,
	FormatLha:      writeFormatByName("lha"),
	FormatMtree:    engine.WriteSetFormatMtree,
	FormatRar:      writeFormatByName("rar"),
	FormatRaw:      engine.WriteSetFormatRaw,
	FormatTar:      engine.WriteSetFormatTar,
	FormatXar:      engine.WriteSetFormatXar,
	FormatZip:      engine.WriteSetFormatZip,
}

func lookupFilter(funcs []engineFunc, f Filter) (engineFunc, error) {
	if f < 0 || int(f) >= len(funcs) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, f)
	}

	return funcs[f], nil
}

func lookupFormat(funcs []engineFunc, f Format) (engineFunc, error) {
	if f < 0 || int(f) >= len(funcs) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}

	return funcs[f], nil
}
