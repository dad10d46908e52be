package engine

import (
	"slices"
)

// writer is the write side of an Archive. It only records the selected format and filters.
type writer struct {
	format  string
	filters []string
}

// writeFormats maps the names accepted by WriteSetFormatByName to the canonical format name.
var writeFormats = map[string]string{
	"7zip":    "7zip",
	"ar":      "ar",
	"arbsd":   "ar",
	"argnu":   "ar",
	"arsvr4":  "ar",
	"cpio":    "cpio",
	"newc":    "cpio",
	"odc":     "cpio",
	"iso":     "iso9660",
	"iso9660": "iso9660",
	"cd9660":  "iso9660",
	"mtree":   "mtree",
	"raw":     "raw",
	"tar":     "tar",
	"ustar":   "tar",
	"pax":     "tar",
	"paxr":    "tar",
	"gnutar":  "tar",
	"xar":     "xar",
	"zip":     "zip",
}

// writeFilters is the set of names accepted by WriteAddFilterByName.
var writeFilters = map[string]bool{
	"b64encode": true,
	"bzip2":     true,
	"compress":  true,
	"grzip":     true,
	"gzip":      true,
	"lrzip":     true,
	"lz4":       true,
	"lzip":      true,
	"lzma":      true,
	"lzop":      true,
	"none":      true,
	"uuencode":  true,
	"xz":        true,
	"zstd":      true,
}

// WriteSetFormatByName selects the output format, replacing any earlier selection.
func WriteSetFormatByName(a *Archive, name string) Status {
	if s := a.check(writeMagic, stateNew, "archive_write_set_format_by_name"); s != StatusOK {
		return s
	}

	format, ok := writeFormats[name]
	if !ok {
		a.setError(ErrnoProgrammer, "No such format '%s'", name)
		return StatusFatal
	}

	a.write.format = format
	return StatusOK
}

func WriteSetFormat7zip(a *Archive) Status {
	return WriteSetFormatByName(a, "7zip")
}

func WriteSetFormatAr(a *Archive) Status {
	return WriteSetFormatByName(a, "argnu")
}

func WriteSetFormatCpio(a *Archive) Status {
	return WriteSetFormatByName(a, "newc")
}

func WriteSetFormatIso9660(a *Archive) Status {
	return WriteSetFormatByName(a, "iso9660")
}

func WriteSetFormatMtree(a *Archive) Status {
	return WriteSetFormatByName(a, "mtree")
}

func WriteSetFormatRaw(a *Archive) Status {
	return WriteSetFormatByName(a, "raw")
}

func WriteSetFormatTar(a *Archive) Status {
	return WriteSetFormatByName(a, "paxr")
}

func WriteSetFormatXar(a *Archive) Status {
	return WriteSetFormatByName(a, "xar")
}

func WriteSetFormatZip(a *Archive) Status {
	return WriteSetFormatByName(a, "zip")
}

// WriteAddFilterByName appends a filter to the output chain. Adding "none" is a no-op.
func WriteAddFilterByName(a *Archive, name string) Status {
	if s := a.check(writeMagic, stateNew, "archive_write_add_filter_by_name"); s != StatusOK {
		return s
	}

	if !writeFilters[name] {
		a.setError(ErrnoProgrammer, "No such filter '%s'", name)
		return StatusFatal
	}

	if name != "none" && !slices.Contains(a.write.filters, name) {
		a.write.filters = append(a.write.filters, name)
	}

	return StatusOK
}

func WriteAddFilterBzip2(a *Archive) Status {
	return WriteAddFilterByName(a, "bzip2")
}

func WriteAddFilterCompress(a *Archive) Status {
	return WriteAddFilterByName(a, "compress")
}

func WriteAddFilterGrzip(a *Archive) Status {
	return WriteAddFilterByName(a, "grzip")
}

func WriteAddFilterGzip(a *Archive) Status {
	return WriteAddFilterByName(a, "gzip")
}

func WriteAddFilterLrzip(a *Archive) Status {
	return WriteAddFilterByName(a, "lrzip")
}

func WriteAddFilterLz4(a *Archive) Status {
	return WriteAddFilterByName(a, "lz4")
}

func WriteAddFilterLzma(a *Archive) Status {
	return WriteAddFilterByName(a, "lzma")
}

func WriteAddFilterLzop(a *Archive) Status {
	return WriteAddFilterByName(a, "lzop")
}

func WriteAddFilterNone(a *Archive) Status {
	return WriteAddFilterByName(a, "none")
}

func WriteAddFilterUuencode(a *Archive) Status {
	return WriteAddFilterByName(a, "uuencode")
}

func WriteAddFilterXz(a *Archive) Status {
	return WriteAddFilterByName(a, "xz")
}

func WriteAddFilterZstd(a *Archive) Status {
	return WriteAddFilterByName(a, "zstd")
}

// WriteFormatName returns the canonical name of the selected format, or "".
func WriteFormatName(a *Archive) string {
	if a == nil || a.write == nil {
		return ""
	}

	return a.write.format
}

// WriteFilterNames returns the selected filters in the order they were added.
func WriteFilterNames(a *Archive) []string {
	if a == nil || a.write == nil {
		return nil
	}

	return slices.Clone(a.write.filters)
}
