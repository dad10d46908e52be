package engine

import (
	"bytes"
	"strconv"

	"github.com/nguyengg/xarchive/archive"
)

// formatPeekSize is how much of the (decompressed) stream format bidders get to look at. It covers the ISO 9660
// primary volume descriptor at offset 32768.
const formatPeekSize = 64 << 10

type access int

const (
	// streamAccess formats read the stream front to back.
	streamAccess access = iota
	// preferRandomAccess formats read the stream directly, but use random access when it is free, i.e. when no
	// filter is active and the memory buffer can be read as is.
	preferRandomAccess
	// randomAccess formats always need random access; filtered streams are materialized first.
	randomAccess
)

// formatBidder recognizes one container format and creates its reader.
type formatBidder struct {
	// name is the module name used by options.
	name string
	// label is what FormatName reports after the format has been chosen.
	label string
	// bid returns how many bits of the peeked bytes it verified; 0 means the format does not apply.
	bid    func(peek []byte) int
	access access
	// newArchiver creates the reader from the options set with ReadSetFormatOption; nil if the format is recognized
	// but cannot be decoded.
	newArchiver func(opts driverOptions) archive.Archiver
	options     map[string]optionKind
}

var (
	format7zip = &formatBidder{
		name:   "7zip",
		label:  "7-Zip",
		bid:    bid7zip,
		access: randomAccess,
		newArchiver: func(opts driverOptions) archive.Archiver {
			return archive.SevenZip{Password: opts["password"]}
		},
		options: map[string]optionKind{"password": stringOption},
	}
	formatAr = &formatBidder{
		name:  "ar",
		label: "ar",
		bid:   bidAr,
		newArchiver: func(driverOptions) archive.Archiver {
			return archive.Ar{}
		},
	}
	formatCab = &formatBidder{
		name:  "cab",
		label: "CAB",
		bid:   bidCab,
	}
	formatCpio = &formatBidder{
		name:  "cpio",
		label: "SVR4 cpio",
		bid:   bidCpio,
		newArchiver: func(driverOptions) archive.Archiver {
			return archive.Cpio{}
		},
	}
	formatEmpty = &formatBidder{
		name:  "empty",
		label: "Empty file",
		bid:   bidEmpty,
		newArchiver: func(driverOptions) archive.Archiver {
			return archive.Empty{}
		},
	}
	formatIso9660 = &formatBidder{
		name:   "iso9660",
		label:  "ISO9660",
		bid:    bidIso9660,
		access: randomAccess,
		newArchiver: func(driverOptions) archive.Archiver {
			return archive.Iso9660{}
		},
	}
	formatLha = &formatBidder{
		name:  "lha",
		label: "lha",
		bid:   bidLha,
	}
	formatMtree = &formatBidder{
		name:  "mtree",
		label: "mtree",
		bid:   bidMtree,
		newArchiver: func(opts driverOptions) archive.Archiver {
			return archive.Mtree{CheckFS: opts.bool("checkfs")}
		},
		options: map[string]optionKind{"checkfs": boolOption},
	}
	formatRar = &formatBidder{
		name:  "rar",
		label: "RAR",
		bid:   bidRar,
		newArchiver: func(opts driverOptions) archive.Archiver {
			return archive.Rar{Password: opts["password"]}
		},
		options: map[string]optionKind{"password": stringOption},
	}
	formatRaw = &formatBidder{
		name:  "raw",
		label: "raw",
		bid:   bidRaw,
		newArchiver: func(driverOptions) archive.Archiver {
			return archive.Raw{}
		},
	}
	formatTar = &formatBidder{
		name:  "tar",
		label: "tar",
		bid:   bidTar,
		newArchiver: func(opts driverOptions) archive.Archiver {
			return archive.Tar{ReadConcatenated: opts.bool("read_concatenated_archives")}
		},
		options: map[string]optionKind{"read_concatenated_archives": boolOption},
	}
	formatXar = &formatBidder{
		name:  "xar",
		label: "xar",
		bid:   bidXar,
	}
	formatZip = &formatBidder{
		name:   "zip",
		label:  "ZIP",
		bid:    bidZip,
		access: preferRandomAccess,
		newArchiver: func(opts driverOptions) archive.Archiver {
			return archive.Zip{IgnoreCRC32: opts.bool("ignorecrc32")}
		},
		options: map[string]optionKind{"ignorecrc32": boolOption},
	}

	// allFormats is every format ReadSupportFormatAll registers, in registration order. Raw is deliberately left
	// out since it accepts anything.
	allFormats = []*formatBidder{
		formatAr, formatCpio, formatEmpty, formatLha, formatMtree, formatTar, formatXar, format7zip, formatCab,
		formatRar, formatIso9660, formatZip,
	}
)

func ReadSupportFormatAll(a *Archive) Status {
	if s := a.check(readMagic, stateNew, "archive_read_support_format_all"); s != StatusOK {
		return s
	}

	for _, f := range allFormats {
		a.read.addFormat(f)
	}

	return StatusOK
}

func ReadSupportFormatEmpty(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_empty", formatEmpty)
}

func ReadSupportFormat7zip(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_7zip", format7zip)
}

func ReadSupportFormatAr(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_ar", formatAr)
}

// ReadSupportFormatCab registers the CAB bidder. CAB archives are recognized but opening one fails.
func ReadSupportFormatCab(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_cab", formatCab)
}

func ReadSupportFormatCpio(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_cpio", formatCpio)
}

func ReadSupportFormatIso9660(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_iso9660", formatIso9660)
}

// ReadSupportFormatLha registers the LHa bidder. LHa archives are recognized but opening one fails.
func ReadSupportFormatLha(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_lha", formatLha)
}

func ReadSupportFormatMtree(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_mtree", formatMtree)
}

func ReadSupportFormatRar(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_rar", formatRar)
}

// ReadSupportFormatRaw registers the raw reader, which accepts any input as a single entry named "data".
func ReadSupportFormatRaw(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_raw", formatRaw)
}

func ReadSupportFormatTar(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_tar", formatTar)
}

// ReadSupportFormatXar registers the xar bidder. Xar archives are recognized but opening one fails.
func ReadSupportFormatXar(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_xar", formatXar)
}

func ReadSupportFormatZip(a *Archive) Status {
	return supportFormat(a, "archive_read_support_format_zip", formatZip)
}

func supportFormat(a *Archive, fn string, f *formatBidder) Status {
	if s := a.check(readMagic, stateNew, fn); s != StatusOK {
		return s
	}

	a.read.addFormat(f)
	return StatusOK
}

func bid7zip(p []byte) int {
	if !bytes.HasPrefix(p, []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}) {
		return 0
	}

	return 48
}

func bidAr(p []byte) int {
	if !bytes.HasPrefix(p, []byte("!<arch>\n")) {
		return 0
	}

	return 64
}

func bidCab(p []byte) int {
	if !bytes.HasPrefix(p, []byte{'M', 'S', 'C', 'F', 0, 0, 0, 0}) {
		return 0
	}

	return 64
}

func bidCpio(p []byte) int {
	if !bytes.HasPrefix(p, []byte("070701")) && !bytes.HasPrefix(p, []byte("070702")) {
		return 0
	}

	return 48
}

func bidEmpty(p []byte) int {
	if len(p) != 0 {
		return 0
	}

	return 1
}

func bidIso9660(p []byte) int {
	const offset = 32768
	if len(p) < offset+7 || p[offset] != 1 || !bytes.Equal(p[offset+1:offset+6], []byte("CD001")) || p[offset+6] != 1 {
		return 0
	}

	return 48
}

func bidLha(p []byte) int {
	if len(p) < 22 || p[2] != '-' || p[3] != 'l' || p[6] != '-' {
		return 0
	}

	switch string(p[4:6]) {
	case "h0", "h1", "h2", "h3", "h4", "h5", "h6", "h7", "hd", "zs", "z5", "z4":
	default:
		return 0
	}

	// header level
	if p[20] > 3 {
		return 0
	}

	return 30
}

func bidMtree(p []byte) int {
	if !bytes.HasPrefix(p, []byte("#mtree")) {
		return 0
	}

	return 48
}

func bidRar(p []byte) int {
	if bytes.HasPrefix(p, []byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x00}) ||
		bytes.HasPrefix(p, []byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x01, 0x00}) {
		return 30
	}

	return 0
}

func bidRaw(_ []byte) int {
	return 1
}

func bidTar(p []byte) int {
	if len(p) < 512 {
		return 0
	}

	hdr := p[:512]
	if bytes.Count(hdr, []byte{0}) == 512 {
		// an archive with no entries is just the end-of-archive marker.
		if len(p) >= 1024 && bytes.Count(p[512:1024], []byte{0}) == 512 {
			return 10
		}
		return 0
	}

	if !tarChecksumOK(hdr) {
		return 0
	}

	bid := 48
	if magic := hdr[257:265]; bytes.Equal(magic, []byte("ustar\x0000")) || bytes.Equal(magic, []byte("ustar  \x00")) {
		bid += 56
	}

	return bid
}

func tarChecksumOK(hdr []byte) bool {
	field := bytes.Trim(hdr[148:156], " \x00")
	want, err := strconv.ParseInt(string(field), 8, 64)
	if err != nil {
		return false
	}

	// historical tars summed signed bytes.
	var unsigned, signed int64
	for i, c := range hdr {
		if 148 <= i && i < 156 {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}

	return want == unsigned || want == signed
}

func bidXar(p []byte) int {
	if len(p) < 6 || !bytes.HasPrefix(p, []byte("xar!")) || p[4] != 0 || p[5] != 28 {
		return 0
	}

	return 64
}

func bidZip(p []byte) int {
	for _, sig := range [][]byte{
		[]byte("PK\x03\x04"),
		[]byte("PK\x05\x06"),
		[]byte("PK00PK\x03\x04"),
	} {
		if bytes.HasPrefix(p, sig) {
			return 30
		}
	}

	return 0
}
