package engine

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"github.com/nguyengg/xarchive/codec"
)

// maxFilters bounds how many filters may be stacked on one stream.
const maxFilters = 25

// filterPeekSize is how much of the stream filter bidders get to look at.
const filterPeekSize = 1024

// filterBidder recognizes one compression filter and creates its decoder.
type filterBidder struct {
	name string
	// bid returns how many bits of the peeked bytes it verified; 0 means the filter does not apply.
	bid func(peek []byte) int
	// newCodec creates the decoder from the options set with ReadSetFilterOption.
	newCodec func(opts driverOptions) codec.Codec
	// program is set for filters that shell out to an external decompressor.
	program *codec.Program
	options map[string]optionKind
}

var (
	filterBzip2 = &filterBidder{
		name: "bzip2",
		bid:  bidBzip2,
		newCodec: func(driverOptions) codec.Codec {
			return codec.Bzip2{}
		},
	}
	filterCompress = externalFilter("compress", bidCompress, codec.Program{Name: "gzip", Args: []string{"-d"}})
	filterGzip     = &filterBidder{
		name: "gzip",
		bid:  bidGzip,
		newCodec: func(opts driverOptions) codec.Codec {
			return codec.Gzip{SingleStream: opts.bool("single-stream")}
		},
		options: map[string]optionKind{"single-stream": boolOption},
	}
	filterLzma = &filterBidder{
		name: "lzma",
		bid:  bidLzma,
		newCodec: func(driverOptions) codec.Codec {
			return codec.Lzma{}
		},
	}
	filterXz = &filterBidder{
		name: "xz",
		bid:  bidXz,
		newCodec: func(opts driverOptions) codec.Codec {
			return codec.Xz{SingleStream: opts.bool("single-stream")}
		},
		options: map[string]optionKind{"single-stream": boolOption},
	}
	filterUu = &filterBidder{
		name: "uu",
		bid:  bidUu,
		newCodec: func(driverOptions) codec.Codec {
			return codec.Uu{}
		},
	}
	filterRpm = &filterBidder{
		name: "rpm",
		bid:  bidRpm,
		newCodec: func(driverOptions) codec.Codec {
			return codec.Rpm{}
		},
	}
	filterLrzip = externalFilter("lrzip", bidLrzip, codec.Program{Name: "lrzip", Args: []string{"-d", "-q"}})
	filterLzop  = externalFilter("lzop", bidLzop, codec.Program{Name: "lzop", Args: []string{"-d"}})
	filterGrzip = externalFilter("grzip", bidGrzip, codec.Program{Name: "grzip", Args: []string{"-d"}})
	filterLz4   = &filterBidder{
		name: "lz4",
		bid:  bidLz4,
		newCodec: func(opts driverOptions) codec.Codec {
			return codec.Lz4{Concurrency: opts.int("threads")}
		},
		options: map[string]optionKind{"threads": intOption},
	}
	filterZstd = &filterBidder{
		name: "zstd",
		bid:  bidZstd,
		newCodec: func(opts driverOptions) codec.Codec {
			return codec.Zstd{MaxMemory: opts.uint("max-memory"), Concurrency: opts.int("threads")}
		},
		options: map[string]optionKind{"max-memory": uintOption, "threads": intOption},
	}

	// allFilters is in the order ReadSupportFilterAll registers them; ties in bidding go to the earlier one.
	allFilters = []*filterBidder{
		filterBzip2, filterCompress, filterGzip, filterLzma, filterXz, filterUu, filterRpm, filterLrzip, filterLzop,
		filterGrzip, filterLz4, filterZstd,
	}
)

func externalFilter(name string, bid func([]byte) int, program codec.Program) *filterBidder {
	return &filterBidder{
		name: name,
		bid:  bid,
		newCodec: func(driverOptions) codec.Codec {
			return program
		},
		program: &program,
	}
}

func ReadSupportFilterAll(a *Archive) Status {
	if s := a.check(readMagic, stateNew, "archive_read_support_filter_all"); s != StatusOK {
		return s
	}

	// warnings about external programs are dropped; "all" means as much as possible.
	for _, f := range allFilters {
		if s := supportFilter(a, "archive_read_support_filter_all", f); s == StatusFatal {
			return s
		}
	}

	a.clearError()
	return StatusOK
}

// ReadSupportFilterNone is a no-op: an unfiltered stream is always accepted.
func ReadSupportFilterNone(a *Archive) Status {
	return a.check(readMagic, stateNew, "archive_read_support_filter_none")
}

func ReadSupportFilterBzip2(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_bzip2", filterBzip2)
}

// ReadSupportFilterCompress returns StatusWarn because .Z streams are decoded by an external gzip -d.
func ReadSupportFilterCompress(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_compress", filterCompress)
}

// ReadSupportFilterGrzip returns StatusWarn because grzip streams are decoded by an external grzip -d.
func ReadSupportFilterGrzip(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_grzip", filterGrzip)
}

func ReadSupportFilterGzip(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_gzip", filterGzip)
}

// ReadSupportFilterLrzip returns StatusWarn because lrzip streams are decoded by an external lrzip -d -q.
func ReadSupportFilterLrzip(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_lrzip", filterLrzip)
}

func ReadSupportFilterLz4(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_lz4", filterLz4)
}

func ReadSupportFilterLzma(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_lzma", filterLzma)
}

// ReadSupportFilterLzop returns StatusWarn because lzop streams are decoded by an external lzop -d.
func ReadSupportFilterLzop(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_lzop", filterLzop)
}

func ReadSupportFilterRpm(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_rpm", filterRpm)
}

func ReadSupportFilterUu(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_uu", filterUu)
}

func ReadSupportFilterXz(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_xz", filterXz)
}

func ReadSupportFilterZstd(a *Archive) Status {
	return supportFilter(a, "archive_read_support_filter_zstd", filterZstd)
}

func supportFilter(a *Archive, fn string, f *filterBidder) Status {
	if s := a.check(readMagic, stateNew, fn); s != StatusOK {
		return s
	}

	a.read.addFilter(f)

	if f.program != nil {
		a.setError(ErrnoMisc, "Using external %s program", f.program.Name)
		return StatusWarn
	}

	return StatusOK
}

func bidBzip2(p []byte) int {
	if len(p) < 10 || !bytes.HasPrefix(p, []byte("BZh")) || p[3] < '1' || p[3] > '9' {
		return 0
	}

	// block header magic (pi) or end-of-stream magic (sqrt(pi)) of an empty stream.
	if bytes.Equal(p[4:10], []byte("1AY&SY")) || bytes.Equal(p[4:10], []byte{0x17, 0x72, 0x45, 0x38, 0x50, 0x90}) {
		return 80
	}

	return 0
}

func bidCompress(p []byte) int {
	if len(p) < 3 || p[0] != 0x1f || p[1] != 0x9d {
		return 0
	}

	// reserved bits must be clear and the code width between 9 and 16 bits.
	if p[2]&0x60 != 0 || p[2]&0x1f < 9 || p[2]&0x1f > 16 {
		return 0
	}

	return 18
}

func bidGzip(p []byte) int {
	if len(p) < 10 || p[0] != 0x1f || p[1] != 0x8b || p[2] != 8 || p[3]&0xe0 != 0 {
		return 0
	}

	return 29
}

func bidLzma(p []byte) int {
	if len(p) < 13 || p[0] >= 9*5*5 {
		return 0
	}

	// dictionary size is 2^n or 2^n + 2^(n-1) in every encoder in the wild.
	dict := binary.LittleEndian.Uint32(p[1:5])
	if dict < 1<<12 {
		return 0
	}
	if low := dict & -dict; dict != low && dict != low*3 {
		return 0
	}

	// uncompressed size is either unknown (all ones) or sane.
	if size := binary.LittleEndian.Uint64(p[5:13]); size != ^uint64(0) && bits.Len64(size) > 40 {
		return 0
	}

	if p[0] == 0x5d {
		return 48
	}

	return 40
}

func bidXz(p []byte) int {
	if len(p) < 8 || !bytes.HasPrefix(p, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}) || p[6] != 0 {
		return 0
	}

	return 56
}

func bidUu(p []byte) int {
	for line := range bytes.Lines(p) {
		if bytes.HasPrefix(line, []byte("begin-base64 ")) {
			return 104
		}

		if rest, ok := bytes.CutPrefix(line, []byte("begin ")); ok {
			mode, _, ok := bytes.Cut(rest, []byte(" "))
			if ok && len(mode) >= 3 && len(mode) <= 4 && isOctalDigits(mode) {
				return 48 + 8*len(mode)
			}
		}
	}

	return 0
}

func isOctalDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '7' {
			return false
		}
	}

	return true
}

func bidRpm(p []byte) int {
	if len(p) < 8 || !bytes.HasPrefix(p, []byte{0xed, 0xab, 0xee, 0xdb}) {
		return 0
	}

	// major version 3 or 4, binary (0) or source (1) package.
	if p[4] != 3 && p[4] != 4 || p[6] != 0 || p[7] > 1 {
		return 0
	}

	return 48
}

func bidLrzip(p []byte) int {
	if len(p) < 6 || !bytes.HasPrefix(p, []byte("LRZI")) || p[4] != 0 {
		return 0
	}

	return 40
}

func bidLzop(p []byte) int {
	if !bytes.HasPrefix(p, []byte{0x89, 'L', 'Z', 'O', 0x00, 0x0d, 0x0a, 0x1a, 0x0a}) {
		return 0
	}

	return 72
}

func bidGrzip(p []byte) int {
	if !bytes.HasPrefix(p, []byte{'G', 'R', 'Z', 'i', 'p', 'I', 'I', 0x00, 0x02, 0x04, ':', ')'}) {
		return 0
	}

	return 96
}

func bidLz4(p []byte) int {
	switch {
	case bytes.HasPrefix(p, []byte{0x04, 0x22, 0x4d, 0x18}):
		// frame descriptor version must be 01.
		if len(p) < 5 || p[4]>>6 != 1 {
			return 0
		}
		return 40
	case bytes.HasPrefix(p, []byte{0x02, 0x21, 0x4c, 0x18}):
		return 32
	}

	return 0
}

func bidZstd(p []byte) int {
	if !bytes.HasPrefix(p, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		return 0
	}

	return 32
}
