package util

import "path/filepath"

// StemAndExt is a variant of filepath.Ext that allows extended extension to be detected while also returning the stem.
//
// For example, `filepath.Ext("file.tar.gz")` would return ".gz", but `StemAndExt("file.tar.gz")` would return ".tar.gz"
// for the extension, "file" for the stem. Extraction uses the stem to name the output directory so that "file.tar.gz"
// is extracted into "file" rather than "file.tar".
//
// Each extension component is limited to 6 characters so that dots in ordinary names ("v1.2-release") are mostly left
// alone.
func StemAndExt(path string) (stem, ext string) {
	base := filepath.Base(path)

	for {
		i := len(base) - 1
		for j := max(0, i-6); i >= j && base[i] != '.'; i-- {
		}

		if i <= 0 || i < len(base)-7 {
			return base, ext
		}

		ext = base[i:] + ext
		base = base[:i]
	}
}
