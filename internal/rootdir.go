package internal

import (
	"path/filepath"
	"regexp"
	"strings"
)

var sep = regexp.MustCompile(`[\\/]`)

// RootDir is the common root directory of every entry in an archive, with a trailing "/".
type RootDir string

// Join trims the root from the archive path then joins it to base with filepath.Join.
//
// The archive path may use either `/` or `\` as separator.
func (r RootDir) Join(base, path string) string {
	return filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(sep.ReplaceAllString(path, "/"), string(r))))
}

// FindRootDir returns the common root directory of the given archive entry names.
//
// Given these three names:
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory of those files is `test/`. The returned value is empty if the given files have no common
// root directory. Directory entries should be passed with a trailing separator so that a lone top-level directory
// is not mistaken for a file.
func FindRootDir(names []string) (rootDir RootDir) {
	fn := NewRootDirFinder()

	var ok bool
	for _, name := range names {
		rootDir, ok = fn(name)
		if !ok {
			break
		}
	}

	return
}

// NewRootDirFinder returns a function that can be passed the entry names to compute the common root.
//
// NewRootDirFinder is a functional variant of FindRootDir. It returns the current root dir and a boolean indicating
// whether there is a common root so far. As soon as the returned boolean value is false, the search can stop since
// there is no common root and subsequent calls will keep returning `"", false`.
func NewRootDirFinder() func(string) (rootDir RootDir, hasRoot bool) {
	noRoot, root := false, ""

	return func(name string) (RootDir, bool) {
		if noRoot {
			return "", false
		}

		paths := sep.Split(strings.TrimPrefix(name, "./"), 2)
		if len(paths) == 1 || paths[0] == "" {
			// this is a file at top level, or an absolute path, so there is no root for sure.
			noRoot = true
			return "", false
		}

		switch root {
		case paths[0]:
		case "":
			root = paths[0]
		default:
			noRoot = true
			return "", false
		}

		return RootDir(root + "/"), true
	}
}
