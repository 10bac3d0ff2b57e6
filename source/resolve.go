package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// ErrNoMatch is returned when an input pattern matches no file.
var ErrNoMatch = errors.New("no input matches pattern")

// Resolve expands an input path. A plain path must exist and is returned
// as-is; a pattern with glob characters (including **) is expanded and the
// matching files are returned sorted.
func Resolve(pattern string) ([]string, error) {
	if !ContainsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "stat input %s", pattern),
				"check source.path in the configuration")
		}
		if info.IsDir() {
			return nil, errors.Newf("input %s is a directory", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "glob %s", pattern)
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoMatch, "%s", pattern)
	}

	sort.Strings(files)
	return files, nil
}

// ContainsGlob reports whether pattern contains glob metacharacters.
func ContainsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Matches reports whether path is selected by pattern. Plain paths compare
// after cleaning; patterns use doublestar semantics.
func Matches(pattern, path string) bool {
	if !ContainsGlob(pattern) {
		return filepath.Clean(pattern) == filepath.Clean(path)
	}
	ok, err := doublestar.PathMatch(filepath.Clean(pattern), filepath.Clean(path))
	return err == nil && ok
}
