package env

import (
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Separator is the site-specific token that splits a release tag into a
// module half and a site-fix half, e.g. "4-5dls1-3".
const Separator = "dls"

// keyPairs is the fixed length of a ReleaseKey: two halves of three
// (number, suffix) pairs each.
const keyPairs = 6

var (
	strictTagRe = regexp.MustCompile(`^[0-9\-]*(dls)*[0-9\-]*$`)
	leadDigitRe = regexp.MustCompile(`^\d+`)
)

// ReleasePart is one (number, suffix) component of a normalized release tag.
// A bare number gets the suffix "z" so that pre-release suffixes such as
// "alpha" or "beta2" sort before it.
type ReleasePart struct {
	Num    int
	Suffix string
}

// ReleaseKey is the normalized, orderable form of a release tag.
type ReleaseKey []ReleasePart

// NormalizeRelease converts a release tag into a fixed-width orderable key.
//
// The tag is first split at the site separator, then each half is split into
// up to four dash-separated components ("." and "_" are treated as dashes).
// A component starting with digits becomes (digits, suffix); a missing
// suffix becomes the sentinel "z", which sorts after any textual pre-release
// suffix. Purely textual components become (0, text). Both halves are padded
// so keys of different tags stay comparable:
//
//	4-5beta2dls1-3 => (4,"z") (5,"beta2") (0,"") (1,"z") (3,"z") (0,"")
func NormalizeRelease(tag string) ReleaseKey {
	key := make(ReleaseKey, 0, keyPairs)
	for _, half := range strings.SplitN(tag, Separator, 2) {
		half = strings.ReplaceAll(half, ".", "-")
		half = strings.ReplaceAll(half, "_", "-")
		for _, part := range strings.SplitN(half, "-", 4) {
			if digits := leadDigitRe.FindString(part); digits != "" {
				n, _ := strconv.Atoi(digits)
				suffix := part[len(digits):]
				if suffix == "" {
					suffix = "z"
				}
				key = append(key, ReleasePart{Num: n, Suffix: suffix})
			} else {
				key = append(key, ReleasePart{Num: 0, Suffix: part})
			}
		}
		// pad this half to three pairs
		for len(key) < keyPairs/2 {
			key = append(key, ReleasePart{})
		}
	}
	for len(key) < keyPairs {
		key = append(key, ReleasePart{})
	}
	return key
}

// Compare compares two keys part by part, treating a missing part as the
// zero part. Returns -1, 0 or 1.
func (k ReleaseKey) Compare(other ReleaseKey) int {
	n := max(len(k), len(other))
	for i := 0; i < n; i++ {
		var a, b ReleasePart
		if i < len(k) {
			a = k[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if a.Num != b.Num {
			if a.Num < b.Num {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Suffix, b.Suffix); c != 0 {
			return c
		}
	}
	return 0
}

// CompareReleases orders two release tags by their normalized keys.
func CompareReleases(a, b string) int {
	return NormalizeRelease(a).Compare(NormalizeRelease(b))
}

// SortReleases sorts paths ascending by the release tag forming each path's
// final segment. The sort is stable.
func SortReleases(paths []string) []string {
	sorted := slices.Clone(paths)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return CompareReleases(releaseOf(a), releaseOf(b))
	})
	return sorted
}

// releaseOf returns the final segment of a path, assumed to be its release
// tag.
func releaseOf(path string) string {
	return filepath.Base(filepath.Clean(path))
}

// IsStrictTag reports whether tag matches the site's canonical release tag
// grammar: digits and dashes, optionally embedding the site separator.
func IsStrictTag(tag string) bool {
	return strictTagRe.MatchString(tag)
}
