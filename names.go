// 8.3 short-name normalization and matching.

package fat32

import (
	"strings"
)

const (
	shortNameLength     = 11
	shortNameBaseLength = 8
	shortNameExtLength  = 3
)

// NormalizeShortName builds the 11-byte on-disk form of a user-supplied 8.3
// name: the basename space-padded to eight bytes followed by the extension
// space-padded to three, all ASCII-uppercased. Both halves are truncated to
// their field widths. Non-ASCII bytes pass through unchanged.
func NormalizeShortName(name string) (normalized [shortNameLength]byte) {
	for i := 0; i < shortNameLength; i++ {
		normalized[i] = ' '
	}

	base := name
	ext := ""

	if dotAt := strings.IndexByte(name, '.'); dotAt >= 0 {
		base = name[:dotAt]
		ext = name[dotAt+1:]
	}

	if len(base) > shortNameBaseLength {
		base = base[:shortNameBaseLength]
	}

	if len(ext) > shortNameExtLength {
		ext = ext[:shortNameExtLength]
	}

	copy(normalized[:shortNameBaseLength], base)
	copy(normalized[shortNameBaseLength:], ext)

	for i, c := range normalized {
		if c >= 'a' && c <= 'z' {
			normalized[i] = c - ('a' - 'A')
		}
	}

	return normalized
}

// ShortNameMatches compares a user-supplied name against a raw 11-byte
// on-disk name field. A name beginning with ".." matches the ".." entry
// only; everything else is normalized and compared byte-for-byte, which
// makes the match case-insensitive on ASCII letters.
func ShortNameMatches(name string, rawName [shortNameLength]byte) bool {
	if strings.HasPrefix(name, "..") == true {
		return rawName[0] == '.' && rawName[1] == '.'
	}

	return NormalizeShortName(name) == rawName
}

// DisplayShortName renders a raw 11-byte name field as "BASE.EXT" for
// human-readable listings. The tombstone marker, if present, is kept.
func DisplayShortName(rawName [shortNameLength]byte) string {
	base := asciiFromPadded(rawName[:shortNameBaseLength])
	ext := asciiFromPadded(rawName[shortNameBaseLength:])

	if ext == "" {
		return base
	}

	return base + "." + ext
}
