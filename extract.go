package wilayah

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// Pair is a raw (code, value) match from the dump, before classification.
type Pair struct {
	Code  string
	Value string
}

// pairRegex matches a two-column VALUES tuple such as ('11.01','KAB. SIMEULUE').
// Neither column may contain a single quote, so SQL-escaped quotes inside a
// name ('O''ATA' or 'O\'ATA') end the match early and the row is lost.
var pairRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`\('([^']+)','([^']+)'\)`)
})

// Extract scans text for every non-overlapping ('<code>','<value>') tuple.
// Both columns are trimmed of surrounding whitespace. Tuples whose code is not
// made of ASCII digits once the dots are removed are dropped and counted in
// skipped; nothing else about the surrounding SQL is checked, so a matching
// tuple in a comment is extracted like any data row.
func Extract(text string) (pairs []Pair, skipped int) {
	for _, m := range pairRegex().FindAllStringSubmatch(text, -1) {
		code := strings.TrimSpace(m[1])
		if !isNumericCode(code) {
			skipped++
			continue
		}
		pairs = append(pairs, Pair{Code: code, Value: strings.TrimSpace(m[2])})
	}
	return pairs, skipped
}

// ErrInvalidUTF8 is returned by ExtractReader for content that is not UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// ExtractReader reads r to the end and extracts pairs from its content, which
// must be valid UTF-8.
func ExtractReader(r io.Reader) ([]Pair, int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if off := invalidUTF8Offset(b); off >= 0 {
		return nil, 0, fmt.Errorf("%w at byte %d", ErrInvalidUTF8, off)
	}
	pairs, skipped := Extract(string(b))
	return pairs, skipped, nil
}

// invalidUTF8Offset returns the offset of the first byte that does not start
// a valid UTF-8 sequence, or -1.
func invalidUTF8Offset(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for off := 0; off < len(b); {
		r, size := utf8.DecodeRune(b[off:])
		if r == utf8.RuneError && size == 1 {
			return off
		}
		off += size
	}
	return -1
}

// isNumericCode reports whether code, with dots removed, is a non-empty run of
// ASCII digits.
func isNumericCode(code string) bool {
	digits := 0
	for i := 0; i < len(code); i++ {
		switch c := code[i]; {
		case c == '.':
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}
