package wilayah

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the depth of an administrative code in the hierarchy.
// It is derived from the number of dot separators in the code.
type Level int

const (
	Region   Level = iota // province (provinsi), e.g. "11"
	City                  // regency or city (kabupaten/kota), e.g. "11.01"
	District              // district (kecamatan), e.g. "11.01.01"
	Village               // village (kelurahan/desa), e.g. "11.01.01.2001"
)

// Levels lists every level in hierarchy order.
var Levels = []Level{Region, City, District, Village}

var levelNames = [...]string{"state", "city", "district", "village"}

// levelDirs holds the output directory of each grouped level.
// Region records are not grouped and live in a single file at the root.
var levelDirs = [...]string{"", "cities", "districts", "villages"}

// ErrUnsupportedLevel is returned for codes that do not fit the four-level model:
// more than three dots, or an empty segment (".11", "11.", "11..01").
var ErrUnsupportedLevel = errors.New("wilayah: code outside the four-level hierarchy")

func (l Level) valid() bool { return l >= Region && l <= Village }

func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Dir returns the output directory for records grouped at this level.
func (l Level) Dir() string {
	if !l.valid() {
		return ""
	}
	return levelDirs[l]
}

// LevelOf returns the hierarchy level of code.
func LevelOf(code string) (Level, error) {
	segments := strings.Split(code, ".")
	if len(segments) > len(Levels) {
		return 0, fmt.Errorf("%w: %q has %d segments", ErrUnsupportedLevel, code, len(segments))
	}
	for _, s := range segments {
		if s == "" {
			return 0, fmt.Errorf("%w: %q has an empty segment", ErrUnsupportedLevel, code)
		}
	}
	return Level(len(segments) - 1), nil
}

// ParentKey returns code truncated to the segment count of its parent level.
// Region codes have no parent and yield "".
func ParentKey(code string, l Level) string {
	if l == Region {
		return ""
	}
	if i := strings.LastIndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return ""
}
