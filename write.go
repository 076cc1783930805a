package wilayah

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"unicode/utf8"
)

// StatesKey is the store key of the top-level region list.
const StatesKey = "states.json"

// EncodeRecords renders records as an indented JSON array.
//
// The layout matches what the upstream Python tooling produced with
// json.dump(ensure_ascii=False, indent=2): two-space indent, non-ASCII and
// HTML characters written literally, no trailing newline, and [] for an
// empty list.
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// always emits back into literal runes. Other escape sequences are copied
// untouched, so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if rest := b[i+1:]; len(rest) >= 5 && rest[0] == 'u' {
			switch string(rest[1:5]) {
			case "2028":
				out = utf8.AppendRune(out, '\u2028')
				i += 5
				continue
			case "2029":
				out = utf8.AppendRune(out, '\u2029')
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// GroupKey returns the store key for the group of l filed under parent.
func GroupKey(l Level, parent string) string {
	return path.Join(l.Dir(), parent+".json")
}

// WriteStates stores the top-level region list under StatesKey.
func WriteStates(ctx context.Context, store Store, states []Record) error {
	return putRecords(ctx, store, StatesKey, states)
}

// WriteGroup stores one document per parent key of g, in first-seen order.
// It stops at the first failure; documents already stored are left in place.
// The returned count is the number of documents stored.
func WriteGroup(ctx context.Context, store Store, l Level, g *Group) (int, error) {
	written := 0
	for _, key := range g.keys {
		if err := putRecords(ctx, store, GroupKey(l, key), g.records[key]); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// LevelFunc is called before each level is stored with the number of
// documents about to be written for it.
type LevelFunc func(l Level, docs int)

// Write stores the full tree for b: the states list, then the city, district
// and village groups. onLevel, if non-nil, is called before each level. The
// returned map holds the number of documents stored per level, including the
// partial count of a level that failed.
func Write(ctx context.Context, store Store, b *Buckets, onLevel LevelFunc) (map[Level]int, error) {
	counts := make(map[Level]int, len(Levels))
	if onLevel != nil {
		onLevel(Region, 1)
	}
	if err := WriteStates(ctx, store, b.States); err != nil {
		return counts, err
	}
	counts[Region] = 1

	for _, l := range Levels[1:] {
		g := b.Group(l)
		if onLevel != nil {
			onLevel(l, g.Len())
		}
		n, err := WriteGroup(ctx, store, l, g)
		counts[l] = n
		if err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func putRecords(ctx context.Context, store Store, key string, records []Record) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
