package wilayah

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDump(t testing.TB) string {
	t.Helper()
	b, err := os.ReadFile("testdata/wilayah_sample.sql")
	require.NoError(t, err)
	return string(b)
}

// memStore records every Put, optionally failing on a given key.
type memStore struct {
	keys    []string
	objects map[string][]byte
	failOn  string
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (m *memStore) Driver() Driver { return "memory" }

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	if key == m.failOn {
		return errors.New("disk full")
	}
	m.keys = append(m.keys, key)
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func TestEncodeRecords_Format(t *testing.T) {
	got, err := EncodeRecords([]Record{
		{Code: "11", Value: "ACEH"},
		{Code: "12", Value: "SUMATERA UTARA"},
	})
	require.NoError(t, err)

	want := `[
  {
    "code": "11",
    "value": "ACEH"
  },
  {
    "code": "12",
    "value": "SUMATERA UTARA"
  }
]`
	assert.Equal(t, want, string(got))
}

func TestEncodeRecords_Empty(t *testing.T) {
	for _, in := range [][]Record{nil, {}} {
		got, err := EncodeRecords(in)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(got))
	}
}

func TestEncodeRecords_LiteralCharacters(t *testing.T) {
	got, err := EncodeRecords([]Record{{Code: "11.01.01.2003", Value: `Ulèë Lhèuë <A&B> "Q"`}})
	require.NoError(t, err)

	assert.Contains(t, string(got), `"value": "Ulèë Lhèuë <A&B> \"Q\""`)
	assert.NotContains(t, string(got), `\u00`)
}

func TestEncodeRecords_LineSeparators(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"A\u2028B", "\"value\": \"A\u2028B\""},
		{"A\u2029B", "\"value\": \"A\u2029B\""},
		{`A\u2028B`, `"value": "A\\u2028B"`},
		{"\\\u2028", "\"value\": \"\\\\\u2028\""},
		{"tab\there", `"value": "tab\there"`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := EncodeRecords([]Record{{Code: "11", Value: tt.value}})
			require.NoError(t, err)
			assert.Contains(t, string(got), tt.want)

			var decoded []Record
			require.NoError(t, json.Unmarshal(got, &decoded))
			assert.Equal(t, tt.value, decoded[0].Value)
		})
	}
}

func TestEncodeRecords_RoundTrip(t *testing.T) {
	pairs, _ := Extract(sampleDump(t))
	b := Classify(pairs)

	docs := [][]Record{b.States}
	for _, l := range Levels[1:] {
		for _, key := range b.Group(l).Keys() {
			docs = append(docs, b.Group(l).Records(key))
		}
	}
	for _, records := range docs {
		first, err := EncodeRecords(records)
		require.NoError(t, err)

		var decoded []Record
		require.NoError(t, json.Unmarshal(first, &decoded))
		second, err := EncodeRecords(decoded)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, second), "re-encoded bytes differ:\n%s\n---\n%s", first, second)
	}
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "cities/11.json", GroupKey(City, "11"))
	assert.Equal(t, "districts/11.01.json", GroupKey(District, "11.01"))
	assert.Equal(t, "villages/11.01.01.json", GroupKey(Village, "11.01.01"))
}

func TestWrite_KeysInOrder(t *testing.T) {
	pairs, _ := Extract(sampleDump(t))
	store := newMemStore()
	_, err := Write(context.Background(), store, Classify(pairs), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"states.json",
		"cities/11.json",
		"cities/12.json",
		"districts/11.01.json",
		"villages/11.01.01.json",
	}, store.keys)
}

func TestWrite_CityScenario(t *testing.T) {
	b := Classify([]Pair{{"11.01", "KAB. SIMEULUE"}})
	store := newMemStore()
	_, err := Write(context.Background(), store, b, nil)
	require.NoError(t, err)

	assert.Equal(t, "[]", string(store.objects[StatesKey]))
	assert.JSONEq(t, `[{"code": "11.01", "value": "KAB. SIMEULUE"}]`, string(store.objects["cities/11.json"]))
}

func TestWrite_DistrictScenario(t *testing.T) {
	b := Classify([]Pair{{"11.01.2001", "TEUPAH SELATAN"}})
	store := newMemStore()
	_, err := Write(context.Background(), store, b, nil)
	require.NoError(t, err)

	assert.JSONEq(t, `[{"code": "11.01.2001", "value": "TEUPAH SELATAN"}]`, string(store.objects["districts/11.01.json"]))
}

func TestWrite_ReportsLevels(t *testing.T) {
	pairs, _ := Extract(sampleDump(t))
	store := newMemStore()

	type call struct {
		level Level
		docs  int
	}
	var calls []call
	counts, err := Write(context.Background(), store, Classify(pairs), func(l Level, docs int) {
		calls = append(calls, call{l, docs})
	})
	require.NoError(t, err)
	assert.Equal(t, []call{{Region, 1}, {City, 2}, {District, 1}, {Village, 1}}, calls)
	assert.Equal(t, map[Level]int{Region: 1, City: 2, District: 1, Village: 1}, counts)
}

func TestWrite_PartialCountsOnError(t *testing.T) {
	pairs, _ := Extract(sampleDump(t))
	store := newMemStore()
	store.failOn = "cities/12.json"

	counts, err := Write(context.Background(), store, Classify(pairs), nil)
	require.Error(t, err)
	assert.Equal(t, map[Level]int{Region: 1, City: 1}, counts)
}

func TestWriteGroup_StopsAtFirstError(t *testing.T) {
	b := Classify([]Pair{{"11.01", "A"}, {"12.01", "B"}, {"13.01", "C"}})
	store := newMemStore()
	store.failOn = "cities/12.json"

	n, err := WriteGroup(context.Background(), store, City, b.Cities)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing cities/12.json")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"cities/11.json"}, store.keys)
}

func TestWrite_FilesystemLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	store, err := NewFSStore(root, City.Dir(), District.Dir(), Village.Dir())
	require.NoError(t, err)

	pairs, _ := Extract(sampleDump(t))
	_, err = Write(context.Background(), store, Classify(pairs), nil)
	require.NoError(t, err)

	for _, rel := range []string{
		"states.json",
		"cities/11.json",
		"cities/12.json",
		"districts/11.01.json",
		"villages/11.01.01.json",
	} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	}

	b, err := os.ReadFile(filepath.Join(root, "villages", "11.01.01.json"))
	require.NoError(t, err)
	var villages []Record
	require.NoError(t, json.Unmarshal(b, &villages))
	require.Len(t, villages, 3)
	assert.Equal(t, "Ulèë Lhèuë", villages[2].Value)
}
