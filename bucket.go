package wilayah

// Record is an administrative region name paired with its code.
type Record struct {
	Code  string `json:"code"`
	Value string `json:"value"`
	Level Level  `json:"-"`
}

// Group maps parent codes to their child records.
// Keys iterate in the order they were first seen and records keep discovery
// order; nothing is sorted or deduplicated.
type Group struct {
	keys    []string
	records map[string][]Record
}

func newGroup() *Group {
	return &Group{records: make(map[string][]Record)}
}

func (g *Group) add(key string, r Record) {
	if _, ok := g.records[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.records[key] = append(g.records[key], r)
}

// Keys returns the parent codes in first-seen order.
func (g *Group) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Records returns the children filed under key.
func (g *Group) Records(key string) []Record {
	return g.records[key]
}

// Len returns the number of parent keys, which is the number of files the
// group produces.
func (g *Group) Len() int {
	return len(g.keys)
}

// Buckets is the result of classifying one dump: the flat list of top-level
// regions plus one Group per lower level.
type Buckets struct {
	States    []Record
	Cities    *Group // keyed by state code
	Districts *Group // keyed by city code
	Villages  *Group // keyed by district code

	// Rejected holds numeric codes that fit no level (see ErrUnsupportedLevel).
	Rejected []Pair
}

// Group returns the grouping for l, or nil for Region.
func (b *Buckets) Group(l Level) *Group {
	switch l {
	case City:
		return b.Cities
	case District:
		return b.Districts
	case Village:
		return b.Villages
	}
	return nil
}

// Classify derives the level of every pair and files it under its parent code.
// Parents are matched by string prefix only; a child whose parent never appears
// in the dump still gets its own group.
func Classify(pairs []Pair) *Buckets {
	b := &Buckets{
		Cities:    newGroup(),
		Districts: newGroup(),
		Villages:  newGroup(),
	}
	for _, p := range pairs {
		l, err := LevelOf(p.Code)
		if err != nil {
			b.Rejected = append(b.Rejected, p)
			continue
		}
		r := Record{Code: p.Code, Value: p.Value, Level: l}
		if l == Region {
			b.States = append(b.States, r)
			continue
		}
		b.Group(l).add(ParentKey(p.Code, l), r)
	}
	return b
}
