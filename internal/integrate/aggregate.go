package integrate

import (
	"time"
)

// Aggregator folds extracted tuples into an in-memory map keyed by identity
// key. The whole aggregation result lives in memory for the duration of a
// rebuild; key order is insertion order so output is deterministic.
//
// Examples are deduplicated by content pair (original text + translation),
// not by contributing record id: two records with the same sentence add one
// example, one record with two different sentences adds two.
type Aggregator struct {
	kind  Kind
	items map[string]*Aggregate
	seen  map[string]map[string]bool // key -> example content keys
	order []string
}

// NewAggregator creates an empty Aggregator for the given kind.
func NewAggregator(kind Kind) *Aggregator {
	return &Aggregator{
		kind:  kind,
		items: make(map[string]*Aggregate),
		seen:  make(map[string]map[string]bool),
	}
}

// Add folds one tuple in. Tuples of the wrong kind or with an empty key are
// ignored.
func (a *Aggregator) Add(t Tuple) {
	if t.Kind != a.kind || t.Key == "" {
		return
	}

	agg, ok := a.items[t.Key]
	if !ok {
		agg = a.newAggregate(t)
		a.items[t.Key] = agg
		a.seen[t.Key] = make(map[string]bool)
		a.order = append(a.order, t.Key)
	} else {
		a.reconcile(agg, t)
	}

	contentKey := t.Example.ContentKey()
	if a.seen[t.Key][contentKey] {
		return
	}
	a.seen[t.Key][contentKey] = true

	agg.Examples = append(agg.Examples, t.Example)
	agg.Sources = append(agg.Sources, t.RecordID)
	agg.Occurrences = len(agg.Examples)
}

// newAggregate seeds an aggregate from the first tuple for a key.
func (a *Aggregator) newAggregate(t Tuple) *Aggregate {
	seen := t.RecordTime
	if seen.IsZero() {
		seen = time.Now().UTC()
	}

	agg := &Aggregate{
		Key:       t.Key,
		FirstSeen: seen,
		LastSeen:  seen,
	}
	if a.kind == KindStructure {
		agg.StructureType = t.StructureType
		agg.Category = StructureCategory(t.Key)
		agg.Difficulty = StructureDifficulty(t.Key)
	} else {
		agg.Romaji = t.Romaji
		agg.Meaning = t.Meaning
		agg.Category = WordCategory(t.Key)
	}
	return agg
}

// reconcile updates an existing aggregate with a later tuple. First-seen
// wins for romaji/meaning, but empty fields are backfilled. Timestamps
// widen to cover the incoming record.
func (a *Aggregator) reconcile(agg *Aggregate, t Tuple) {
	if agg.Romaji == "" {
		agg.Romaji = t.Romaji
	}
	if agg.Meaning == "" {
		agg.Meaning = t.Meaning
	}

	if !t.RecordTime.IsZero() {
		if t.RecordTime.Before(agg.FirstSeen) {
			agg.FirstSeen = t.RecordTime
		}
		if t.RecordTime.After(agg.LastSeen) {
			agg.LastSeen = t.RecordTime
		}
	}
}

// Aggregates returns all aggregates in first-seen key order.
func (a *Aggregator) Aggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.items[key])
	}
	return out
}

// Get returns the aggregate for a key, or nil.
func (a *Aggregator) Get(key string) *Aggregate {
	return a.items[key]
}

// Len returns the number of distinct keys.
func (a *Aggregator) Len() int {
	return len(a.items)
}
