package core

import "github.com/shopspring/decimal"

// AggregateEntry is one category line of a summary.
type AggregateEntry struct {
	Category string
	Total    decimal.Decimal
}

// Summary maps categories to summed values and remembers the order in
// which categories were first seen. The zero value is an empty summary.
type Summary struct {
	keys   []string
	totals map[string]decimal.Decimal
}

// Aggregate groups records by exact category string and sums their values.
// It performs no validation and never fails.
func Aggregate(records []Report) Summary {
	s := Summary{totals: make(map[string]decimal.Decimal)}
	for _, r := range records {
		s.add(r.Category, r.Value)
	}
	return s
}

func (s *Summary) add(category string, v decimal.Decimal) {
	cur, ok := s.totals[category]
	if !ok {
		s.keys = append(s.keys, category)
		cur = decimal.Zero
	}
	s.totals[category] = cur.Add(v)
}

func (s Summary) Len() int { return len(s.keys) }

// Categories returns the categories in first-seen order.
func (s Summary) Categories() []string {
	return append([]string(nil), s.keys...)
}

func (s Summary) Total(category string) (decimal.Decimal, bool) {
	v, ok := s.totals[category]
	return v, ok
}

// Entries returns a copy of the summary lines in first-seen order.
func (s Summary) Entries() []AggregateEntry {
	out := make([]AggregateEntry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, AggregateEntry{Category: k, Total: s.totals[k]})
	}
	return out
}

// Map returns the totals keyed by category as decimal strings.
func (s Summary) Map() map[string]string {
	out := make(map[string]string, len(s.keys))
	for _, k := range s.keys {
		out[k] = s.totals[k].String()
	}
	return out
}
