package record

import "strings"

// SearchByTitle filters records to those whose title contains query,
// case-insensitively. It preserves the input order and does not touch
// the underlying store. An empty query matches everything.
func SearchByTitle(records []Record, query string) []Record {
	q := strings.ToLower(query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), q) {
			out = append(out, r)
		}
	}
	return out
}
