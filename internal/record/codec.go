package record

import (
	"encoding/json"
	"fmt"
)

// encode serializes a record to its stored form.
func encode(r Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("record: encode %s: %w", r.ID, err)
	}
	return string(data), nil
}

// decode parses a stored value back into a record. A value that fails to
// parse, or that parses to a record with an empty id, is reported via
// ok=false; callers treat such entries as absent rather than erroring,
// so one damaged entry never blocks the rest.
func decode(value string) (Record, bool) {
	var r Record
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return Record{}, false
	}
	if r.ID == "" {
		return Record{}, false
	}
	return r, true
}
