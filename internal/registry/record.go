// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"
	"sort"
	"time"
)

// RecordFromMap builds a Record from loosely typed metadata, such as a
// decoded JSON object or a listing entry converted to a map. Missing keys
// are reported together; a present key with the wrong type is reported on
// its own. published may be a string or a time.Time.
func RecordFromMap(m map[string]any) (Record, error) {
	var missing []string
	for _, key := range []string{"arxiv_id", "published", "categories"} {
		if v, ok := m[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Record{}, &MissingFieldError{Fields: missing}
	}

	var rec Record

	id, ok := m["arxiv_id"].(string)
	if !ok {
		return Record{}, &FieldTypeError{Field: "arxiv_id", Want: "string"}
	}
	rec.ArxivID = id

	switch v := m["published"].(type) {
	case string:
		rec.Published = v
	case time.Time:
		rec.Published = v.UTC().Format(time.RFC3339)
	default:
		return Record{}, &FieldTypeError{Field: "published", Want: "ISO 8601 string or timestamp"}
	}

	switch v := m["categories"].(type) {
	case []string:
		rec.Categories = v
	case []any:
		rec.Categories = make([]string, 0, len(v))
		for i, c := range v {
			s, ok := c.(string)
			if !ok {
				return Record{}, &FieldTypeError{Field: fmt.Sprintf("categories[%d]", i), Want: "string"}
			}
			rec.Categories = append(rec.Categories, s)
		}
	default:
		return Record{}, &FieldTypeError{Field: "categories", Want: "list of strings"}
	}

	if _, err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
