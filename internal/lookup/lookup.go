// Package lookup translates keys through string lookup tables, keeping track
// of keys that could not be resolved.
package lookup

import "sort"

// NA is the placeholder emitted for unresolved keys when alignment with the
// input must be preserved.
const NA = "NA"

// Table maps a key (e.g. a gene ID) to a value (e.g. a gene symbol).
type Table map[string]string

// Missing is the set of keys that were not found in a Table.
type Missing map[string]struct{}

// Add records key as missing.
func (m Missing) Add(key string) {
	m[key] = struct{}{}
}

// Has returns true if key was recorded as missing.
func (m Missing) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Len returns the number of distinct missing keys.
func (m Missing) Len() int {
	return len(m)
}

// Merge adds all keys of other to m.
func (m Missing) Merge(other Missing) {
	for k := range other {
		m[k] = struct{}{}
	}
}

// Sorted returns the missing keys in lexical order.
func (m Missing) Sorted() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TranslateOne returns the value stored for key and whether it was found.
func TranslateOne(t Table, key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// TranslateMany translates keys in order.
//
// Keys absent from t are always collected in the returned Missing set. When
// includeNA is false they are left out of the values, so the result is no
// longer positionally aligned with keys. When includeNA is true each of them
// yields NA instead.
func TranslateMany(t Table, keys []string, includeNA bool) ([]string, Missing) {
	values := make([]string, 0, len(keys))
	missing := make(Missing)

	for _, key := range keys {
		if v, ok := t[key]; ok {
			values = append(values, v)
			continue
		}
		if includeNA {
			values = append(values, NA)
		}
		missing.Add(key)
	}

	return values, missing
}
