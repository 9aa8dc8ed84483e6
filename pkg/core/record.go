// pkg/core/record.go
package core

import (
	"sort"
	"strconv"
)

// Record is the host-owned key/value persistence record of one part module.
// Values are stored as strings the way the host save format keeps them.
type Record map[string]string

// SetFloat stores v with the shortest representation that round-trips exactly.
func (r Record) SetFloat(key string, v float64) {
	r[key] = strconv.FormatFloat(v, 'g', -1, 64)
}

// SetBool stores v as "True"/"False".
func (r Record) SetBool(key string, v bool) {
	if v {
		r[key] = "True"
		return
	}
	r[key] = "False"
}

// Lookup returns the raw value and whether the key exists.
func (r Record) Lookup(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
