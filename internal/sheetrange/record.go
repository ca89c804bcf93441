package sheetrange

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Record is an ordered mapping of field name to cell value.
type Record struct {
	keys   []string
	values map[string]Value
	// Row is the worksheet row the record was read from, zero for records built in code.
	Row int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// RecordOf builds a record from alternating key/value arguments.
func RecordOf(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		r.Set(k, Of(kv[i+1]))
	}
	return r
}

// Set stores v under key, keeping the position of an existing key.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the stored value or an empty one.
func (r *Record) Value(key string) Value {
	v, _ := r.Get(key)
	return v
}

// Text returns the stringified value of key.
func (r *Record) Text(key string) string {
	return r.Value(key).String()
}

func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Rename moves the value of from to to, keeping its position.
func (r *Record) Rename(from, to string) {
	v, ok := r.values[from]
	if !ok || from == to {
		return
	}
	if _, exists := r.values[to]; exists {
		r.Delete(to)
	}
	for i, k := range r.keys {
		if k == from {
			r.keys[i] = to
			break
		}
	}
	delete(r.values, from)
	r.values[to] = v
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Blank reports whether every field is empty.
func (r *Record) Blank() bool {
	for _, v := range r.values {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

func (r *Record) Clone() *Record {
	c := &Record{Row: r.Row, keys: r.Keys(), values: make(map[string]Value, len(r.values))}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Equal compares field-for-field ignoring key order; an absent field equals an
// empty one.
func (r *Record) Equal(o *Record) bool {
	seen := make(map[string]struct{}, r.Len()+o.Len())
	for _, k := range r.Keys() {
		seen[k] = struct{}{}
	}
	for _, k := range o.Keys() {
		seen[k] = struct{}{}
	}
	for k := range seen {
		if !r.Value(k).Equal(o.Value(k)) {
			return false
		}
	}
	return true
}

// Map returns the record as a plain map for hand-off to persistence code.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for _, k := range r.keys {
		v := r.values[k]
		if v.IsEmpty() {
			out[k] = nil
			continue
		}
		out[k] = v.Any()
	}
	return out
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnionKeys returns every key seen across records, sorted.
func UnionKeys(records []*Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, k := range r.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
