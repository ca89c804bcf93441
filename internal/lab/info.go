package lab

import (
	"slices"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// Field is one entry of a form-like region. Missing marks a label whose value cell
// was blank.
type Field struct {
	Key     string
	Label   string
	Value   sheetrange.Value
	Missing bool
	Row     int
}

// Info is the content of a key-value region such as the submission form or the PCR
// run summary.
type Info struct {
	Region string
	Fields []Field
}

// InfoFromResult converts a key-value parse result. Later duplicates of a key win.
func InfoFromResult(res layout.Result) Info {
	info := Info{Region: res.Region}
	for _, p := range res.Pairs {
		f := Field{Key: p.Key, Label: p.Label, Value: p.Value, Missing: p.Value.IsEmpty(), Row: p.Row}
		if i := slices.IndexFunc(info.Fields, func(x Field) bool { return x.Key == p.Key }); i >= 0 {
			info.Fields[i] = f
			continue
		}
		info.Fields = append(info.Fields, f)
	}
	return info
}

func (i Info) Get(key string) (sheetrange.Value, bool) {
	for _, f := range i.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return sheetrange.Value{}, false
}

func (i Info) Text(key string) string {
	v, _ := i.Get(key)
	return v.String()
}

// Set adds or replaces a field.
func (i *Info) Set(key string, v sheetrange.Value) {
	for n := range i.Fields {
		if i.Fields[n].Key == key {
			i.Fields[n].Value = v
			i.Fields[n].Missing = v.IsEmpty()
			return
		}
	}
	i.Fields = append(i.Fields, Field{Key: key, Label: sheetrange.Prettify(key), Value: v, Missing: v.IsEmpty()})
}

// MissingKeys lists the fields whose value cell was blank.
func (i Info) MissingKeys() []string {
	var out []string
	for _, f := range i.Fields {
		if f.Missing {
			out = append(out, f.Key)
		}
	}
	return out
}

// Record flattens the info for a key-value writer, leaving out excluded keys.
func (i Info) Record(exclude ...string) *sheetrange.Record {
	rec := sheetrange.NewRecord()
	for _, f := range i.Fields {
		if slices.Contains(exclude, f.Key) {
			continue
		}
		rec.Set(f.Key, f.Value)
	}
	return rec
}
