// Package layout describes where records live in lab workbooks.
//
// A Region binds a name to one or more ranges plus the options its reader and
// writer need, so every record type goes through the same generic parser and
// writer in sheetrange. Built-in regions come from Defaults; a YAML file can
// override or extend them.
package layout

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/nconklindev/labsheets/internal/sheetrange"

	"gopkg.in/yaml.v3"
)

var ErrUnknownRegion = errors.New("unknown region")

type Kind string

const (
	KeyValue Kind = "keyvalue"
	Table    Kind = "table"
)

// Grouping regroups table rows by an entity field, one member per row.
type Grouping struct {
	Entity string `yaml:"entity"`
	Member string `yaml:"member"`
}

type Region struct {
	Name          string             `yaml:"name"`
	Kind          Kind               `yaml:"kind"`
	Ranges        []sheetrange.Range `yaml:"ranges"`
	GroupBy       *Grouping          `yaml:"group_by,omitempty"`
	Protocol      []string           `yaml:"protocol,omitempty"`
	SkipColumns   []string           `yaml:"skip_columns,omitempty"`
	Slots         int                `yaml:"slots,omitempty"`
	SlotField     string             `yaml:"slot_field,omitempty"`
	SkipBlankRows bool               `yaml:"skip_blank_rows,omitempty"`
}

type Layout struct {
	Regions []Region `yaml:"regions"`
}

// Validate checks the region shape and every range for its kind.
func (r Region) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: region without a name", sheetrange.ErrInvalidRange)
	}
	if len(r.Ranges) == 0 {
		return fmt.Errorf("%w: region %s has no ranges", sheetrange.ErrInvalidRange, r.Name)
	}
	for _, rng := range r.Ranges {
		var err error
		switch r.Kind {
		case KeyValue:
			err = rng.ValidateKeyValue()
		case Table:
			err = rng.ValidateTable()
		default:
			return fmt.Errorf("%w: region %s has kind %q", sheetrange.ErrInvalidRange, r.Name, r.Kind)
		}
		if err != nil {
			return fmt.Errorf("region %s: %w", r.Name, err)
		}
	}
	if r.GroupBy != nil && (r.GroupBy.Entity == "" || r.GroupBy.Member == "") {
		return fmt.Errorf("%w: region %s group_by needs entity and member", sheetrange.ErrInvalidRange, r.Name)
	}
	return nil
}

// bound fails when a sheet name still carries a {placeholder}.
func (r Region) bound() error {
	for _, rng := range r.Ranges {
		if strings.ContainsAny(rng.Sheet, "{}") {
			return &sheetrange.ConfigError{Range: rng, Field: "sheet", Reason: "has an unbound placeholder"}
		}
	}
	return nil
}

// Bind returns a copy whose sheet names have {key} replaced by vars[key].
func (r Region) Bind(vars map[string]string) Region {
	out := r
	out.Ranges = make([]sheetrange.Range, len(r.Ranges))
	for i, rng := range r.Ranges {
		for k, v := range vars {
			rng.Sheet = strings.ReplaceAll(rng.Sheet, "{"+k+"}", v)
		}
		out.Ranges[i] = rng
	}
	return out
}

// Region looks a region up by name.
func (l Layout) Region(name string) (Region, error) {
	for _, r := range l.Regions {
		if r.Name == name {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
}

// Select returns the named regions in the order given.
func (l Layout) Select(names ...string) ([]Region, error) {
	out := make([]Region, 0, len(names))
	for _, n := range names {
		r, err := l.Region(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (l Layout) Names() []string {
	names := make([]string, len(l.Regions))
	for i, r := range l.Regions {
		names[i] = r.Name
	}
	return names
}

// Bind applies Region.Bind to every region.
func (l Layout) Bind(vars map[string]string) Layout {
	out := Layout{Regions: make([]Region, len(l.Regions))}
	for i, r := range l.Regions {
		out.Regions[i] = r.Bind(vars)
	}
	return out
}

// Merge replaces regions of l with same-named regions of o and appends the rest.
func (l Layout) Merge(o Layout) Layout {
	out := Layout{Regions: slices.Clone(l.Regions)}
	for _, r := range o.Regions {
		i := slices.IndexFunc(out.Regions, func(x Region) bool { return x.Name == r.Name })
		if i >= 0 {
			out.Regions[i] = r
			continue
		}
		out.Regions = append(out.Regions, r)
	}
	return out
}

// Validate checks every region and rejects duplicate names.
func (l Layout) Validate() error {
	seen := make(map[string]bool)
	for _, r := range l.Regions {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: region %s defined twice", sheetrange.ErrInvalidRange, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Load reads a YAML layout from path and merges it over Defaults. An empty path
// returns the defaults.
func Load(path string) (Layout, error) {
	base := Defaults()
	if path == "" {
		return base, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()

	var custom Layout
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&custom); err != nil {
		return Layout{}, fmt.Errorf("decode layout %s: %w", path, err)
	}
	merged := base.Merge(custom)
	if err := merged.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return merged, nil
}
