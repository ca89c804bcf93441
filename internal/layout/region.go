package layout

import (
	"fmt"

	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// Result holds whatever a region produced: pairs and a record for key-value regions,
// records (and groups when configured) for tables. Ungrouped holds the rows of a
// grouped region whose entity cell was blank.
type Result struct {
	Region    string
	Kind      Kind
	Pairs     []sheetrange.Pair
	Record    *sheetrange.Record
	Records   []*sheetrange.Record
	Groups    []sheetrange.Group
	Ungrouped []*sheetrange.Record
}

// Len is the number of records or pairs the region produced.
func (r Result) Len() int {
	if r.Kind == KeyValue {
		return len(r.Pairs)
	}
	return len(r.Records)
}

func (r Region) readerOptions(extra []sheetrange.Option) []sheetrange.Option {
	var opts []sheetrange.Option
	if r.SkipBlankRows {
		opts = append(opts, sheetrange.SkipBlankRows())
	}
	return append(opts, extra...)
}

func (r Region) writerOptions(extra []sheetrange.Option) []sheetrange.Option {
	var opts []sheetrange.Option
	if len(r.Protocol) > 0 {
		opts = append(opts, sheetrange.WithProtocolColumns(r.Protocol...))
	}
	if len(r.SkipColumns) > 0 {
		opts = append(opts, sheetrange.WithSkipColumns(r.SkipColumns...))
	}
	if r.Slots > 0 {
		opts = append(opts, sheetrange.WithSlots(r.Slots, r.SlotField))
	}
	return append(opts, extra...)
}

// Parse reads the region from wb. The region is validated before any cell is read.
func (r Region) Parse(wb *sheetrange.Workbook, opts ...sheetrange.Option) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if err := r.bound(); err != nil {
		return Result{}, fmt.Errorf("region %s: %w", r.Name, err)
	}
	res := Result{Region: r.Name, Kind: r.Kind}
	opts = r.readerOptions(opts)

	if r.Kind == KeyValue {
		p, err := sheetrange.NewKeyValueParser(r.Ranges, opts...)
		if err != nil {
			return Result{}, err
		}
		res.Record = sheetrange.NewRecord()
		for pair, err := range p.Pairs(wb) {
			if err != nil {
				return Result{}, fmt.Errorf("region %s: %w", r.Name, err)
			}
			res.Pairs = append(res.Pairs, pair)
			res.Record.Set(pair.Key, pair.Value)
		}
		return res, nil
	}

	for _, rng := range r.Ranges {
		p, err := sheetrange.NewTableParser(rng, opts...)
		if err != nil {
			return Result{}, err
		}
		recs, err := p.Parse(wb)
		if err != nil {
			return Result{}, fmt.Errorf("region %s: %w", r.Name, err)
		}
		res.Records = append(res.Records, recs...)
	}
	if r.GroupBy != nil {
		res.Groups, res.Ungrouped = sheetrange.GroupBy(res.Records, r.GroupBy.Entity, r.GroupBy.Member)
	}
	return res, nil
}

// WriteRecord writes a single record into a key-value region.
func (r Region) WriteRecord(wb *sheetrange.Workbook, rec *sheetrange.Record, opts ...sheetrange.Option) error {
	if r.Kind != KeyValue {
		return fmt.Errorf("%w: region %s is a %s region", sheetrange.ErrInvalidRange, r.Name, r.Kind)
	}
	if err := r.bound(); err != nil {
		return fmt.Errorf("region %s: %w", r.Name, err)
	}
	w, err := sheetrange.NewKeyValueWriter(r.Ranges, r.writerOptions(opts)...)
	if err != nil {
		return err
	}
	if err := w.Write(wb, rec); err != nil {
		return fmt.Errorf("region %s: %w", r.Name, err)
	}
	return nil
}

// WriteRecords writes rows into every range of a table region.
func (r Region) WriteRecords(wb *sheetrange.Workbook, records []*sheetrange.Record, opts ...sheetrange.Option) error {
	if r.Kind != Table {
		return fmt.Errorf("%w: region %s is a %s region", sheetrange.ErrInvalidRange, r.Name, r.Kind)
	}
	if err := r.bound(); err != nil {
		return fmt.Errorf("region %s: %w", r.Name, err)
	}
	for _, rng := range r.Ranges {
		w, err := sheetrange.NewTableWriter(rng, r.writerOptions(opts)...)
		if err != nil {
			return err
		}
		if err := w.Write(wb, records); err != nil {
			return fmt.Errorf("region %s: %w", r.Name, err)
		}
	}
	return nil
}

// Write puts a parse result back, dispatching on the region kind. Grouped results
// are flattened first.
func (r Region) Write(wb *sheetrange.Workbook, res Result, opts ...sheetrange.Option) error {
	if r.Kind == KeyValue {
		rec := res.Record
		if rec == nil {
			rec = sheetrange.NewRecord()
		}
		return r.WriteRecord(wb, rec, opts...)
	}
	records := res.Records
	if len(records) == 0 && len(res.Groups) > 0 && r.GroupBy != nil {
		records = sheetrange.Flatten(res.Groups, r.GroupBy.Entity, r.GroupBy.Member)
	}
	return r.WriteRecords(wb, records, opts...)
}
