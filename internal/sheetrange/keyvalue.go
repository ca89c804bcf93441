package sheetrange

import (
	"fmt"
	"iter"
	"strings"
)

// Pair is one label/value row of a key-value region.
type Pair struct {
	Sheet string
	Row   int
	Label string
	Key   string
	Value Value
}

// KeyValueParser reads form-like regions: one label/value pair per row at fixed
// columns.
type KeyValueParser struct {
	ranges []Range
	cfg    settings
}

// NewKeyValueParser validates every range before any cell is read.
func NewKeyValueParser(ranges []Range, opts ...Option) (*KeyValueParser, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no ranges given", ErrInvalidRange)
	}
	for _, r := range ranges {
		if err := r.ValidateKeyValue(); err != nil {
			return nil, err
		}
	}
	return &KeyValueParser{ranges: append([]Range(nil), ranges...), cfg: newSettings(opts)}, nil
}

func (p *KeyValueParser) Ranges() []Range {
	return append([]Range(nil), p.ranges...)
}

// Pairs lazily yields the label/value pairs of every range in row order. Rows with a
// blank label are skipped. Iteration stops after the first error.
func (p *KeyValueParser) Pairs(wb *Workbook) iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		for _, r := range p.ranges {
			ws, err := wb.Sheet(r.Sheet)
			if err != nil {
				yield(Pair{}, err)
				return
			}
			p.cfg.logger.Debug("reading key-value range", "range", r.String())
			for row := r.StartRow; row <= r.EndRow; row++ {
				label, err := ws.Cell(row, r.KeyColumn)
				if err != nil {
					yield(Pair{}, err)
					return
				}
				if label.IsEmpty() {
					continue
				}
				value, err := ws.Cell(row, r.ValueColumn)
				if err != nil {
					yield(Pair{}, err)
					return
				}
				text := strings.TrimSpace(label.String())
				pair := Pair{Sheet: r.Sheet, Row: row, Label: text, Key: p.cfg.keyName(text), Value: value}
				if !yield(pair, nil) {
					return
				}
			}
		}
	}
}

// Parse collects every pair into a record; a repeated key keeps the last value.
func (p *KeyValueParser) Parse(wb *Workbook) (*Record, error) {
	rec := NewRecord()
	for pair, err := range p.Pairs(wb) {
		if err != nil {
			return nil, err
		}
		rec.Set(pair.Key, pair.Value)
	}
	return rec, nil
}
