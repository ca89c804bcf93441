package sheetrange

import (
	"fmt"
	"iter"

	"github.com/xuri/excelize/v2"
)

// Column maps a header cell to its field name.
type Column struct {
	Index int
	Label string
	Field string
}

// TableParser reads header-defined tables: one record per row below the header.
type TableParser struct {
	rng Range
	cfg settings
}

// NewTableParser validates rng before any cell is read.
func NewTableParser(rng Range, opts ...Option) (*TableParser, error) {
	if err := rng.ValidateTable(); err != nil {
		return nil, err
	}
	cfg := newSettings(opts)
	if cfg.skipBlankRows && rng.EndRow == 0 {
		return nil, &ConfigError{Range: rng, Field: "end_row", Reason: "is required when blank rows are skipped"}
	}
	return &TableParser{rng: rng, cfg: cfg}, nil
}

func (p *TableParser) Range() Range { return p.rng }

// Columns reads the header row; blank header cells are skipped.
func (p *TableParser) Columns(ws *Worksheet) ([]Column, error) {
	width, err := ws.width(p.rng.HeaderRow)
	if err != nil {
		return nil, err
	}
	var cols []Column
	for col := 1; col <= width; col++ {
		v, err := ws.Cell(p.rng.HeaderRow, col)
		if err != nil {
			return nil, err
		}
		if v.IsEmpty() {
			continue
		}
		label := v.String()
		cols = append(cols, Column{Index: col, Label: label, Field: p.cfg.headerName(label)})
	}
	return cols, nil
}

// Records lazily yields one record per populated row. A row blank across every
// header column ends the table unless SkipBlankRows was given; rows with only some
// blank cells are kept with empty values.
func (p *TableParser) Records(wb *Workbook) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		ws, err := wb.Sheet(p.rng.Sheet)
		if err != nil {
			yield(nil, err)
			return
		}
		cols, err := p.Columns(ws)
		if err != nil {
			yield(nil, err)
			return
		}
		last := p.rng.EndRow
		if last == 0 {
			if last, err = ws.MaxRow(); err != nil {
				yield(nil, err)
				return
			}
		}
		p.cfg.logger.Debug("reading table", "range", p.rng.String(), "columns", len(cols))
		kept := 0
		for row := p.rng.HeaderRow + 1; row <= last; row++ {
			rec := NewRecord()
			rec.Row = row
			for _, c := range cols {
				v, err := ws.Cell(row, c.Index)
				if err != nil {
					yield(nil, err)
					return
				}
				rec.Set(c.Field, v)
			}
			if rec.Blank() {
				if p.cfg.skipBlankRows {
					continue
				}
				return
			}
			keep, err := p.transform(kept, rec)
			if err != nil {
				yield(nil, fmt.Errorf("%s row %d: %w", p.rng.Sheet, row, err))
				return
			}
			if !keep {
				continue
			}
			kept++
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (p *TableParser) transform(index int, rec *Record) (bool, error) {
	for _, t := range p.cfg.transforms {
		keep, err := t(index, rec)
		if err != nil || !keep {
			return keep, err
		}
	}
	return true, nil
}

// Parse collects every record of the table.
func (p *TableParser) Parse(wb *Workbook) ([]*Record, error) {
	var out []*Record
	for rec, err := range p.Records(wb) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// width returns the last populated column of row.
func (s *Worksheet) width(row int) (int, error) {
	rows, err := s.wb.f.GetRows(s.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, err
	}
	if row < 1 || row > len(rows) {
		return 0, nil
	}
	return len(rows[row-1]), nil
}
