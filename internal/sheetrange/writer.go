package sheetrange

import (
	"fmt"
	"slices"
)

// KeyValueWriter writes a record as label/value rows into every configured range.
type KeyValueWriter struct {
	ranges []Range
	cfg    settings
}

// NewKeyValueWriter validates every range before anything is written.
func NewKeyValueWriter(ranges []Range, opts ...Option) (*KeyValueWriter, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no ranges given", ErrInvalidRange)
	}
	for _, r := range ranges {
		if err := r.ValidateKeyValue(); err != nil {
			return nil, err
		}
	}
	return &KeyValueWriter{ranges: append([]Range(nil), ranges...), cfg: newSettings(opts)}, nil
}

// Write clears each range and fills it from its start row. Nothing is written when
// the record has more fields than any range has rows.
func (w *KeyValueWriter) Write(wb *Workbook, rec *Record) error {
	keys := rec.Keys()
	for _, r := range w.ranges {
		if len(keys) > r.Rows() {
			return fmt.Errorf("%w: %d fields for %d rows in %s", ErrRegionOverflow, len(keys), r.Rows(), r)
		}
	}
	for _, r := range w.ranges {
		ws, err := wb.EnsureSheet(r.Sheet)
		if err != nil {
			return err
		}
		if err := ws.clearRows(r.StartRow, r.EndRow, r.KeyColumn, r.ValueColumn); err != nil {
			return err
		}
		w.cfg.logger.Debug("writing key-value range", "range", r.String(), "fields", len(keys))
		for i, k := range keys {
			row := r.StartRow + i
			if err := ws.SetCell(row, r.KeyColumn, String(w.cfg.label(k))); err != nil {
				return err
			}
			if err := ws.SetCell(row, r.ValueColumn, rec.Value(k)); err != nil {
				return err
			}
		}
	}
	return nil
}

// TableWriter writes records as a header row followed by one row per record.
type TableWriter struct {
	rng Range
	cfg settings
}

// NewTableWriter validates rng and the slot settings.
func NewTableWriter(rng Range, opts ...Option) (*TableWriter, error) {
	if err := rng.ValidateTable(); err != nil {
		return nil, err
	}
	cfg := newSettings(opts)
	if cfg.slots < 0 || (cfg.slots > 0 && cfg.slotField == "") {
		return nil, &ConfigError{Range: rng, Field: "slots", Reason: "needs a positive count and a slot field"}
	}
	if cfg.slots > 0 && rng.EndRow > 0 && rng.HeaderRow+cfg.slots > rng.EndRow {
		return nil, &ConfigError{Range: rng, Field: "end_row", Reason: fmt.Sprintf("leaves no room for %d slots", cfg.slots)}
	}
	return &TableWriter{rng: rng, cfg: cfg}, nil
}

func (w *TableWriter) Range() Range { return w.rng }

// Columns returns the write order: protocol columns first, then the sorted union of
// every other key.
func (w *TableWriter) Columns(records []*Record) []string {
	cols := append([]string(nil), w.cfg.protocol...)
	for _, k := range UnionKeys(records) {
		if slices.Contains(w.cfg.protocol, k) || w.cfg.skipColumns[k] {
			continue
		}
		cols = append(cols, k)
	}
	return cols
}

// Write lays the records out below the header row, creating the sheet when needed.
// The previous table is cleared first: header through end row, or through its last
// populated row when the range is open-ended. With slots configured, record n lands
// on row header+n and gaps are padded.
func (w *TableWriter) Write(wb *Workbook, records []*Record) error {
	rows := records
	if w.cfg.slots > 0 {
		padded, err := Pad(records, w.cfg.slots, w.cfg.slotField)
		if err != nil {
			return err
		}
		rows = padded
	}
	if w.rng.EndRow > 0 && w.rng.HeaderRow+len(rows) > w.rng.EndRow {
		return fmt.Errorf("%w: %d rows below header %d exceed end row %d", ErrRegionOverflow, len(rows), w.rng.HeaderRow, w.rng.EndRow)
	}
	ws, err := wb.EnsureSheet(w.rng.Sheet)
	if err != nil {
		return err
	}
	last := w.rng.EndRow
	if last == 0 {
		if last, err = ws.tableEnd(w.rng.HeaderRow); err != nil {
			return err
		}
	}
	if err := ws.clearRows(w.rng.HeaderRow, last); err != nil {
		return err
	}
	cols := w.Columns(rows)
	w.cfg.logger.Debug("writing table", "range", w.rng.String(), "rows", len(rows), "columns", len(cols))
	for i, c := range cols {
		if err := ws.SetCell(w.rng.HeaderRow, i+1, String(w.cfg.label(c))); err != nil {
			return err
		}
	}
	for i, rec := range rows {
		row := w.rng.HeaderRow + 1 + i
		for j, c := range cols {
			if err := ws.SetCell(row, j+1, rec.Value(c)); err != nil {
				return err
			}
		}
	}
	return nil
}
