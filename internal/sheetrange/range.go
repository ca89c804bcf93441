package sheetrange

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrRegionOverflow = errors.New("region overflow")
	ErrSlotConflict   = errors.New("slot conflict")
)

// Range describes a rectangular region of a worksheet. Rows and columns are 1-based;
// zero means unset.
type Range struct {
	Sheet       string `yaml:"sheet" json:"sheet"`
	StartRow    int    `yaml:"start_row,omitempty" json:"start_row,omitempty"`
	EndRow      int    `yaml:"end_row,omitempty" json:"end_row,omitempty"`
	KeyColumn   int    `yaml:"key_column,omitempty" json:"key_column,omitempty"`
	ValueColumn int    `yaml:"value_column,omitempty" json:"value_column,omitempty"`
	HeaderRow   int    `yaml:"header_row,omitempty" json:"header_row,omitempty"`
}

// ConfigError reports a malformed or missing range field.
type ConfigError struct {
	Range  Range
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	sheet := e.Range.Sheet
	if sheet == "" {
		sheet = "<unnamed>"
	}
	return fmt.Sprintf("range on sheet %q: %s %s", sheet, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidRange
}

func (r Range) String() string {
	if r.HeaderRow > 0 {
		return fmt.Sprintf("%s!header=%d..%d", r.Sheet, r.HeaderRow, r.EndRow)
	}
	return fmt.Sprintf("%s!%d..%d[%d:%d]", r.Sheet, r.StartRow, r.EndRow, r.KeyColumn, r.ValueColumn)
}

func (r Range) invalid(field, reason string) error {
	return &ConfigError{Range: r, Field: field, Reason: reason}
}

// validateCommon checks what every layout needs: a sheet name,
// no negative indices and an ordered row span.
func (r Range) validateCommon() error {
	if r.Sheet == "" {
		return r.invalid("sheet", "is required")
	}
	fields := []struct {
		name string
		v    int
	}{
		{"start_row", r.StartRow},
		{"end_row", r.EndRow},
		{"key_column", r.KeyColumn},
		{"value_column", r.ValueColumn},
		{"header_row", r.HeaderRow},
	}
	for _, f := range fields {
		if f.v < 0 {
			return r.invalid(f.name, "must be positive")
		}
	}
	if r.StartRow > 0 && r.EndRow > 0 && r.EndRow < r.StartRow {
		return r.invalid("end_row", fmt.Sprintf("(%d) is before start_row (%d)", r.EndRow, r.StartRow))
	}
	return nil
}

// ValidateKeyValue checks the fields a key-value region needs.
func (r Range) ValidateKeyValue() error {
	if err := r.validateCommon(); err != nil {
		return err
	}
	switch {
	case r.StartRow == 0:
		return r.invalid("start_row", "is required")
	case r.EndRow == 0:
		return r.invalid("end_row", "is required")
	case r.KeyColumn == 0:
		return r.invalid("key_column", "is required")
	case r.ValueColumn == 0:
		return r.invalid("value_column", "is required")
	case r.KeyColumn == r.ValueColumn:
		return r.invalid("value_column", "must differ from key_column")
	}
	return nil
}

// ValidateTable checks the fields a table region needs.
func (r Range) ValidateTable() error {
	if err := r.validateCommon(); err != nil {
		return err
	}
	if r.HeaderRow == 0 {
		return r.invalid("header_row", "is required")
	}
	if r.EndRow > 0 && r.EndRow <= r.HeaderRow {
		return r.invalid("end_row", fmt.Sprintf("(%d) must be below header_row (%d)", r.EndRow, r.HeaderRow))
	}
	return nil
}

// Rows returns the number of rows a key-value range spans.
func (r Range) Rows() int {
	if r.EndRow < r.StartRow {
		return 0
	}
	return r.EndRow - r.StartRow + 1
}
