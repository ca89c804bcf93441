package sheetrange

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook wraps an open excelize file. Callers must Close it; ReadFile and
// UpdateFile do that for them.
type Workbook struct {
	f    *excelize.File
	path string
}

// OpenWorkbook opens an existing .xlsx or .xlsm file.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f, path: path}, nil
}

// NewWorkbook returns an empty in-memory workbook.
func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// File exposes the underlying excelize file.
func (w *Workbook) File() *excelize.File { return w.f }

// Path is the file the workbook was opened from, or empty for a new one.
func (w *Workbook) Path() string { return w.path }

// Close releases the file's temporary resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Save writes the workbook back to the path it came from.
func (w *Workbook) Save() error {
	if w.path == "" {
		return errors.New("save workbook: no path, use SaveAs")
	}
	return w.SaveAs(w.path)
}

// SaveAs writes the workbook to path and remembers it for Save.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	w.path = path
	return nil
}

// SheetNames lists the sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// HasSheet reports whether the workbook has a sheet called name.
func (w *Workbook) HasSheet(name string) bool {
	return slices.Contains(w.f.GetSheetList(), name)
}

// Sheet returns the named worksheet or ErrSheetNotFound.
func (w *Workbook) Sheet(name string) (*Worksheet, error) {
	if !w.HasSheet(name) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return &Worksheet{wb: w, name: name}, nil
}

// EnsureSheet returns the named worksheet, creating it when absent. Existing sheets
// are left untouched.
func (w *Workbook) EnsureSheet(name string) (*Worksheet, error) {
	if !w.HasSheet(name) {
		if _, err := w.f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	return &Worksheet{wb: w, name: name}, nil
}

// Categories returns the semicolon separated entries of the workbook's category
// document property.
func (w *Workbook) Categories() []string {
	props, err := w.f.GetDocProps()
	if err != nil || props == nil {
		return nil
	}
	var out []string
	for _, c := range strings.Split(props.Category, ";") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ReadFile opens path, hands the workbook to fn and closes it on every exit path.
func ReadFile(path string, fn func(*Workbook) error) (err error) {
	wb, err := OpenWorkbook(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook %s: %w", path, cerr)
		}
	}()
	return fn(wb)
}

// UpdateFile opens path (or starts a new workbook when it does not exist), hands it
// to fn, and saves only if fn succeeds. The workbook is closed on every exit path.
// A new workbook keeps only the sheets fn wrote.
func UpdateFile(path string, fn func(*Workbook) error) (err error) {
	var wb *Workbook
	created := false
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		wb = NewWorkbook()
		wb.path = path
		created = true
	} else {
		if wb, err = OpenWorkbook(path); err != nil {
			return err
		}
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook %s: %w", path, cerr)
		}
	}()
	if err = fn(wb); err != nil {
		return err
	}
	if created {
		if err = wb.dropDefaultSheet(); err != nil {
			return err
		}
	}
	return wb.SaveAs(path)
}

// defaultSheet is the sheet excelize puts into every new file.
const defaultSheet = "Sheet1"

// dropDefaultSheet removes the untouched default sheet once another sheet exists.
func (w *Workbook) dropDefaultSheet() error {
	if !w.HasSheet(defaultSheet) || len(w.SheetNames()) < 2 {
		return nil
	}
	rows, err := w.f.GetRows(defaultSheet)
	if err != nil || len(rows) > 0 {
		return err
	}
	if err := w.f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("drop %s: %w", defaultSheet, err)
	}
	return nil
}

// Worksheet addresses cells of one sheet by 1-based row and column.
type Worksheet struct {
	wb   *Workbook
	name string
}

func (s *Worksheet) Name() string { return s.name }

// MaxRow returns the number of rows holding data.
func (s *Worksheet) MaxRow() (int, error) {
	rows, err := s.wb.f.GetRows(s.name)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Cell reads one cell. Numeric cells carrying a date number format come back as dates.
func (s *Worksheet) Cell(row, col int) (Value, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Value{}, err
	}
	raw, err := s.wb.f.GetCellValue(s.name, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return Value{}, fmt.Errorf("read %s!%s: %w", s.name, axis, err)
	}
	if strings.TrimSpace(raw) == "" {
		return Empty(), nil
	}
	typ, err := s.wb.f.GetCellType(s.name, axis)
	if err != nil {
		return Value{}, fmt.Errorf("read %s!%s: %w", s.name, axis, err)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return String(raw), nil
	case excelize.CellTypeBool:
		return Boolean(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeDate:
		if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
			return Date(t), nil
		}
		return String(raw), nil
	}
	n, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return String(raw), nil
	}
	if s.isDateFormatted(axis) {
		if t, derr := excelize.ExcelDateToTime(n, false); derr == nil {
			return Date(t), nil
		}
	}
	return Number(n), nil
}

// SetCell writes one cell; empty values clear it.
func (s *Worksheet) SetCell(row, col int, v Value) error {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if v.IsEmpty() {
		err = s.wb.f.SetCellStr(s.name, axis, "")
	} else {
		err = s.wb.f.SetCellValue(s.name, axis, v.Any())
	}
	if err != nil {
		return fmt.Errorf("write %s!%s: %w", s.name, axis, err)
	}
	return nil
}

// clearRows empties the populated cells of rows first..last. When cols are given
// only those columns are touched.
func (s *Worksheet) clearRows(first, last int, cols ...int) error {
	rows, err := s.wb.f.GetRows(s.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	for row := first; row <= last && row <= len(rows); row++ {
		for i, raw := range rows[row-1] {
			col := i + 1
			if raw == "" || (len(cols) > 0 && !slices.Contains(cols, col)) {
				continue
			}
			if err := s.SetCell(row, col, Empty()); err != nil {
				return err
			}
		}
	}
	return nil
}

// tableEnd returns the last row of the block that starts below header and runs
// until the first row without any populated cell.
func (s *Worksheet) tableEnd(header int) (int, error) {
	rows, err := s.wb.f.GetRows(s.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, err
	}
	last := header
	for row := header + 1; row <= len(rows); row++ {
		if !slices.ContainsFunc(rows[row-1], func(c string) bool { return strings.TrimSpace(c) != "" }) {
			break
		}
		last = row
	}
	return last, nil
}

// Built-in number formats 14-22 and 45-47 are dates or times.
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

func (s *Worksheet) isDateFormatted(axis string) bool {
	idx, err := s.wb.f.GetCellStyle(s.name, axis)
	if err != nil || idx == 0 {
		return false
	}
	style, err := s.wb.f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if isDateNumFmt(style.NumFmt) {
		return true
	}
	if style.CustomNumFmt != nil {
		f := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(f, "yy") || strings.Contains(f, "dd") || strings.Contains(f, "mmm")
	}
	return false
}
