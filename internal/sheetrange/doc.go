// Package sheetrange reads and writes structured records in fixed regions of
// workbook sheets.
//
// A Range names a rectangular region. Key-value regions hold one label/value pair
// per row at fixed columns; table regions hold a header row followed by one record
// per row. Parsers never touch cells before their ranges validate, and writers only
// touch the cells inside their region.
package sheetrange
