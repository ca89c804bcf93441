package types

import (
	"github.com/nconklindev/labsheets/internal/layout"
)

// RegionResult is the outcome of reading one region. Err is set when the region
// could not be read; the other regions of the file are unaffected.
type RegionResult struct {
	Name   string
	Result layout.Result
	Err    error
}

// ParseSummary is the outcome of parsing a set of regions from one workbook.
type ParseSummary struct {
	InputFile  string
	OutputFile string
	Regions    []RegionResult
	RowsParsed int
}

// Failed returns the regions that could not be read.
func (s *ParseSummary) Failed() []RegionResult {
	var out []RegionResult
	for _, r := range s.Regions {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// FileData is a raw preview of one sheet with its guessed header row.
type FileData struct {
	Sheet     string
	Headers   []string
	Rows      [][]string
	HeaderRow int
}
