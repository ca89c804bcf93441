package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
	"github.com/nconklindev/labsheets/internal/types"
)

const RowDetectionLimit = 10

// ParseRegions reads every region from one workbook. A region that fails is recorded
// in the summary and the rest are still read. Progress in [0,1] is sent on
// progressChan without blocking.
func ParseRegions(inputFile string, regions []layout.Region, progressChan chan<- float64, logger *slog.Logger) (*types.ParseSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions selected")
	}

	summary := &types.ParseSummary{InputFile: inputFile}
	total := len(regions)

	reportProgress := func(current int) {
		if progressChan != nil {
			select {
			case progressChan <- float64(current) / float64(total):
			default:
			}
		}
	}

	err := sheetrange.ReadFile(inputFile, func(wb *sheetrange.Workbook) error {
		for i, r := range regions {
			res, err := r.Parse(wb, sheetrange.WithLogger(logger))
			if err != nil {
				logger.Warn("region not read", "region", r.Name, "err", err)
			} else {
				summary.RowsParsed += res.Len()
			}
			summary.Regions = append(summary.Regions, types.RegionResult{Name: r.Name, Result: res, Err: err})
			reportProgress(i + 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// CopyRegions reads regions from inputFile and writes them to the same regions of
// outputFile, creating it when needed. Nothing is saved if any region fails.
func CopyRegions(inputFile, outputFile string, regions []layout.Region, logger *slog.Logger) (*types.ParseSummary, error) {
	summary, err := ParseRegions(inputFile, regions, nil, logger)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, r := range summary.Failed() {
		errs = append(errs, r.Err)
	}
	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}

	err = sheetrange.UpdateFile(outputFile, func(wb *sheetrange.Workbook) error {
		for i, r := range regions {
			if err := r.Write(wb, summary.Regions[i].Result, sheetrange.WithLogger(logger)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.OutputFile = outputFile
	return summary, nil
}

// ReadSheetData previews a sheet not covered by a layout: the header row is guessed
// and the rows below it are returned as text. An empty sheet name means the first
// sheet.
func ReadSheetData(filePath, sheet string) (*types.FileData, error) {
	var data *types.FileData
	err := sheetrange.ReadFile(filePath, func(wb *sheetrange.Workbook) error {
		f := wb.File()
		if sheet == "" {
			sheet = f.GetSheetName(0)
		}
		if !wb.HasSheet(sheet) {
			return fmt.Errorf("%w: %s", sheetrange.ErrSheetNotFound, sheet)
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("empty sheet %s", sheet)
		}
		headerRowIdx := DetectHeaderRow(rows)
		if headerRowIdx == -1 {
			return fmt.Errorf("could not find header row")
		}
		data = &types.FileData{
			Sheet:     sheet,
			Headers:   rows[headerRowIdx],
			Rows:      rows[headerRowIdx+1:],
			HeaderRow: headerRowIdx,
		}
		return nil
	})
	return data, err
}

// DetectHeaderRow returns the index of the row that looks most like a header: the
// one with the most non-empty cells among rows that have at least two cells and some
// text. Only the first 2*RowDetectionLimit rows are considered.
func DetectHeaderRow(rows [][]string) int {
	maxNonEmpty := 0
	headerIdx := -1

	searchLimit := min(len(rows), RowDetectionLimit*2)
	for i := 0; i < searchLimit; i++ {
		nonEmptyCount := 0
		hasText := false
		for _, cell := range rows[i] {
			trimmed := strings.TrimSpace(cell)
			if trimmed != "" {
				nonEmptyCount++
				if containsLetters(trimmed) {
					hasText = true
				}
			}
		}
		if nonEmptyCount >= 2 && hasText && nonEmptyCount > maxNonEmpty {
			maxNonEmpty = nonEmptyCount
			headerIdx = i
		}
	}
	return headerIdx
}

func containsLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
