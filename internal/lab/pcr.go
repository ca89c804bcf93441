package lab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
)

const (
	sampleKey = "sample"
	targetKey = "target"
	ctKey     = "ct"
)

// Target holds the instrument values reported for one assay target of a sample.
type Target struct {
	Name   string `validate:"required"`
	Values *sheetrange.Record
}

// PCRResult is every target reported for a sample.
type PCRResult struct {
	SampleID string   `validate:"required"`
	Targets  []Target `validate:"required,min=1,dive"`
}

// Ct returns the cycle threshold of target. Instruments report "Undetermined" for
// targets that never crossed the threshold; that comes back as ok=false.
func (r PCRResult) Ct(target string) (float64, bool) {
	for _, t := range r.Targets {
		if t.Name != target {
			continue
		}
		v := t.Values.Value(ctKey)
		switch v.Kind {
		case sheetrange.KindNumber:
			return v.Num, true
		case sheetrange.KindString:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
				return f, true
			}
		}
		return 0, false
	}
	return 0, false
}

// PCRResultsFromGroups converts rows grouped by sample into results.
func PCRResultsFromGroups(region string, groups []sheetrange.Group) ([]PCRResult, error) {
	var out []PCRResult
	var errs []error
	for _, g := range groups {
		res := PCRResult{SampleID: strings.TrimSpace(g.Entity)}
		for _, m := range g.Members {
			res.Targets = append(res.Targets, Target{Name: strings.TrimSpace(m.Key), Values: m.Fields})
		}
		if err := validatorInstance().Struct(res); err != nil {
			errs = append(errs, &ConversionError{Region: region, Field: sampleKey, Err: fmt.Errorf("sample %q: %w", g.Entity, err)})
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

// PCRResultsFromResult converts a grouped region result. Rows without a sample id
// become conversion errors next to the results that could be built.
func PCRResultsFromResult(res layout.Result) ([]PCRResult, error) {
	out, err := PCRResultsFromGroups(res.Region, res.Groups)
	errs := []error{err}
	for _, rec := range res.Ungrouped {
		errs = append(errs, &ConversionError{Region: res.Region, Row: rec.Row, Field: sampleKey, Err: errors.New("sample id is empty")})
	}
	return out, errors.Join(errs...)
}

// PCRRecords flattens results into one row per sample and target.
func PCRRecords(results []PCRResult) []*sheetrange.Record {
	groups := make([]sheetrange.Group, len(results))
	for i, r := range results {
		g := sheetrange.Group{Entity: r.SampleID}
		for _, t := range r.Targets {
			fields := t.Values
			if fields == nil {
				fields = sheetrange.NewRecord()
			}
			g.Members = append(g.Members, sheetrange.Member{Key: t.Name, Fields: fields})
		}
		groups[i] = g
	}
	return sheetrange.Flatten(groups, sampleKey, targetKey)
}
